// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE parsing utilities.
//
// Build files and tool settings are both validated by unifying user data with an
// embedded schema definition:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify it with the schema definition
//  3. Validate, then decode to a Go map for typed conversion
//
// # Usage
//
//	//go:embed buildspec_schema.cue
//	var schemaBytes []byte
//
//	unified, err := cueutil.Unify(schemaBytes, userFileBytes, "#BuildSpec",
//	    cueutil.WithFilename("build.cue"))
//	if errors.Is(err, cueutil.ErrSyntax) {
//	    // malformed input
//	}
//	fields, err := cueutil.DecodeMap(unified, "build.cue")
//
// Errors carry JSON-path prefixes (e.g. "exposed_ports[0]: invalid value").
package cueutil

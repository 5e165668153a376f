// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Unify compiles schema and data, unifies data with the definition at schemaPath
// and validates the result.
//
// data may be CUE or JSON (JSON is valid CUE). Compilation failures wrap ErrSyntax,
// unification and validation failures wrap ErrSchema, oversize input wraps
// ErrTooLarge. Schema compilation failures are internal errors and wrap neither.
func Unify(schema, data []byte, schemaPath string, opts ...Option) (cue.Value, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	filename := options.filename
	if filename == "" {
		filename = "<input>"
	}

	if err := CheckFileSize(data, options.maxFileSize, filename); err != nil {
		return cue.Value{}, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	schemaRoot := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schemaRoot.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schemaRoot.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("%w: %w", ErrSyntax, FormatError(userValue.Err(), filename))
	}

	unified := schemaRoot.Unify(userValue)
	if err := unified.Validate(cue.Concrete(options.concrete)); err != nil {
		return cue.Value{}, fmt.Errorf("%w: %w", ErrSchema, FormatError(err, filename))
	}

	return unified, nil
}

// DecodeMap decodes a validated value into a generic map, ready for typed
// conversion or for merging into viper.
func DecodeMap(v cue.Value, filename string) (map[string]any, error) {
	var out map[string]any
	if err := v.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchema, FormatError(err, filename))
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

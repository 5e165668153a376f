// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the ansible-docker command line.
//
// The root command builds one image from a build file and tags it. The
// settings subcommand prints the effective tool settings. Errors are rendered
// with suggestions from the issue catalog and mapped to distinct exit codes.
package cmd

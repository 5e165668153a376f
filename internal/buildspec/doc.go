// SPDX-License-Identifier: MPL-2.0

// Package buildspec loads and validates declarative image build files.
//
// A build file may be written in CUE, YAML, JSON or TOML. Every format is
// converted to CUE and unified with the embedded #BuildSpec schema, so type and
// range errors are reported the same way regardless of the input format.
// Unknown top-level keys are tolerated and preserved in BuildSpec.Extra.
package buildspec

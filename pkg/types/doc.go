// SPDX-License-Identifier: MPL-2.0

// Package types defines small value types shared by the CLI and the domain
// packages. It is a leaf dependency: it imports only the standard library.
package types

// SPDX-License-Identifier: MPL-2.0

// Package buildctx turns a validated build spec into engine build input.
//
// Assemble produces a BuildContext: the base image, the ordered overlay
// copies, and the image configuration. The context renders itself as a
// Dockerfile and can be written to a directory or streamed as a tar archive,
// which is what both the API and CLI engines consume.
package buildctx

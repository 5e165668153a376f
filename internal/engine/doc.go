// SPDX-License-Identifier: MPL-2.0

// Package engine abstracts the container engine that builds and tags images.
//
// Two implementations are provided: APIEngine talks to the Docker Engine API,
// and CLIEngine drives a docker or podman binary. Both build exactly one image
// per Build call and never pass tags into the build; tags are applied
// afterwards, one Tag call per reference.
//
// Tracker and Logged are decorators that wrap any Engine.
package engine

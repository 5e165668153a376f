// SPDX-License-Identifier: MPL-2.0

// Package orchestrator runs the build pipeline: load the build file, assemble
// the build context, build exactly one image and apply the requested tags to
// it, in that order.
//
// A Run walks Init, Loaded, Assembled, Built, Tagged and Done. Any failure
// moves it to Failed and returns an *Error that records how far the pipeline
// got, including the image ID and the tags applied before a tagging failure.
// Nothing is retried and no image is ever deleted.
package orchestrator

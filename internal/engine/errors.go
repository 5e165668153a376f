// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"fmt"
)

const (
	// BuildFailed means the engine rejected the build.
	BuildFailed EngineErrorKind = iota + 1
	// TagFailed means the engine could not apply a tag.
	TagFailed
	// NotFound means the referenced image does not exist.
	NotFound
	// Unavailable means the engine could not be reached.
	Unavailable
)

var (
	// ErrEngine is wrapped by every EngineError.
	ErrEngine = errors.New("container engine error")

	// ErrBuildFailed is the sentinel for BuildFailed errors.
	ErrBuildFailed = errors.New("image build failed")
	// ErrTagFailed is the sentinel for TagFailed errors.
	ErrTagFailed = errors.New("image tag failed")
	// ErrImageNotFound is the sentinel for NotFound errors.
	ErrImageNotFound = errors.New("image not found")
	// ErrUnavailable is the sentinel for Unavailable errors.
	ErrUnavailable = errors.New("container engine unavailable")
)

type (
	// EngineErrorKind classifies an EngineError.
	EngineErrorKind int

	// EngineError carries the engine diagnostic for a failed operation.
	EngineError struct {
		Kind   EngineErrorKind
		Engine string
		// Ref is the image ID or tag the operation was about, if any.
		Ref string
		// Diagnostic is the engine's own message, e.g. the failing build step.
		Diagnostic string
		Err        error
	}
)

func (k EngineErrorKind) String() string {
	switch k {
	case BuildFailed:
		return "build failed"
	case TagFailed:
		return "tag failed"
	case NotFound:
		return "not found"
	case Unavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("EngineErrorKind(%d)", int(k))
	}
}

func (k EngineErrorKind) sentinel() error {
	switch k {
	case BuildFailed:
		return ErrBuildFailed
	case TagFailed:
		return ErrTagFailed
	case NotFound:
		return ErrImageNotFound
	default:
		return ErrUnavailable
	}
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := e.Engine + ": " + e.Kind.String()
	if e.Ref != "" {
		msg += " " + e.Ref
	}
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes ErrEngine, the kind sentinel and the cause to errors.Is/As.
func (e *EngineError) Unwrap() []error {
	errs := []error{ErrEngine, e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

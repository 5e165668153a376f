// SPDX-License-Identifier: MPL-2.0

package buildctx

import (
	"errors"
	"fmt"
)

const (
	// SourceNotFound means an overlay source or env file does not exist.
	SourceNotFound AssemblyErrorKind = iota + 1
	// InvalidDockerfile means the rendered Dockerfile did not parse.
	InvalidDockerfile
	// Materialize means writing the build context to disk failed.
	Materialize
)

var (
	// ErrAssembly is wrapped by every AssemblyError.
	ErrAssembly = errors.New("build context assembly failed")

	// ErrSourceNotFound is the sentinel for SourceNotFound errors.
	ErrSourceNotFound = errors.New("source not found")
	// ErrInvalidDockerfile is the sentinel for InvalidDockerfile errors.
	ErrInvalidDockerfile = errors.New("invalid Dockerfile")
	// ErrMaterialize is the sentinel for Materialize errors.
	ErrMaterialize = errors.New("cannot write build context")
)

type (
	// AssemblyErrorKind classifies an AssemblyError.
	AssemblyErrorKind int

	// AssemblyError is returned when build input cannot be produced.
	AssemblyError struct {
		Kind AssemblyErrorKind
		// Path is the host path involved, if any.
		Path string
		Err  error
	}
)

func (k AssemblyErrorKind) String() string {
	switch k {
	case SourceNotFound:
		return "source not found"
	case InvalidDockerfile:
		return "invalid Dockerfile"
	case Materialize:
		return "materialize"
	default:
		return fmt.Sprintf("AssemblyErrorKind(%d)", int(k))
	}
}

func (k AssemblyErrorKind) sentinel() error {
	switch k {
	case SourceNotFound:
		return ErrSourceNotFound
	case InvalidDockerfile:
		return ErrInvalidDockerfile
	default:
		return ErrMaterialize
	}
}

// Error implements the error interface.
func (e *AssemblyError) Error() string {
	msg := e.Kind.String()
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes ErrAssembly, the kind sentinel and the cause to errors.Is/As.
func (e *AssemblyError) Unwrap() []error {
	errs := []error{ErrAssembly, e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

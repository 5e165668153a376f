// SPDX-License-Identifier: MPL-2.0

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ansible-docker/ansible-docker/internal/buildctx"
	"github.com/ansible-docker/ansible-docker/internal/buildspec"
	"github.com/ansible-docker/ansible-docker/internal/engine"
	"github.com/ansible-docker/ansible-docker/pkg/types"
)

const (
	// ClassConfig covers unreadable or invalid build files and tags.
	ClassConfig Class = iota + 1
	// ClassAssembly covers build context failures such as missing overlays.
	ClassAssembly
	// ClassEngine covers build, tag and connection failures.
	ClassEngine
	// ClassCanceled means the context ended before the run finished.
	ClassCanceled
)

type (
	// Class groups run failures by the exit status they map to.
	Class int

	// Error is returned by Run on failure.
	Error struct {
		Class Class
		// State is the last state reached before the failure.
		State State
		// ImageID is set if the image was built before the failure.
		ImageID engine.ImageID
		// AppliedTags lists the tags applied before the failure.
		AppliedTags []string
		Err         error
	}
)

func (c Class) String() string {
	switch c {
	case ClassConfig:
		return "config"
	case ClassAssembly:
		return "assembly"
	case ClassEngine:
		return "engine"
	case ClassCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// ExitCode returns the process exit code for the class.
func (c Class) ExitCode() types.ExitCode {
	switch c {
	case ClassConfig:
		return types.ExitConfig
	case ClassAssembly:
		return types.ExitAssembly
	case ClassEngine:
		return types.ExitEngine
	case ClassCanceled:
		return types.ExitCanceled
	default:
		return types.ExitFailure
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s error after %s: %v", e.Class, e.State, e.Err)
	if e.ImageID != "" {
		fmt.Fprintf(&sb, " (image %s", e.ImageID)
		if len(e.AppliedTags) > 0 {
			fmt.Fprintf(&sb, ", applied tags: %s", strings.Join(e.AppliedTags, ", "))
		}
		sb.WriteString(")")
	}
	return sb.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Partial reports whether the failure left an image behind.
func (e *Error) Partial() bool { return e.ImageID != "" }

// classify picks the class for err. A context that has ended wins over
// whatever the failing call reported, since a killed engine process surfaces
// as an ordinary exit error.
func classify(ctx context.Context, err error, fallback Class) Class {
	switch {
	case ctx.Err() != nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ClassCanceled
	case errors.Is(err, buildspec.ErrConfig):
		return ClassConfig
	case errors.Is(err, buildctx.ErrAssembly):
		return ClassAssembly
	case errors.Is(err, engine.ErrEngine):
		return ClassEngine
	default:
		return fallback
	}
}

// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"io"

	"github.com/ansible-docker/ansible-docker/internal/buildctx"
)

type (
	// ImageID is the identifier an engine assigns to a built image.
	ImageID string

	// Engine builds, tags and inspects images.
	// Implementations are safe for concurrent use.
	Engine interface {
		// Name identifies the engine in logs and errors.
		Name() string
		// Build creates exactly one image from bc and returns its ID.
		Build(ctx context.Context, bc *buildctx.BuildContext, opts BuildOptions) (ImageID, error)
		// Tag adds one reference to an existing image. Re-applying a tag the
		// image already carries is a no-op.
		Tag(ctx context.Context, id ImageID, tag string) error
		// Inspect reads image metadata. It never modifies the image.
		Inspect(ctx context.Context, id ImageID) (*ImageMetadata, error)
	}

	// Remover is implemented by engines that can delete images.
	Remover interface {
		Remove(ctx context.Context, id ImageID, force bool) error
	}

	// BuildOptions tune a single build.
	BuildOptions struct {
		// NoCache disables the layer cache.
		NoCache bool
		// Pull always attempts to pull a newer base image.
		Pull bool
		// Output receives human-readable build progress. Nil discards it.
		Output io.Writer
	}

	// ImageMetadata is the subset of image metadata callers care about.
	ImageMetadata struct {
		ID           ImageID
		RepoTags     []string
		Entrypoint   []string
		Cmd          []string
		WorkingDir   string
		ExposedPorts map[string]struct{}
		Volumes      map[string]struct{}
		Env          []string
		Labels       map[string]string
		User         string
	}
)

// String returns the ID as a string.
func (id ImageID) String() string { return string(id) }

func (o BuildOptions) output() io.Writer {
	if o.Output == nil {
		return io.Discard
	}
	return o.Output
}

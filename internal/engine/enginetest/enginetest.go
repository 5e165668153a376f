// SPDX-License-Identifier: MPL-2.0

// Package enginetest provides an in-memory engine.Engine for tests.
//
// The fake mirrors what a real daemon does with the inputs: one image per
// Build, image configuration copied from the build context, and tag
// normalization ("web" is stored as "web:latest"), with tags moving between
// images the way docker tag moves them.
package enginetest

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/distribution/reference"

	"github.com/ansible-docker/ansible-docker/internal/buildctx"
	"github.com/ansible-docker/ansible-docker/internal/engine"
)

// Name is the fake engine's name.
const Name = "fake"

type (
	// Call records one engine invocation.
	Call struct {
		Op    string // "build", "tag", "inspect" or "remove"
		Image engine.ImageID
		Tag   string
	}

	// Engine is an in-memory engine. The zero value is not usable; call New.
	Engine struct {
		// BuildErr, when set, is returned by every Build.
		BuildErr error
		// TagErrs maps a tag to the error Tag returns for it.
		TagErrs map[string]error
		// OnBuild runs inside Build before the image is created, e.g. to
		// cancel a context mid-pipeline.
		OnBuild func()

		mu     sync.Mutex
		nextID int
		images map[engine.ImageID]*engine.ImageMetadata
		calls  []Call
	}
)

// New returns an empty fake engine.
func New() *Engine {
	return &Engine{
		TagErrs: map[string]error{},
		images:  map[engine.ImageID]*engine.ImageMetadata{},
	}
}

// Name returns Name.
func (e *Engine) Name() string { return Name }

// Build creates one image whose configuration mirrors bc.
func (e *Engine) Build(ctx context.Context, bc *buildctx.BuildContext, _ engine.BuildOptions) (engine.ImageID, error) {
	e.record(Call{Op: "build"})
	if e.OnBuild != nil {
		e.OnBuild()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.BuildErr != nil {
		return "", e.BuildErr
	}
	if err := bc.Validate(); err != nil {
		return "", &engine.EngineError{Kind: engine.BuildFailed, Engine: Name, Err: err}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := engine.ImageID(fmt.Sprintf("sha256:%064x", e.nextID))
	md := &engine.ImageMetadata{
		ID:           id,
		RepoTags:     []string{},
		WorkingDir:   bc.Config.WorkingDir,
		ExposedPorts: maps.Clone(bc.Config.ExposedPorts),
		Volumes:      maps.Clone(bc.Config.Volumes),
		Labels:       maps.Clone(bc.Config.Labels),
		User:         bc.Config.User,
	}
	if bc.Config.Entrypoint != nil {
		md.Entrypoint = slices.Clone(*bc.Config.Entrypoint)
	}
	if bc.Config.Cmd != nil {
		md.Cmd = slices.Clone(*bc.Config.Cmd)
	}
	for _, k := range slices.Sorted(maps.Keys(bc.Config.Env)) {
		md.Env = append(md.Env, k+"="+bc.Config.Env[k])
	}
	e.images[id] = md
	return id, nil
}

// Tag normalizes tag the way docker does and attaches it to id, detaching it
// from any other image.
func (e *Engine) Tag(ctx context.Context, id engine.ImageID, tag string) error {
	e.record(Call{Op: "tag", Image: id, Tag: tag})
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.TagErrs[tag]; err != nil {
		return err
	}

	named, err := reference.ParseNormalizedNamed(tag)
	if err != nil {
		return &engine.EngineError{Kind: engine.TagFailed, Engine: Name, Ref: tag, Err: err}
	}
	normalized := reference.FamiliarString(reference.TagNameOnly(named))

	e.mu.Lock()
	defer e.mu.Unlock()

	md, ok := e.images[id]
	if !ok {
		return &engine.EngineError{Kind: engine.NotFound, Engine: Name, Ref: string(id)}
	}
	for _, other := range e.images {
		other.RepoTags = slices.DeleteFunc(other.RepoTags, func(t string) bool { return t == normalized })
	}
	md.RepoTags = append(md.RepoTags, normalized)
	return nil
}

// Inspect returns a copy of the image metadata.
func (e *Engine) Inspect(ctx context.Context, id engine.ImageID) (*engine.ImageMetadata, error) {
	e.record(Call{Op: "inspect", Image: id})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	md, ok := e.images[id]
	if !ok {
		return nil, &engine.EngineError{Kind: engine.NotFound, Engine: Name, Ref: string(id)}
	}
	c := *md
	c.RepoTags = slices.Clone(md.RepoTags)
	return &c, nil
}

// Remove deletes the image.
func (e *Engine) Remove(_ context.Context, id engine.ImageID, _ bool) error {
	e.record(Call{Op: "remove", Image: id})

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.images[id]; !ok {
		return &engine.EngineError{Kind: engine.NotFound, Engine: Name, Ref: string(id)}
	}
	delete(e.images, id)
	return nil
}

// Calls returns every recorded invocation in order.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.calls)
}

// CallCount returns how many invocations of op were recorded.
func (e *Engine) CallCount(op string) int {
	n := 0
	for _, c := range e.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Images returns the IDs of all images currently stored, sorted.
func (e *Engine) Images() []engine.ImageID {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := slices.Collect(maps.Keys(e.images))
	slices.Sort(ids)
	return ids
}

func (e *Engine) record(c Call) {
	e.mu.Lock()
	e.calls = append(e.calls, c)
	e.mu.Unlock()
}

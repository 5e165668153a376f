// SPDX-License-Identifier: MPL-2.0

package orchestrator

import (
	"context"
	"errors"
	"io"
	"maps"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ansible-docker/ansible-docker/internal/buildctx"
	"github.com/ansible-docker/ansible-docker/internal/buildspec"
	"github.com/ansible-docker/ansible-docker/internal/engine"
	"github.com/ansible-docker/ansible-docker/internal/provenance"
)

// commandLineSource names tags given on the command line in config errors.
const commandLineSource = "<command line>"

type (
	// Request describes one invocation.
	Request struct {
		ConfigPath string
		// Tags are appended after the build file's own tags.
		Tags    []string
		NoCache bool
		Pull    bool
		// DryRun stops after assembly; the engine is never called.
		DryRun bool
		// Output receives the engine's build output. Nil sends it to the
		// logger at debug level.
		Output io.Writer
	}

	// Result is the outcome of a run. It is returned on failure too.
	Result struct {
		RunID   string
		ImageID engine.ImageID
		// AppliedTags lists tags in the order they were applied.
		AppliedTags []string
		State       State
		// Dockerfile is the generated Dockerfile, set once assembly succeeds.
		Dockerfile []byte
	}

	// LabelFunc returns labels derived from the directory holding the build file.
	LabelFunc func(dir string) (map[string]string, error)

	// Option configures an Orchestrator.
	Option func(*Orchestrator)

	// Orchestrator runs build requests against one engine. It holds no
	// per-run state, so Run may be called concurrently.
	Orchestrator struct {
		engine    engine.Engine
		logger    *log.Logger
		observers []Observer
		labeler   LabelFunc
		newRunID  func() string
	}

	run struct {
		o      *Orchestrator
		ctx    context.Context
		logger *log.Logger
		res    *Result
	}
)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *log.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithObserver adds an observer for state transitions.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		o.observers = append(o.observers, obs)
	}
}

// WithProvenance adds git provenance labels to every image. Labels set in the
// build file take precedence.
func WithProvenance() Option {
	return WithLabeler(provenance.Labels)
}

// WithLabeler adds labels computed by fn to every image.
func WithLabeler(fn LabelFunc) Option {
	return func(o *Orchestrator) {
		o.labeler = fn
	}
}

// WithRunID overrides run ID generation.
func WithRunID(fn func() string) Option {
	return func(o *Orchestrator) {
		o.newRunID = fn
	}
}

// New creates an orchestrator. e may be nil when only dry runs are requested.
func New(e engine.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:   e,
		logger:   log.New(io.Discard),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the pipeline for req. On failure the returned *Result holds
// whatever was achieved and the error is an *Error.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	r := &run{o: o, ctx: ctx, res: &Result{RunID: o.newRunID(), State: Init}}
	r.logger = o.logger.With("run", r.res.RunID)

	spec, err := r.load(req)
	if err != nil {
		return r.fail(ClassConfig, err)
	}
	r.transition(Loaded)

	bc, err := buildctx.Assemble(r.label(spec))
	if err != nil {
		return r.fail(ClassAssembly, err)
	}
	r.res.Dockerfile = bc.Dockerfile()
	r.transition(Assembled)

	if req.DryRun {
		r.transition(Done)
		return r.res, nil
	}

	if o.engine == nil {
		return r.fail(ClassEngine, &engine.EngineError{Kind: engine.Unavailable, Diagnostic: "no engine configured"})
	}
	if err := ctx.Err(); err != nil {
		return r.fail(ClassCanceled, err)
	}

	output := req.Output
	if output == nil {
		lw := newLineWriter(r.logger)
		defer lw.Flush()
		output = lw
	}
	id, err := o.engine.Build(ctx, bc, engine.BuildOptions{NoCache: req.NoCache, Pull: req.Pull, Output: output})
	if err != nil {
		return r.fail(ClassEngine, err)
	}
	r.res.ImageID = id
	r.transition(Built)

	for _, tag := range spec.Tags {
		if err := ctx.Err(); err != nil {
			return r.fail(ClassCanceled, err)
		}
		if err := o.engine.Tag(ctx, id, tag); err != nil {
			return r.fail(ClassEngine, err)
		}
		r.res.AppliedTags = append(r.res.AppliedTags, tag)
	}
	r.transition(Tagged)
	r.transition(Done)
	return r.res, nil
}

func (r *run) load(req Request) (*buildspec.BuildSpec, error) {
	spec, err := buildspec.Load(r.ctx, req.ConfigPath)
	if err != nil {
		return nil, err
	}
	if len(spec.Extra) > 0 {
		r.logger.Debug("unknown build file fields", "fields", slices.Sorted(maps.Keys(spec.Extra)))
	}
	spec, err = spec.WithTags(req.Tags...)
	if err != nil {
		return nil, &buildspec.ConfigError{Kind: buildspec.InvalidField, Path: commandLineSource, Field: "tag", Err: err}
	}
	return spec, nil
}

// label merges labeler output into spec. Labeling is best effort: a build
// outside a repository still proceeds.
func (r *run) label(spec *buildspec.BuildSpec) *buildspec.BuildSpec {
	if r.o.labeler == nil {
		return spec
	}
	labels, err := r.o.labeler(filepath.Dir(spec.Path))
	if err != nil {
		if errors.Is(err, provenance.ErrNotRepository) {
			r.logger.Debug("no provenance labels", "err", err)
		} else {
			r.logger.Warn("no provenance labels", "err", err)
		}
		return spec
	}
	return spec.WithLabels(labels)
}

func (r *run) transition(to State) {
	from := r.res.State
	r.res.State = to
	r.notify(Transition{RunID: r.res.RunID, From: from, To: to})
}

func (r *run) fail(fallback Class, err error) (*Result, error) {
	from := r.res.State
	runErr := &Error{
		Class:       classify(r.ctx, err, fallback),
		State:       from,
		ImageID:     r.res.ImageID,
		AppliedTags: slices.Clone(r.res.AppliedTags),
		Err:         err,
	}
	r.res.State = Failed
	r.notify(Transition{RunID: r.res.RunID, From: from, To: Failed, Err: runErr})
	return r.res, runErr
}

func (r *run) notify(t Transition) {
	for _, obs := range r.o.observers {
		obs(t)
	}
}

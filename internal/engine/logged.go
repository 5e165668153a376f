// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ansible-docker/ansible-docker/internal/buildctx"
)

// Logged logs every engine call and its outcome.
type Logged struct {
	Engine
	logger *log.Logger
}

// NewLogged wraps e. Calls are logged at debug level and failures at error level.
func NewLogged(e Engine, logger *log.Logger) *Logged {
	return &Logged{Engine: e, logger: logger.With("engine", e.Name())}
}

func (l *Logged) Build(ctx context.Context, bc *buildctx.BuildContext, opts BuildOptions) (ImageID, error) {
	start := time.Now()
	l.logger.Debug("build", "base", bc.BaseImage, "overlays", len(bc.Overlays), "no_cache", opts.NoCache, "pull", opts.Pull)
	id, err := l.Engine.Build(ctx, bc, opts)
	if err != nil {
		l.logger.Error("build failed", "err", err, "elapsed", time.Since(start).Round(time.Millisecond))
		return id, err
	}
	l.logger.Info("built image", "image", id, "elapsed", time.Since(start).Round(time.Millisecond))
	return id, nil
}

func (l *Logged) Tag(ctx context.Context, id ImageID, tag string) error {
	if err := l.Engine.Tag(ctx, id, tag); err != nil {
		l.logger.Error("tag failed", "image", id, "tag", tag, "err", err)
		return err
	}
	l.logger.Info("tagged image", "image", id, "tag", tag)
	return nil
}

func (l *Logged) Inspect(ctx context.Context, id ImageID) (*ImageMetadata, error) {
	md, err := l.Engine.Inspect(ctx, id)
	if err != nil {
		l.logger.Debug("inspect failed", "image", id, "err", err)
	}
	return md, err
}

// Remove forwards to the wrapped engine if it is a Remover.
func (l *Logged) Remove(ctx context.Context, id ImageID, force bool) error {
	r, ok := l.Engine.(Remover)
	if !ok {
		return &EngineError{Kind: Unavailable, Engine: l.Name(), Ref: string(id), Diagnostic: "engine cannot remove images"}
	}
	err := r.Remove(ctx, id, force)
	l.logger.Debug("remove", "image", id, "force", force, "err", err)
	return err
}

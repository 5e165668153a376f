// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"slices"
	"sync"

	"github.com/ansible-docker/ansible-docker/internal/buildctx"
)

// Tracker records the ID of every image built through it. Test harnesses use
// it to clean up; the CLI does not need it.
type Tracker struct {
	Engine

	mu     sync.Mutex
	images []ImageID
}

// NewTracker wraps e.
func NewTracker(e Engine) *Tracker {
	return &Tracker{Engine: e}
}

// Build delegates to the wrapped engine and records the resulting ID.
func (t *Tracker) Build(ctx context.Context, bc *buildctx.BuildContext, opts BuildOptions) (ImageID, error) {
	id, err := t.Engine.Build(ctx, bc, opts)
	if err == nil && id != "" {
		t.mu.Lock()
		t.images = append(t.images, id)
		t.mu.Unlock()
	}
	return id, err
}

// Images returns the recorded IDs in build order.
func (t *Tracker) Images() []ImageID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.images)
}

// Reset forgets all recorded IDs.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.images = nil
	t.mu.Unlock()
}

// Remove forwards to the wrapped engine if it is a Remover.
func (t *Tracker) Remove(ctx context.Context, id ImageID, force bool) error {
	r, ok := t.Engine.(Remover)
	if !ok {
		return &EngineError{Kind: Unavailable, Engine: t.Name(), Ref: string(id), Diagnostic: "engine cannot remove images"}
	}
	return r.Remove(ctx, id, force)
}

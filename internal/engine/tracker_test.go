// SPDX-License-Identifier: MPL-2.0

package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ansible-docker/ansible-docker/internal/buildctx"
	"github.com/ansible-docker/ansible-docker/internal/engine"
	"github.com/ansible-docker/ansible-docker/internal/engine/enginetest"
)

func TestTracker_RecordsBuilds(t *testing.T) {
	t.Parallel()

	fake := enginetest.New()
	tr := engine.NewTracker(fake)
	bc := &buildctx.BuildContext{BaseImage: "alpine"}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tr.Build(context.Background(), bc, engine.BuildOptions{}); err != nil {
				t.Errorf("Build() error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := len(tr.Images()); got != 8 {
		t.Fatalf("len(Images()) = %d, want 8", got)
	}

	for _, id := range tr.Images() {
		if err := tr.Remove(context.Background(), id, true); err != nil {
			t.Errorf("Remove(%s) error: %v", id, err)
		}
	}
	if len(fake.Images()) != 0 {
		t.Errorf("fake still holds %v", fake.Images())
	}

	tr.Reset()
	if len(tr.Images()) != 0 {
		t.Errorf("Images() after Reset = %v", tr.Images())
	}
}

func TestTracker_SkipsFailedBuilds(t *testing.T) {
	t.Parallel()

	fake := enginetest.New()
	fake.BuildErr = &engine.EngineError{Kind: engine.BuildFailed, Engine: enginetest.Name}
	tr := engine.NewTracker(fake)

	_, err := tr.Build(context.Background(), &buildctx.BuildContext{BaseImage: "alpine"}, engine.BuildOptions{})
	if !errors.Is(err, engine.ErrBuildFailed) {
		t.Fatalf("Build() error = %v, want ErrBuildFailed", err)
	}
	if len(tr.Images()) != 0 {
		t.Errorf("failed build was recorded: %v", tr.Images())
	}
}

type noRemove struct{ engine.Engine }

func TestTracker_RemoveUnsupported(t *testing.T) {
	t.Parallel()

	tr := engine.NewTracker(noRemove{enginetest.New()})
	if err := tr.Remove(context.Background(), "sha256:abc", false); !errors.Is(err, engine.ErrUnavailable) {
		t.Errorf("Remove() error = %v, want ErrUnavailable", err)
	}
}

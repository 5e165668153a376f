// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"

	"github.com/ansible-docker/ansible-docker/internal/engine"
)

const cleanupTimeout = 2 * time.Minute

// testcontainersAvailable reports whether testcontainers can reach a daemon.
// Provider detection panics on some hosts without one.
func testcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

// RequireEngine returns a tracking engine for integration tests, or skips the
// test when no engine is usable. Every image built through the returned
// engine is force-removed when the test ends.
func RequireEngine(t *testing.T, settings Settings) *engine.Tracker {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !testcontainersAvailable() {
		t.Skip("skipping integration test: testcontainers provider not available")
	}

	kind, err := engine.ParseKind(settings.Engine)
	if err != nil {
		t.Fatalf("ANSIBLE_DOCKER_TEST_ENGINE: %v", err)
	}
	e, err := engine.NewEngine(context.Background(), kind, engine.Options{})
	if err != nil {
		t.Skipf("skipping integration test: no container engine available: %v", err)
	}

	tracker := engine.NewTracker(e)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		for _, id := range tracker.Images() {
			if err := tracker.Remove(ctx, id, true); err != nil {
				t.Logf("warning: failed to remove image %s: %v", id, err)
			}
		}
		tracker.Reset()
		if c, ok := e.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	})
	return tracker
}

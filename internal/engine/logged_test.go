// SPDX-License-Identifier: MPL-2.0

package engine_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/ansible-docker/ansible-docker/internal/buildctx"
	"github.com/ansible-docker/ansible-docker/internal/engine"
	"github.com/ansible-docker/ansible-docker/internal/engine/enginetest"
)

func TestLogged(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})

	fake := enginetest.New()
	fake.TagErrs = map[string]error{"bad:tag": errors.New("refused")}
	e := engine.NewLogged(fake, logger)

	id, err := e.Build(context.Background(), &buildctx.BuildContext{BaseImage: "alpine"}, engine.BuildOptions{NoCache: true})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if err := e.Tag(context.Background(), id, "good:tag"); err != nil {
		t.Fatalf("Tag() error: %v", err)
	}
	if err := e.Tag(context.Background(), id, "bad:tag"); err == nil {
		t.Fatal("Tag(bad:tag) should fail")
	}

	out := buf.String()
	for _, want := range []string{"engine=fake", "built image", "tagged image", "tag failed", "bad:tag", "no_cache=true"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestLogged_InfoHidesDebug(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.InfoLevel})
	e := engine.NewLogged(enginetest.New(), logger)

	if _, err := e.Build(context.Background(), &buildctx.BuildContext{BaseImage: "alpine"}, engine.BuildOptions{}); err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if strings.Contains(buf.String(), "overlays=") {
		t.Errorf("debug record leaked at info level:\n%s", buf.String())
	}
}

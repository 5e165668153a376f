// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ansible-docker/ansible-docker/pkg/platform"
)

// probeTimeout bounds each availability check made for KindAuto.
const probeTimeout = 5 * time.Second

// Options configure NewEngine.
type Options struct {
	// Host overrides the daemon address for the API engine.
	Host string
	// Env holds DOCKER_* style overrides for the engine connection.
	Env map[string]string
}

// ParseKind validates an engine kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindAPI, KindDocker, KindPodman, KindAuto:
		return k, nil
	case "":
		return KindAPI, nil
	default:
		return "", fmt.Errorf("unknown engine %q (want api, docker, podman or auto)", s)
	}
}

// NewEngine creates the engine of the given kind. KindAuto picks the first
// engine that answers, trying the API, then docker, then podman.
func NewEngine(ctx context.Context, kind Kind, opts Options) (Engine, error) {
	switch kind {
	case KindAPI, "":
		return NewAPIEngine(opts.Host, opts.Env)
	case KindDocker, KindPodman:
		return newCLI(string(kind), opts), nil
	case KindAuto:
		return autoDetect(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown engine %q", kind)
	}
}

func newCLI(name string, opts Options) *CLIEngine {
	cliOpts := []CLIOption{WithEnvOverrides(opts.Env)}
	if opts.Host != "" {
		cliOpts = append(cliOpts, WithEnvOverrides(map[string]string{hostEnvVar(name): opts.Host}))
	}
	if st := platform.DetectSandbox(); st != platform.SandboxNone {
		cliOpts = append(cliOpts, WithSandbox(st))
		if cache, err := os.UserCacheDir(); err == nil {
			root := filepath.Join(cache, "ansible-docker")
			if os.MkdirAll(root, 0o755) == nil {
				cliOpts = append(cliOpts, WithContextRoot(root))
			}
		}
	}
	return NewCLIEngine(name, cliOpts...)
}

func hostEnvVar(name string) string {
	if name == string(KindPodman) {
		return "CONTAINER_HOST"
	}
	return "DOCKER_HOST"
}

func autoDetect(ctx context.Context, opts Options) (Engine, error) {
	if api, err := NewAPIEngine(opts.Host, opts.Env); err == nil {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := api.Ping(probeCtx)
		cancel()
		if err == nil {
			return api, nil
		}
		_ = api.Close()
	}

	for _, name := range []string{string(KindDocker), string(KindPodman)} {
		cli := newCLI(name, opts)
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		ok := cli.Available(probeCtx)
		cancel()
		if ok {
			return cli, nil
		}
	}

	return nil, &EngineError{
		Kind:       Unavailable,
		Engine:     string(KindAuto),
		Diagnostic: "no container engine (Docker API, docker or podman) is available on this system",
	}
}

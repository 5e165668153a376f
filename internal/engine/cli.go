// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ansible-docker/ansible-docker/internal/buildctx"
	"github.com/ansible-docker/ansible-docker/pkg/platform"
)

const (
	// KindAPI selects the Docker Engine API.
	KindAPI Kind = "api"
	// KindDocker selects the docker binary.
	KindDocker Kind = "docker"
	// KindPodman selects the podman binary.
	KindPodman Kind = "podman"
	// KindAuto tries the API, then docker, then podman.
	KindAuto Kind = "auto"
)

type (
	// Kind names an engine implementation.
	Kind string

	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// CLIOption configures a CLIEngine.
	CLIOption func(*CLIEngine)

	// CLIEngine drives a docker-compatible binary. Every call runs one process
	// and keeps no state between calls.
	CLIEngine struct {
		name         string
		binaryPath   string
		execCommand  ExecCommandFunc
		sandbox      platform.SandboxType
		envOverrides map[string]string
		// contextRoot is where build contexts are materialized ("" = os temp dir).
		contextRoot string
	}

	// cliInspect is the subset of `image inspect` JSON output we read.
	// docker and podman share these field names.
	cliInspect struct {
		ID       string   `json:"Id"`
		RepoTags []string `json:"RepoTags"`
		Config   struct {
			Entrypoint   []string            `json:"Entrypoint"`
			Cmd          []string            `json:"Cmd"`
			WorkingDir   string              `json:"WorkingDir"`
			ExposedPorts map[string]struct{} `json:"ExposedPorts"`
			Volumes      map[string]struct{} `json:"Volumes"`
			Env          []string            `json:"Env"`
			Labels       map[string]string   `json:"Labels"`
			User         string              `json:"User"`
		} `json:"Config"`
	}
)

// WithExecCommand sets the function used to create commands.
func WithExecCommand(fn ExecCommandFunc) CLIOption {
	return func(e *CLIEngine) {
		e.execCommand = fn
	}
}

// WithBinaryPath overrides the binary found on PATH.
func WithBinaryPath(path string) CLIOption {
	return func(e *CLIEngine) {
		e.binaryPath = path
	}
}

// WithEnvOverrides adds environment variables to every engine command,
// on top of the parent process environment.
func WithEnvOverrides(env map[string]string) CLIOption {
	return func(e *CLIEngine) {
		for k, v := range env {
			e.envOverrides[k] = v
		}
	}
}

// WithSandbox runs the binary on the host through the sandbox's spawn command.
func WithSandbox(st platform.SandboxType) CLIOption {
	return func(e *CLIEngine) {
		e.sandbox = st
	}
}

// WithContextRoot sets where temporary build contexts are written. Inside a
// sandbox this must be a directory the host can see.
func WithContextRoot(dir string) CLIOption {
	return func(e *CLIEngine) {
		e.contextRoot = dir
	}
}

// NewCLIEngine creates an engine for the named binary ("docker" or "podman").
// The binary is looked up on PATH unless WithBinaryPath is given.
func NewCLIEngine(name string, opts ...CLIOption) *CLIEngine {
	e := &CLIEngine{
		name:         name,
		execCommand:  exec.CommandContext,
		envOverrides: map[string]string{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.binaryPath == "" {
		if e.sandbox != platform.SandboxNone {
			// The binary lives on the host; PATH lookup happens there.
			e.binaryPath = name
		} else if path, err := exec.LookPath(name); err == nil {
			e.binaryPath = path
		}
	}
	return e
}

// Name returns the binary name.
func (e *CLIEngine) Name() string { return e.name }

// Available reports whether the binary exists and can reach its daemon or
// storage.
func (e *CLIEngine) Available(ctx context.Context) bool {
	if e.binaryPath == "" {
		return false
	}
	_, err := e.run(ctx, "version")
	return err == nil
}

// BuildArgs returns the arguments for a quiet build of dir.
func (e *CLIEngine) BuildArgs(dir string, opts BuildOptions) []string {
	args := []string{"build", "--quiet"}
	if opts.NoCache {
		args = append(args, "--no-cache")
	}
	if opts.Pull {
		args = append(args, "--pull")
	}
	return append(args, "--file", filepath.Join(dir, buildctx.DockerfileName), dir)
}

// Build materializes bc into a temporary directory and runs a quiet build.
// The last line of standard output is the image ID.
func (e *CLIEngine) Build(ctx context.Context, bc *buildctx.BuildContext, opts BuildOptions) (ImageID, error) {
	if e.binaryPath == "" {
		return "", e.unavailable()
	}

	dir, err := os.MkdirTemp(e.contextRoot, "ansible-docker-context-")
	if err != nil {
		return "", &buildctx.AssemblyError{Kind: buildctx.Materialize, Err: err}
	}
	defer os.RemoveAll(dir)

	if err := bc.Materialize(dir); err != nil {
		return "", err
	}

	out, err := e.run(ctx, e.BuildArgs(dir, opts)...)
	if err != nil {
		return "", e.commandError(BuildFailed, bc.BaseImage, err)
	}

	id := lastLine(out)
	if id == "" {
		return "", &EngineError{Kind: BuildFailed, Engine: e.name, Ref: bc.BaseImage, Diagnostic: "build printed no image ID"}
	}
	fmt.Fprintf(opts.output(), "built %s\n", id)
	return ImageID(id), nil
}

// Tag runs `tag <id> <tag>`.
func (e *CLIEngine) Tag(ctx context.Context, id ImageID, tag string) error {
	if e.binaryPath == "" {
		return e.unavailable()
	}
	if _, err := e.run(ctx, "tag", string(id), tag); err != nil {
		return e.commandError(TagFailed, tag, err)
	}
	return nil
}

// Inspect runs `image inspect <id>` and decodes the first result.
func (e *CLIEngine) Inspect(ctx context.Context, id ImageID) (*ImageMetadata, error) {
	if e.binaryPath == "" {
		return nil, e.unavailable()
	}
	out, err := e.run(ctx, "image", "inspect", string(id))
	if err != nil {
		return nil, e.commandError(NotFound, string(id), err)
	}

	var results []cliInspect
	if err := json.Unmarshal(out, &results); err != nil {
		return nil, &EngineError{Kind: Unavailable, Engine: e.name, Ref: string(id), Err: fmt.Errorf("decode inspect output: %w", err)}
	}
	if len(results) == 0 {
		return nil, &EngineError{Kind: NotFound, Engine: e.name, Ref: string(id)}
	}

	r := results[0]
	return &ImageMetadata{
		ID:           ImageID(r.ID),
		RepoTags:     append([]string{}, r.RepoTags...),
		Entrypoint:   r.Config.Entrypoint,
		Cmd:          r.Config.Cmd,
		WorkingDir:   r.Config.WorkingDir,
		ExposedPorts: r.Config.ExposedPorts,
		Volumes:      r.Config.Volumes,
		Env:          r.Config.Env,
		Labels:       r.Config.Labels,
		User:         r.Config.User,
	}, nil
}

// Remove runs `rmi [--force] <id>`.
func (e *CLIEngine) Remove(ctx context.Context, id ImageID, force bool) error {
	if e.binaryPath == "" {
		return e.unavailable()
	}
	args := []string{"rmi"}
	if force {
		args = append(args, "--force")
	}
	if _, err := e.run(ctx, append(args, string(id))...); err != nil {
		return e.commandError(NotFound, string(id), err)
	}
	return nil
}

// CreateCommand builds the exec.Cmd for args, applying sandbox spawning and
// environment overrides.
func (e *CLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	name, argv := platform.HostCommand(e.sandbox, e.binaryPath, args...)
	cmd := e.execCommand(ctx, name, argv...)
	if len(e.envOverrides) > 0 {
		// A non-nil Env replaces the inherited environment, so start from it.
		cmd.Env = os.Environ()
		for k, v := range e.envOverrides {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	return cmd
}

// run executes one command and returns its standard output. Standard error is
// captured for diagnostics.
func (e *CLIEngine) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := e.CreateCommand(ctx, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &commandFailure{args: args, stderr: strings.TrimSpace(stderr.String()), err: err}
	}
	return stdout.Bytes(), nil
}

type commandFailure struct {
	args   []string
	stderr string
	err    error
}

func (f *commandFailure) Error() string {
	return fmt.Sprintf("command %v failed: %v", f.args, f.err)
}

func (f *commandFailure) Unwrap() error { return f.err }

func (e *CLIEngine) commandError(kind EngineErrorKind, ref string, err error) error {
	var failure *commandFailure
	if !errors.As(err, &failure) {
		return &EngineError{Kind: kind, Engine: e.name, Ref: ref, Err: err}
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(err, exec.ErrNotFound), !errors.As(err, &exitErr) && !isContextErr(err):
		// The process never ran.
		kind = Unavailable
	case kind == NotFound && !looksMissing(failure.stderr):
		kind = Unavailable
	case kind == TagFailed && looksMissing(failure.stderr):
		kind = NotFound
	}
	return &EngineError{Kind: kind, Engine: e.name, Ref: ref, Diagnostic: failure.stderr, Err: err}
}

func (e *CLIEngine) unavailable() error {
	return &EngineError{Kind: Unavailable, Engine: e.name, Err: fmt.Errorf("%s: %w", e.name, exec.ErrNotFound)}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func looksMissing(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "no such image") || strings.Contains(s, "image not known") ||
		strings.Contains(s, "not found")
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

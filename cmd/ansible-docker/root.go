// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootOptions holds the flag values of one invocation.
type rootOptions struct {
	tags       []string
	engine     string
	host       string
	settings   string
	envFile    string
	noCache    bool
	pull       bool
	dryRun     bool
	provenance bool
	verbose    bool
}

// NewRootCommand creates the ansible-docker command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "ansible-docker [flags] [-t TAG]... <build-file>",
		Short: "Build one container image from a declarative build file",
		Long: TitleStyle.Render("ansible-docker") + SubtitleStyle.Render(" - build one container image from a declarative build file") + `

The build file (YAML, JSON, TOML or CUE) names a base image and the files,
ports, volumes, entrypoint and command the image should have. ansible-docker
turns it into a single image build and applies every requested tag to that
one image.

` + SubtitleStyle.Render("Exit codes:") + `
  0    success
  2    invalid build file or settings
  3    build context could not be assembled
  4    container engine error
  130  canceled
  1    anything else`,
		Example: `  # Build and tag
  ansible-docker -t web:1.0 -t web:latest build.yaml

  # Show the generated Dockerfile without building
  ansible-docker --dry-run build.yaml

  # Build with podman, without cache, labeling the image with git provenance
  ansible-docker --engine podman --no-cache --provenance build.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts, args[0])
		},
	}

	flags := root.Flags()
	flags.StringArrayVarP(&opts.tags, "tag", "t", nil, "tag to apply to the built image (repeatable, applied in order)")
	flags.StringVar(&opts.engine, "engine", "", "container engine: api, docker, podman or auto (default from settings, \"api\")")
	flags.StringVar(&opts.host, "host", "", "engine daemon address, e.g. unix:///var/run/docker.sock")
	flags.String("log-level", "", "log level: debug, info, warn or error (default from settings, \"info\")")
	flags.Duration("build-timeout", 0, "abort the build and tagging after this long (default from settings, 30m)")
	flags.StringVar(&opts.envFile, "env-file", "", "dotenv file of engine environment overrides (DOCKER_HOST, DOCKER_CERT_PATH, ...)")
	flags.BoolVar(&opts.noCache, "no-cache", false, "do not use the engine's build cache")
	flags.BoolVar(&opts.pull, "pull", false, "always pull a newer base image")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "print the generated Dockerfile and exit without building")
	flags.BoolVar(&opts.provenance, "provenance", false, "label the image with the git revision and source of the build file")

	root.PersistentFlags().StringVar(&opts.settings, "settings", "", "settings file (default is $HOME/.config/ansible-docker/settings.cue)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")

	root.AddCommand(newSettingsCommand(opts))
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Main runs the CLI and returns the process exit code.
func Main() int {
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
		fang.WithErrorHandler(errorHandler),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return int(exitErr.Code)
		}
		return 1
	}
	return 0
}

// errorHandler prints errors fang receives, except ExitErrors, which
// renderFailure has already printed.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// Execute runs the CLI and exits the process. It is called by main.main().
func Execute() {
	os.Exit(Main())
}

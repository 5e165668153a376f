// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ansible-docker/ansible-docker/internal/config"
	"github.com/ansible-docker/ansible-docker/internal/engine"
	"github.com/ansible-docker/ansible-docker/internal/issue"
	"github.com/ansible-docker/ansible-docker/internal/orchestrator"
)

func runBuild(cmd *cobra.Command, opts *rootOptions, path string) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	ctx := cmd.Context()
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, _, err := config.Load(ctx, config.LoadOptions{SettingsPath: opts.settings, Flags: cmd.Flags()})
	if err != nil {
		return renderFailure(stderr, err, opts.verbose)
	}

	logger := newLogger(stderr, cfg.LogLevel, opts.verbose)

	var eng engine.Engine
	if !opts.dryRun {
		e, err := openEngine(ctx, cfg)
		if err != nil {
			return renderFailure(stderr, err, opts.verbose)
		}
		if c, ok := e.(io.Closer); ok {
			defer c.Close()
		}
		eng = engine.NewLogged(e, logger)
	}

	orchOpts := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithObserver(orchestrator.LogObserver(logger)),
	}
	if cfg.Provenance {
		orchOpts = append(orchOpts, orchestrator.WithProvenance())
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.BuildTimeout)
	defer cancel()

	req := orchestrator.Request{
		ConfigPath: path,
		Tags:       opts.tags,
		NoCache:    opts.noCache,
		Pull:       opts.pull,
		DryRun:     opts.dryRun,
	}
	if opts.verbose {
		req.Output = stderr
	}

	res, err := orchestrator.New(eng, orchOpts...).Run(runCtx, req)
	if err != nil {
		return renderFailure(stderr, err, opts.verbose)
	}

	if opts.dryRun {
		_, err := stdout.Write(res.Dockerfile)
		return err
	}
	renderResult(stdout, res)
	return nil
}

// openEngine creates the configured engine. Engine environment overrides
// come from the settings' env file.
func openEngine(ctx context.Context, cfg *config.Config) (engine.Engine, error) {
	var env map[string]string
	if cfg.EnvFile != "" {
		var err error
		if env, err = godotenv.Read(cfg.EnvFile); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("read engine environment").
				WithResource(cfg.EnvFile).
				WithSuggestion("Check that the --env-file path exists and uses KEY=VALUE lines").
				WithIssue(issue.SettingsInvalidId).
				Wrap(fmt.Errorf("%w: %w", config.ErrInvalidSettings, err)).
				BuildError()
		}
	}

	kind, err := engine.ParseKind(string(cfg.Engine))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidSettings, err)
	}
	return engine.NewEngine(ctx, kind, engine.Options{Host: cfg.Host, Env: env})
}

func newLogger(w io.Writer, level string, verbose bool) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	if verbose {
		lvl = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{Prefix: "ansible-docker", Level: lvl})
}

func renderResult(w io.Writer, res *orchestrator.Result) {
	fmt.Fprintf(w, "%s built %s\n", SuccessStyle.Render("✓"), RefStyle.Render(string(res.ImageID)))
	for _, tag := range res.AppliedTags {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("tagged"), RefStyle.Render(tag))
	}
}

// renderFailure prints err and returns the ExitError carrying its exit code.
func renderFailure(w io.Writer, err error, verbose bool) error {
	code, issueID, msg := classifyError(err, verbose)
	fmt.Fprint(w, msg)

	var runErr *orchestrator.Error
	if errors.As(err, &runErr) && runErr.Partial() {
		fmt.Fprintf(w, "%s image %s was built", WarningStyle.Render("!"), RefStyle.Render(string(runErr.ImageID)))
		if len(runErr.AppliedTags) > 0 {
			fmt.Fprintf(w, " and tagged %v", runErr.AppliedTags)
		}
		fmt.Fprintln(w, "; it was not removed")
	}

	if verbose && issueID != 0 {
		if rendered, renderErr := issue.Get(issueID).Render("dark"); renderErr == nil {
			fmt.Fprint(w, rendered)
		}
	}
	return &ExitError{Code: code, Err: err}
}

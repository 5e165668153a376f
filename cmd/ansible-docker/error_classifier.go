// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/ansible-docker/ansible-docker/internal/buildctx"
	"github.com/ansible-docker/ansible-docker/internal/buildspec"
	"github.com/ansible-docker/ansible-docker/internal/config"
	"github.com/ansible-docker/ansible-docker/internal/engine"
	"github.com/ansible-docker/ansible-docker/internal/issue"
	"github.com/ansible-docker/ansible-docker/internal/orchestrator"
	"github.com/ansible-docker/ansible-docker/pkg/types"
)

// suggestions holds the short hints printed under an error, per issue.
var suggestions = map[issue.Id][]string{
	issue.BuildFileNotFoundId:     {"Check the build file path", "Paths are relative to the current directory"},
	issue.BuildFileSyntaxId:       {"Check the file syntax; the format is chosen by extension (.yaml, .yml, .json, .toml, .cue)"},
	issue.BuildFileInvalidId:      {"Compare the reported field with the build file reference (run with -v)"},
	issue.BaseImageMissingId:      {"Add base_image, e.g. base_image: python:3.12-slim"},
	issue.OverlaySourceNotFoundId: {"files[].src is resolved relative to the build file's directory", "Check that the file exists and is readable"},
	issue.InvalidTagId:            {"Tags look like name, name:tag or registry/name:tag", "Names must be lowercase; digests are not accepted"},
	issue.EngineUnavailableId:     {"Check that the Docker daemon or podman is running", "Select another engine with --engine or point to a daemon with --host"},
	issue.BuildFailedId:           {"Read the engine output above for the failing step", "Retry with -v to see the full build output"},
	issue.TagFailedId:             {"The image was built; tag it by hand or rerun the build"},
	issue.SettingsInvalidId:       {"Print the effective settings with 'ansible-docker settings'"},
}

// classifyError maps a failure to its exit code and issue catalog entry and
// returns a styled message for CLI rendering.
func classifyError(err error, verbose bool) (code types.ExitCode, issueID issue.Id, styledMsg string) {
	code = exitCode(err)
	issueID = issueFor(err)

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		ae = actionable(err, issueID)
	}
	return code, issueID, fmt.Sprintf("\n%s %s\n\n", ErrorStyle.Render("Error:"), ae.Format(verbose))
}

func exitCode(err error) types.ExitCode {
	var runErr *orchestrator.Error
	switch {
	case errors.As(err, &runErr):
		return runErr.Class.ExitCode()
	case errors.Is(err, context.Canceled):
		return types.ExitCanceled
	case errors.Is(err, config.ErrInvalidSettings), errors.Is(err, buildspec.ErrConfig):
		return types.ExitConfig
	case errors.Is(err, buildctx.ErrAssembly):
		return types.ExitAssembly
	case errors.Is(err, engine.ErrEngine):
		return types.ExitEngine
	default:
		return types.ExitFailure
	}
}

func issueFor(err error) issue.Id {
	var runErr *orchestrator.Error
	if errors.As(err, &runErr) && runErr.Class == orchestrator.ClassCanceled {
		return issue.CanceledId
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return issue.CanceledId
	case errors.Is(err, config.ErrInvalidSettings):
		return issue.SettingsInvalidId
	case errors.Is(err, buildspec.ErrNotFound):
		return issue.BuildFileNotFoundId
	case errors.Is(err, buildspec.ErrParse):
		return issue.BuildFileSyntaxId
	case errors.Is(err, buildspec.ErrMissingField):
		return issue.BaseImageMissingId
	case errors.Is(err, buildspec.ErrInvalidTag):
		return issue.InvalidTagId
	case errors.Is(err, buildspec.ErrConfig):
		return issue.BuildFileInvalidId
	case errors.Is(err, buildctx.ErrSourceNotFound):
		return issue.OverlaySourceNotFoundId
	case errors.Is(err, buildctx.ErrAssembly):
		return issue.BuildFileInvalidId
	case errors.Is(err, engine.ErrUnavailable):
		return issue.EngineUnavailableId
	case errors.Is(err, engine.ErrTagFailed), errors.Is(err, engine.ErrImageNotFound):
		return issue.TagFailedId
	case errors.Is(err, engine.ErrBuildFailed):
		return issue.BuildFailedId
	default:
		return 0
	}
}

// actionable describes err for display. Orchestrator errors are unwrapped so
// the message leads with the failing operation instead of the pipeline state.
func actionable(err error, id issue.Id) *issue.ActionableError {
	cause := err
	var runErr *orchestrator.Error
	if errors.As(err, &runErr) {
		cause = runErr.Err
	}

	operation := "build image"
	switch exitCode(err) {
	case types.ExitConfig:
		operation = "load build file"
	case types.ExitAssembly:
		operation = "assemble build context"
	case types.ExitCanceled:
		operation = "finish build"
	}
	if id == issue.TagFailedId {
		operation = "tag image"
	}
	if id == issue.EngineUnavailableId {
		operation = "reach container engine"
	}

	return issue.NewErrorContext().
		WithOperation(operation).
		WithSuggestions(suggestions[id]...).
		WithIssue(id).
		Wrap(cause).
		Build()
}

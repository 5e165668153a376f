// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "load build file"},
			expected: "failed to load build file",
		},
		{
			name:     "operation with resource",
			err:      &ActionableError{Operation: "load build file", Resource: "./build.yaml"},
			expected: "failed to load build file: ./build.yaml",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "tag image",
				Resource:  "web:1.0",
				Cause:     errors.New("no such image"),
			},
			expected: "failed to tag image: web:1.0: no such image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_ErrorsIs(t *testing.T) {
	t.Parallel()

	cause := errors.New("specific error")
	wrapped := &ActionableError{Operation: "build image", Cause: cause}

	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if (&ActionableError{Operation: "x"}).Unwrap() != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	inner := errors.New("connection refused")
	err := &ActionableError{
		Operation:   "build image",
		Suggestions: []string{"Start the Docker daemon", "Try --engine podman"},
		Cause:       errors.Join(errors.New("engine unavailable"), inner),
	}

	plain := err.Format(false)
	for _, want := range []string{"failed to build image", "• Start the Docker daemon", "• Try --engine podman"} {
		if !strings.Contains(plain, want) {
			t.Errorf("Format(false) missing %q:\n%s", want, plain)
		}
	}
	if strings.Contains(plain, "Error chain") {
		t.Error("Format(false) should not include the error chain")
	}

	if verbose := err.Format(true); !strings.Contains(verbose, "Error chain:") || !strings.Contains(verbose, "1. ") {
		t.Errorf("Format(true) should include the error chain:\n%s", verbose)
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	ae := NewErrorContext().
		WithOperation("load build file").
		WithResource("build.toml").
		WithSuggestion("first").
		WithSuggestions("second", "third").
		WithIssue(BuildFileSyntaxId).
		Wrap(cause).
		Build()

	if ae == nil {
		t.Fatal("Build() returned nil")
	}
	if ae.Resource != "build.toml" || ae.Issue != BuildFileSyntaxId || !errors.Is(ae, cause) {
		t.Errorf("Build() = %+v", ae)
	}
	if len(ae.Suggestions) != 3 || !ae.HasSuggestions() {
		t.Errorf("Suggestions = %v, want 3 entries", ae.Suggestions)
	}
}

func TestErrorContext_BuildWithoutOperation(t *testing.T) {
	t.Parallel()

	if ae := NewErrorContext().WithResource("x").Build(); ae != nil {
		t.Errorf("Build() without operation = %v, want nil", ae)
	}
	if err := NewErrorContext().BuildError(); err != nil {
		t.Errorf("BuildError() without operation = %v, want nil", err)
	}
}

func TestActionableError_FormatSuggestions(t *testing.T) {
	t.Parallel()

	bare := &ActionableError{Operation: "build image", Cause: errors.New("step 2 failed")}
	if got := bare.Format(false); got != "failed to build image: step 2 failed" {
		t.Errorf("Format() without suggestions = %q", got)
	}

	hinted := &ActionableError{Operation: "build image", Suggestions: []string{"Retry with -v"}}
	if got := hinted.Format(false); !strings.Contains(got, "\n\n  • Retry with -v") {
		t.Errorf("Format() = %q, want the suggestion listed", got)
	}
}

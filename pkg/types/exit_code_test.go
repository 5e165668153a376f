// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"testing"
)

func TestExitCodeValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		value     ExitCode
		wantValid bool
	}{
		{name: "zero is valid", value: 0, wantValid: true},
		{name: "config is valid", value: ExitConfig, wantValid: true},
		{name: "canceled is valid", value: ExitCanceled, wantValid: true},
		{name: "255 is valid", value: 255, wantValid: true},
		{name: "negative is invalid", value: -1, wantValid: false},
		{name: "256 is invalid", value: 256, wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.value.Validate()
			if tt.wantValid {
				if err != nil {
					t.Errorf("ExitCode(%d).Validate() returned error for valid value: %v", tt.value, err)
				}
				return
			}
			if err == nil {
				t.Fatal("ExitCode.Validate() returned nil for invalid value")
			}
			if !errors.Is(err, ErrInvalidExitCode) {
				t.Errorf("error does not wrap ErrInvalidExitCode: %v", err)
			}
		})
	}
}

func TestExitCodeClassesAreDistinct(t *testing.T) {
	t.Parallel()

	codes := []ExitCode{ExitSuccess, ExitFailure, ExitConfig, ExitAssembly, ExitEngine, ExitCanceled}
	seen := make(map[ExitCode]bool)
	for _, c := range codes {
		if seen[c] {
			t.Errorf("duplicate exit code %d", c)
		}
		seen[c] = true
	}
	if !ExitSuccess.IsSuccess() || ExitEngine.IsSuccess() {
		t.Error("IsSuccess() should only hold for ExitSuccess")
	}
}

func TestExitCodeString(t *testing.T) {
	t.Parallel()

	if got := ExitCanceled.String(); got != "130" {
		t.Errorf("ExitCanceled.String() = %q, want %q", got, "130")
	}
}

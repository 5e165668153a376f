// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/ansible-docker/ansible-docker/internal/issue"
)

func writeSettings(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, path, err := Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want none", path)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("Load() = %+v, want defaults %+v", cfg, DefaultConfig())
	}
}

func TestLoad_DefaultSettingsFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := writeSettings(t, dir, SettingsFileName, `
engine:        "podman"
build_timeout: "1h30m"
provenance:    true
`)

	cfg, path, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if cfg.Engine != EnginePodman || cfg.BuildTimeout != 90*time.Minute || !cfg.Provenance {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default kept", cfg.LogLevel)
	}
}

func TestLoad_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "yaml", file: "s.yaml", content: "engine: docker\nhost: tcp://build:2376\n"},
		{name: "toml", file: "s.toml", content: "engine = \"docker\"\nhost = \"tcp://build:2376\"\n"},
		{name: "json", file: "s.json", content: `{"engine": "docker", "host": "tcp://build:2376"}`},
		{name: "cue", file: "s.cue", content: "engine: \"docker\"\nhost: \"tcp://build:2376\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeSettings(t, t.TempDir(), tt.file, tt.content)
			cfg, _, err := Load(context.Background(), LoadOptions{SettingsPath: path})
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if cfg.Engine != EngineDocker || cfg.Host != "tcp://build:2376" {
				t.Errorf("Load() = %+v", cfg)
			}
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "unknown engine", file: "s.cue", content: `engine: "containerd"`},
		{name: "unknown key", file: "s.cue", content: `colour: "blue"`},
		{name: "bad duration", file: "s.yaml", content: "build_timeout: soon\n"},
		{name: "wrong type", file: "s.json", content: `{"provenance": "yes"}`},
		{name: "syntax", file: "s.cue", content: `engine: `},
		{name: "yaml syntax", file: "s.yaml", content: "engine: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeSettings(t, t.TempDir(), tt.file, tt.content)
			_, _, err := Load(context.Background(), LoadOptions{SettingsPath: path})
			if !errors.Is(err, ErrInvalidSettings) {
				t.Fatalf("Load() error = %v, want ErrInvalidSettings", err)
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) || ae.Issue != issue.SettingsInvalidId {
				t.Errorf("Load() error should be actionable with the settings issue, got %#v", err)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, _, err := Load(context.Background(), LoadOptions{SettingsPath: filepath.Join(t.TempDir(), "nope.cue")})
	if !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("Load() error = %v, want ErrInvalidSettings", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

// Not parallel: t.Setenv.
func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeSettings(t, dir, SettingsFileName, `engine: "docker"`)

	t.Setenv("ANSIBLE_DOCKER_ENGINE", "auto")
	t.Setenv("ANSIBLE_DOCKER_LOG_LEVEL", "debug")
	t.Setenv("ANSIBLE_DOCKER_BUILD_TIMEOUT", "5m")

	cfg, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Engine != EngineAuto || cfg.LogLevel != "debug" || cfg.BuildTimeout != 5*time.Minute {
		t.Errorf("Load() = %+v", cfg)
	}
}

// Not parallel: t.Setenv.
func TestLoad_EnvValidated(t *testing.T) {
	t.Setenv("ANSIBLE_DOCKER_ENGINE", "rkt")

	_, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	var settingErr *InvalidSettingError
	if !errors.As(err, &settingErr) || settingErr.Key != "engine" {
		t.Fatalf("Load() error = %v, want InvalidSettingError for engine", err)
	}
}

func TestLoad_Flags(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeSettings(t, dir, SettingsFileName, "engine: \"docker\"\nhost: \"tcp://file:2376\"\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("engine", "api", "")
	flags.String("host", "", "")
	flags.Bool("provenance", false, "")
	flags.String("log-level", "", "")
	flags.Duration("build-timeout", 0, "")
	if err := flags.Parse([]string{"--engine", "podman", "--log-level", "debug", "--build-timeout", "5m"}); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir, Flags: flags})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Engine != EnginePodman {
		t.Errorf("Engine = %q, want flag value", cfg.Engine)
	}
	if cfg.Host != "tcp://file:2376" {
		t.Errorf("Host = %q, unset flag must not override the file", cfg.Host)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want flag value", cfg.LogLevel)
	}
	if cfg.BuildTimeout != 5*time.Minute {
		t.Errorf("BuildTimeout = %v, want 5m", cfg.BuildTimeout)
	}
}

func TestLoad_FlagValidated(t *testing.T) {
	t.Parallel()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "", "")
	if err := flags.Parse([]string{"--log-level", "loud"}); err != nil {
		t.Fatal(err)
	}

	_, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir(), Flags: flags})
	if !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("Load() error = %v, want ErrInvalidSettings", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	want := &Config{
		Engine:       EngineAuto,
		Host:         "unix:///run/podman/podman.sock",
		LogLevel:     "warn",
		BuildTimeout: 45 * time.Minute,
		Provenance:   true,
		EnvFile:      "/etc/ansible-docker/engine.env",
	}
	path := writeSettings(t, t.TempDir(), "settings.cue", GenerateCUE(want))

	got, _, err := Load(context.Background(), LoadOptions{SettingsPath: path})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if *got != *want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error: %v", err)
	}

	bad := &Config{Engine: "x", LogLevel: "loud", BuildTimeout: 0}
	err := bad.Validate()
	if !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("Validate() error = %v", err)
	}
	for _, key := range []string{"engine", "log_level", "build_timeout"} {
		found := false
		for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
			var se *InvalidSettingError
			if errors.As(e, &se) && se.Key == key {
				found = true
			}
		}
		if !found {
			t.Errorf("Validate() did not report %s", key)
		}
	}
}

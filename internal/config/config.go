// SPDX-License-Identifier: MPL-2.0

package config

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ansible-docker/ansible-docker/internal/issue"
	"github.com/ansible-docker/ansible-docker/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "ansible-docker"
	// SettingsFileName is the default settings file name inside ConfigDir.
	SettingsFileName = "settings.cue"
	// EnvPrefix prefixes environment overrides, e.g. ANSIBLE_DOCKER_ENGINE.
	EnvPrefix = "ANSIBLE_DOCKER"
)

//go:embed settings_schema.cue
var settingsSchema []byte

// flagKeys maps command-line flag names to setting keys.
var flagKeys = map[string]string{
	"engine":        "engine",
	"host":          "host",
	"log-level":     "log_level",
	"build-timeout": "build_timeout",
	"provenance":    "provenance",
	"env-file":      "env_file",
}

// LoadOptions defines explicit settings inputs.
type LoadOptions struct {
	// SettingsPath forces loading from a specific file when set.
	SettingsPath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
	// Flags are bound to their settings; only flags the user set take effect.
	Flags *pflag.FlagSet
}

// ConfigDir returns the ansible-docker configuration directory: %APPDATA% on
// Windows, ~/Library/Application Support on macOS and $XDG_CONFIG_HOME
// (defaulting to ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var dir string
	switch runtime.GOOS {
	case "windows":
		dir = os.Getenv("APPDATA")
		if dir == "" {
			dir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, "Library", "Application Support")
	default:
		dir = os.Getenv("XDG_CONFIG_HOME")
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			dir = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(dir, AppName), nil
}

// Load resolves the settings. It returns the settings and the path of the file
// they were read from ("" when no file was used).
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load settings canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("engine", string(defaults.Engine))
	v.SetDefault("host", defaults.Host)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("build_timeout", defaults.BuildTimeout.String())
	v.SetDefault("provenance", defaults.Provenance)
	v.SetDefault("env_file", defaults.EnvFile)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	path, err := settingsPath(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := loadFileIntoViper(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load settings").
				WithResource(path).
				WithSuggestion("Check the file syntax").
				WithSuggestion("Keys allowed: engine, host, log_level, build_timeout, provenance, env_file").
				WithIssue(issue.SettingsInvalidId).
				Wrap(fmt.Errorf("%w: %w", ErrInvalidSettings, err)).
				BuildError()
		}
	}

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, "", fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("load settings").
			WithIssue(issue.SettingsInvalidId).
			Wrap(fmt.Errorf("%w: %w", ErrInvalidSettings, err)).
			BuildError()
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate settings").
			WithResource(path).
			WithSuggestion("Check ANSIBLE_DOCKER_* environment variables and command-line flags").
			WithIssue(issue.SettingsInvalidId).
			Wrap(err).
			BuildError()
	}
	return &cfg, path, nil
}

// settingsPath returns the settings file to read, or "" for none. An explicit
// path must exist; the default one is optional.
func settingsPath(opts LoadOptions) (string, error) {
	if opts.SettingsPath != "" {
		if !fileExists(opts.SettingsPath) {
			return "", issue.NewErrorContext().
				WithOperation("load settings").
				WithResource(opts.SettingsPath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				WithIssue(issue.SettingsInvalidId).
				Wrap(fmt.Errorf("%w: settings file not found: %s", ErrInvalidSettings, opts.SettingsPath)).
				BuildError()
		}
		return opts.SettingsPath, nil
	}

	dir := opts.ConfigDirPath
	if dir == "" {
		var err error
		if dir, err = ConfigDir(); err != nil {
			// No home directory means no default settings file.
			return "", nil //nolint:nilerr // defaults apply
		}
	}
	if p := filepath.Join(dir, SettingsFileName); fileExists(p) {
		return p, nil
	}
	return "", nil
}

// loadFileIntoViper validates a settings file against #Settings and merges it
// into v. Non-CUE files are read by viper first and validated as JSON.
func loadFileIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}

	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "cue" {
		if data, err = viaViper(data, ext); err != nil {
			return err
		}
	}

	value, err := cueutil.Unify(settingsSchema, data, "#Settings",
		cueutil.WithFilename(path), cueutil.WithConcrete(false))
	if err != nil {
		return err
	}
	settings, err := cueutil.DecodeMap(value, path)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(settings); err != nil {
		return fmt.Errorf("failed to merge settings: %w", err)
	}
	return nil
}

// viaViper parses YAML, TOML or JSON with viper's own codecs and re-encodes
// the result as JSON for schema validation.
func viaViper(data []byte, ext string) ([]byte, error) {
	fv := viper.New()
	fv.SetConfigType(ext)
	if err := fv.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %w", cueutil.ErrSyntax, err)
	}
	out, err := json.Marshal(fv.AllSettings())
	if err != nil {
		return nil, errors.New("settings are not representable as JSON")
	}
	return out, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// GenerateCUE renders cfg as a settings file.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// ansible-docker settings\n\n")
	fmt.Fprintf(&sb, "engine:        %q\n", cfg.Engine)
	fmt.Fprintf(&sb, "host:          %q\n", cfg.Host)
	fmt.Fprintf(&sb, "log_level:     %q\n", cfg.LogLevel)
	fmt.Fprintf(&sb, "build_timeout: %q\n", cfg.BuildTimeout.String())
	fmt.Fprintf(&sb, "provenance:    %v\n", cfg.Provenance)
	fmt.Fprintf(&sb, "env_file:      %q\n", cfg.EnvFile)

	return sb.String()
}

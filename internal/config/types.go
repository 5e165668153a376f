// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

const (
	// EngineAPI selects the Docker Engine API.
	EngineAPI EngineName = "api"
	// EngineDocker selects the docker binary.
	EngineDocker EngineName = "docker"
	// EnginePodman selects the podman binary.
	EnginePodman EngineName = "podman"
	// EngineAuto picks the first available engine.
	EngineAuto EngineName = "auto"

	// DefaultBuildTimeout bounds one build and its tagging.
	DefaultBuildTimeout = 30 * time.Minute
)

var (
	// ErrInvalidSettings is wrapped by every settings validation error.
	ErrInvalidSettings = errors.New("invalid settings")

	validEngines   = []EngineName{EngineAPI, EngineDocker, EnginePodman, EngineAuto}
	validLogLevels = []string{"debug", "info", "warn", "error"}
)

type (
	// EngineName names a container engine implementation.
	EngineName string

	// Config holds the tool settings.
	Config struct {
		Engine       EngineName    `json:"engine" mapstructure:"engine"`
		Host         string        `json:"host" mapstructure:"host"`
		LogLevel     string        `json:"log_level" mapstructure:"log_level"`
		BuildTimeout time.Duration `json:"build_timeout" mapstructure:"build_timeout"`
		Provenance   bool          `json:"provenance" mapstructure:"provenance"`
		// EnvFile is a dotenv file of engine environment overrides.
		EnvFile string `json:"env_file" mapstructure:"env_file"`
	}

	// InvalidSettingError describes one rejected setting.
	InvalidSettingError struct {
		Key   string
		Value any
		Want  string
	}
)

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Engine:       EngineAPI,
		LogLevel:     "info",
		BuildTimeout: DefaultBuildTimeout,
	}
}

// Validate checks values that may have bypassed the schema, e.g. from the
// environment or flags.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(validEngines, c.Engine) {
		errs = append(errs, &InvalidSettingError{Key: "engine", Value: c.Engine, Want: "api, docker, podman or auto"})
	}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		errs = append(errs, &InvalidSettingError{Key: "log_level", Value: c.LogLevel, Want: "debug, info, warn or error"})
	}
	if c.BuildTimeout <= 0 {
		errs = append(errs, &InvalidSettingError{Key: "build_timeout", Value: c.BuildTimeout, Want: "a positive duration"})
	}
	return errors.Join(errs...)
}

func (e *InvalidSettingError) Error() string {
	return fmt.Sprintf("%s: %v is not valid (want %s)", e.Key, e.Value, e.Want)
}

// Unwrap returns ErrInvalidSettings.
func (e *InvalidSettingError) Unwrap() error { return ErrInvalidSettings }

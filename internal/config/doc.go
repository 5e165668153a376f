// SPDX-License-Identifier: MPL-2.0

// Package config loads ansible-docker's own settings using Viper.
//
// Settings come, lowest precedence first, from built-in defaults, a settings
// file, ANSIBLE_DOCKER_* environment variables and command-line flags. The
// settings file is ~/.config/ansible-docker/settings.cue (or the platform
// equivalent) unless --settings names one explicitly. CUE, YAML, TOML and JSON
// files are all validated against the embedded #Settings schema.
package config

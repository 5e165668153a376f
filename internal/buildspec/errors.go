// SPDX-License-Identifier: MPL-2.0

package buildspec

import (
	"errors"
	"fmt"
)

const (
	// NotFound means the build file does not exist or is not a regular file.
	NotFound ConfigErrorKind = iota + 1
	// ParseError means the file content is not well-formed for its format.
	ParseError
	// MissingField means a required field is absent or empty.
	MissingField
	// InvalidField means a field has the wrong type or an invalid value.
	InvalidField
)

var (
	// ErrConfig is wrapped by every ConfigError.
	ErrConfig = errors.New("build file error")

	// ErrNotFound is the sentinel for NotFound errors.
	ErrNotFound = errors.New("build file not found")
	// ErrParse is the sentinel for ParseError errors.
	ErrParse = errors.New("build file parse error")
	// ErrMissingField is the sentinel for MissingField errors.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidField is the sentinel for InvalidField errors.
	ErrInvalidField = errors.New("invalid field")
)

type (
	// ConfigErrorKind classifies a ConfigError.
	ConfigErrorKind int

	// ConfigError is returned when a build file cannot be loaded.
	// It wraps ErrConfig, the sentinel of its Kind, and the underlying cause.
	ConfigError struct {
		Kind ConfigErrorKind
		// Path is the build file path as given by the caller.
		Path string
		// Field is the offending key for MissingField and InvalidField, when known.
		Field string
		Err   error
	}
)

func (k ConfigErrorKind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case ParseError:
		return "parse error"
	case MissingField:
		return "missing field"
	case InvalidField:
		return "invalid field"
	default:
		return fmt.Sprintf("ConfigErrorKind(%d)", int(k))
	}
}

func (k ConfigErrorKind) sentinel() error {
	switch k {
	case NotFound:
		return ErrNotFound
	case ParseError:
		return ErrParse
	case MissingField:
		return ErrMissingField
	default:
		return ErrInvalidField
	}
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := e.Kind.String()
	if e.Field != "" {
		msg += " " + e.Field
	}
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes ErrConfig, the kind sentinel and the cause to errors.Is/As.
func (e *ConfigError) Unwrap() []error {
	errs := []error{ErrConfig, e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func invalidField(path, field string, err error) *ConfigError {
	return &ConfigError{Kind: InvalidField, Path: path, Field: field, Err: err}
}

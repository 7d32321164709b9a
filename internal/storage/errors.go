// Package storage provides shared plumbing for pluggable backends: config
// map helpers, configuration errors and a named factory registry.
package storage

import "fmt"

// ConfigError represents a configuration error for a backend.
type ConfigError struct {
	Backend string
	Field   string
	Value   string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	prefix := e.Backend
	if prefix == "" {
		prefix = "config"
	}
	switch {
	case e.Field == "":
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	case e.Value == "":
		return fmt.Sprintf("%s: %s: %s", prefix, e.Field, e.Message)
	default:
		return fmt.Sprintf("%s: %s=%q: %s", prefix, e.Field, e.Value, e.Message)
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new ConfigError for a field validation failure.
func NewConfigError(backend, field, message string) *ConfigError {
	return &ConfigError{Backend: backend, Field: field, Message: message}
}

// NewConfigErrorWithValue creates a ConfigError that includes the invalid value.
func NewConfigErrorWithValue(backend, field, value, message string) *ConfigError {
	return &ConfigError{Backend: backend, Field: field, Value: value, Message: message}
}

// NewConfigErrorWithCause creates a ConfigError with an underlying cause.
func NewConfigErrorWithCause(backend, field, message string, cause error) *ConfigError {
	return &ConfigError{Backend: backend, Field: field, Message: message, Cause: cause}
}

// withBackend stamps the backend name on helper-produced errors that only
// know the field.
func withBackend(backend string, err error) error {
	if ce, ok := err.(*ConfigError); ok && ce.Backend == "" {
		ce.Backend = backend
	}
	return err
}

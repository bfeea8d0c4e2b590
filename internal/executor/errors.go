package executor

import (
	"errors"
	"fmt"
)

// ErrNoPhases indicates a run was started with an empty phase list.
var ErrNoPhases = errors.New("run requires at least one phase")

// ErrZeroBudget indicates a retry loop was configured with no iteration
// budget. This is rejected before any work unit runs rather than treated
// as a silent no-op.
var ErrZeroBudget = errors.New("retry loop requires max iterations > 0")

// ConfigError represents an invalid run configuration. Configuration
// errors are fatal: they abort the run before any phase executes and are
// never retried.
type ConfigError struct {
	Field   string // Configuration field or phase that is invalid
	Message string // Human-readable description
	Err     error  // Underlying error (optional)
}

// NewConfigError creates a ConfigError for the given field.
func NewConfigError(field, message string, err error) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error in %s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("configuration error in %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is (or wraps) a configuration error.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce) || errors.Is(err, ErrNoPhases) || errors.Is(err, ErrZeroBudget)
}

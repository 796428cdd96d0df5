package errors

import (
	stdErrors "errors"
	"fmt"
)

// ConfigurationError is raised before any network activity when the run cannot start:
// missing credentials, unknown strategy name, inverted year range and similar.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// NewConfigurationError creates a ConfigurationError for field.
func NewConfigurationError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

// IsConfigurationError reports whether err is a ConfigurationError (even when wrapped).
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return stdErrors.As(err, &ce)
}

// StageError reports a failed pipeline stage. Fatal stages stop the pipeline.
type StageError struct {
	Stage string
	Fatal bool
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err as the failure of stage.
func NewStageError(stage string, fatal bool, err error) *StageError {
	return &StageError{Stage: stage, Fatal: fatal, Err: err}
}

// IsFatalStageError reports whether err carries a fatal StageError.
func IsFatalStageError(err error) bool {
	var se *StageError
	return stdErrors.As(err, &se) && se.Fatal
}

package errors

import (
	stdErrors "errors"
	"fmt"
)

// NotFoundError means the upstream entity does not exist. It is expected and never fatal.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.URL)
}

// NewNotFoundError creates a NotFoundError for url.
func NewNotFoundError(url string) *NotFoundError {
	return &NotFoundError{URL: url}
}

// IsNotFoundError reports whether err is a NotFoundError (even when wrapped).
func IsNotFoundError(err error) bool {
	var nf *NotFoundError
	return stdErrors.As(err, &nf)
}

// TransientError wraps a network failure or timeout that may succeed on retry.
type TransientError struct {
	URL string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure for %s: %v", e.URL, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError creates a TransientError.
func NewTransientError(url string, err error) *TransientError {
	return &TransientError{URL: url, Err: err}
}

// IsTransientError reports whether err is a TransientError (even when wrapped).
func IsTransientError(err error) bool {
	var te *TransientError
	return stdErrors.As(err, &te)
}

// PermanentError is a failure that retrying will not fix: an unexpected status,
// a malformed payload, or a transient failure that exhausted its attempts.
type PermanentError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *PermanentError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("permanent failure for %s (HTTP %d): %v", e.URL, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("permanent failure for %s (HTTP %d)", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("permanent failure for %s: %v", e.URL, e.Err)
	}
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewPermanentError creates a PermanentError. statusCode is 0 when no response was received.
func NewPermanentError(url string, statusCode int, err error) *PermanentError {
	return &PermanentError{URL: url, StatusCode: statusCode, Err: err}
}

// IsPermanentError reports whether err is a PermanentError (even when wrapped).
func IsPermanentError(err error) bool {
	var pe *PermanentError
	return stdErrors.As(err, &pe)
}

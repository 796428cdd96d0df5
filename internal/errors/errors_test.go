package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
	"time"
)

func TestRateLimitError(t *testing.T) {
	err := NewRateLimitError("slow down")

	if err.Error() != "slow down" {
		t.Fatalf("Error message = %q, want %q", err.Error(), "slow down")
	}

	if !IsRateLimitError(err) {
		t.Fatalf("IsRateLimitError returned false for RateLimitError")
	}

	wrapped := stdErrors.Join(err)
	if !IsRateLimitError(wrapped) {
		t.Fatalf("IsRateLimitError returned false for wrapped RateLimitError")
	}
}

func TestRateLimitErrorWithRetry_VariousDurations(t *testing.T) {
	tests := []struct {
		name            string
		duration        time.Duration
		expectedMessage string
	}{
		{
			name:            "zero",
			duration:        0,
			expectedMessage: "rate limited",
		},
		{
			name:            "2 seconds",
			duration:        2 * time.Second,
			expectedMessage: "rate limited (retry after 2s)",
		},
		{
			name:            "1 minute",
			duration:        time.Minute,
			expectedMessage: "rate limited (retry after 1m0s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRateLimitErrorWithRetry("rate limited", tt.duration)
			if err.Error() != tt.expectedMessage {
				t.Fatalf("Error message = %q, want %q", err.Error(), tt.expectedMessage)
			}
			if err.RetryAfter != tt.duration {
				t.Fatalf("RetryAfter = %v, want %v", err.RetryAfter, tt.duration)
			}
		})
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("https://api.test/movie/1")

	if err.Error() != "not found: https://api.test/movie/1" {
		t.Fatalf("Error message = %q", err.Error())
	}
	if !IsNotFoundError(fmt.Errorf("fetch: %w", err)) {
		t.Fatalf("IsNotFoundError returned false for wrapped NotFoundError")
	}
	if IsPermanentError(err) {
		t.Fatalf("NotFoundError must not be classified as permanent")
	}
}

func TestTransientErrorUnwraps(t *testing.T) {
	cause := stdErrors.New("connection reset by peer")
	err := NewTransientError("https://api.test/x", cause)

	if !IsTransientError(err) {
		t.Fatalf("IsTransientError returned false")
	}
	if !stdErrors.Is(err, cause) {
		t.Fatalf("TransientError does not unwrap to its cause")
	}
}

func TestPermanentErrorMessages(t *testing.T) {
	cause := stdErrors.New("boom")

	tests := []struct {
		name string
		err  *PermanentError
		want string
	}{
		{
			name: "status only",
			err:  NewPermanentError("u", 500, nil),
			want: "permanent failure for u (HTTP 500)",
		},
		{
			name: "status and cause",
			err:  NewPermanentError("u", 200, cause),
			want: "permanent failure for u (HTTP 200): boom",
		},
		{
			name: "cause only",
			err:  NewPermanentError("u", 0, cause),
			want: "permanent failure for u: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Fatalf("Error message = %q, want %q", tt.err.Error(), tt.want)
			}
			if !IsPermanentError(tt.err) {
				t.Fatalf("IsPermanentError returned false")
			}
		})
	}
}

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError("tmdb.token", "is required")

	want := "invalid configuration: tmdb.token: is required"
	if err.Error() != want {
		t.Fatalf("Error message = %q, want %q", err.Error(), want)
	}
	if !IsConfigurationError(stdErrors.Join(err, stdErrors.New("context"))) {
		t.Fatalf("IsConfigurationError returned false for joined error")
	}
}

func TestStageError(t *testing.T) {
	cause := stdErrors.New("db down")
	fatal := NewStageError("dictionaries", true, cause)
	sibling := NewStageError("series", false, cause)

	if !IsFatalStageError(fatal) {
		t.Fatalf("fatal stage error not detected")
	}
	if IsFatalStageError(sibling) {
		t.Fatalf("non-fatal stage error reported as fatal")
	}
	if !stdErrors.Is(sibling, cause) {
		t.Fatalf("StageError does not unwrap")
	}
	if fatal.Error() != "stage dictionaries failed: db down" {
		t.Fatalf("Error message = %q", fatal.Error())
	}
}

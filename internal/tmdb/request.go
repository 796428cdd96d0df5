package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	etlerrors "github.com/CHRISHLOH/tmdb-etl/internal/errors"
)

// Request describes one GET against the API.
type Request struct {
	Path  string
	Query url.Values
	// Hint names the request in logs, e.g. "movie 550".
	Hint string
	// Cacheable requests are served from and stored into the response cache.
	Cacheable bool
}

// OutcomeKind classifies the final result of a fetch.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeNotFound
	OutcomeRateLimited
	OutcomeTransient
	OutcomePermanent
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeTransient:
		return "transient"
	case OutcomePermanent:
		return "permanent"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Outcome is the result of a fetch. Fetch only ever returns Success,
// NotFound or Permanent; RateLimited and Transient are intermediate
// classifications of a single attempt.
type Outcome struct {
	Kind       OutcomeKind
	Payload    json.RawMessage
	Status     int
	URL        string
	RetryAfter time.Duration
	Cause      error
}

// OK reports whether the outcome carries a payload.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// Cancelled reports whether the request was abandoned because the caller's
// context was cancelled rather than because the upstream failed.
func (o Outcome) Cancelled() bool {
	return o.Kind == OutcomePermanent && errors.Is(o.Cause, context.Canceled)
}

// Err converts a non-success outcome into a typed error.
func (o Outcome) Err() error {
	switch o.Kind {
	case OutcomeSuccess:
		return nil
	case OutcomeNotFound:
		return etlerrors.NewNotFoundError(o.URL)
	case OutcomeRateLimited:
		return etlerrors.NewRateLimitErrorWithRetry("rate limited: "+o.URL, o.RetryAfter)
	case OutcomeTransient:
		return etlerrors.NewTransientError(o.URL, o.Cause)
	default:
		return etlerrors.NewPermanentError(o.URL, o.Status, o.Cause)
	}
}

// Decode unmarshals a successful payload into target.
func (o Outcome) Decode(target any) error {
	if o.Kind != OutcomeSuccess {
		return o.Err()
	}
	if err := json.Unmarshal(o.Payload, target); err != nil {
		return etlerrors.NewPermanentError(o.URL, o.Status, fmt.Errorf("decode payload: %w", err))
	}
	return nil
}

func (c *Client) endpoint(req Request) string {
	endpoint := c.baseURL + req.Path
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}
	return endpoint
}

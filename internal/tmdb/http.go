package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/CHRISHLOH/tmdb-etl/internal/metrics"
)

// Fetch performs req, absorbing throttling and retrying transient failures.
// The returned Outcome is always Success, NotFound or Permanent.
//
// A 429 is retried after its Retry-After delay without consuming one of the
// transient attempts. Throttle retries continue until the context is done or
// the optional throttle budget is spent.
func (c *Client) Fetch(ctx context.Context, req Request) Outcome {
	endpoint := c.endpoint(req)

	if req.Cacheable && c.cache != nil {
		if payload, notFound, ok := c.cache.Get(endpoint); ok {
			c.stats.cacheHits.Add(1)
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			if notFound {
				return c.finish(req, Outcome{Kind: OutcomeNotFound, URL: endpoint, Status: http.StatusNotFound})
			}
			return c.finish(req, Outcome{Kind: OutcomeSuccess, URL: endpoint, Status: http.StatusOK, Payload: payload})
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	var throttled time.Duration
	attempt := 1
	for {
		out := c.roundTrip(ctx, endpoint)

		switch out.Kind {
		case OutcomeRateLimited:
			c.stats.throttled.Add(1)
			metrics.FetchRetries.WithLabelValues("throttled").Inc()
			wait := out.RetryAfter
			if c.throttleBudget > 0 && throttled+wait > c.throttleBudget {
				out.Kind = OutcomePermanent
				out.Cause = fmt.Errorf("throttle budget of %s exhausted", c.throttleBudget)
				return c.finish(req, out)
			}
			slog.Debug("Throttled by TMDB", "url", endpoint, "retry_after", wait)
			if err := c.clock.Sleep(ctx, wait); err != nil {
				return c.finish(req, cancelled(endpoint, err))
			}
			throttled += wait
			c.stats.throttleNs.Add(int64(wait))
			metrics.ThrottleWait.Observe(wait.Seconds())
			continue

		case OutcomeTransient:
			if ctx.Err() != nil {
				return c.finish(req, cancelled(endpoint, ctx.Err()))
			}
			if attempt >= c.retryAttempts {
				out.Kind = OutcomePermanent
				out.Cause = fmt.Errorf("giving up after %d attempts: %w", attempt, out.Cause)
				return c.finish(req, out)
			}
			c.stats.retries.Add(1)
			metrics.FetchRetries.WithLabelValues("transient").Inc()
			delay := backoffDelay(attempt)
			slog.Debug("Retrying TMDB request", "url", endpoint, "attempt", attempt, "delay", delay, "error", out.Cause)
			if err := c.clock.Sleep(ctx, delay); err != nil {
				return c.finish(req, cancelled(endpoint, err))
			}
			attempt++
			continue
		}

		if req.Cacheable && c.cache != nil && (out.Kind == OutcomeSuccess || out.Kind == OutcomeNotFound) {
			if err := c.cache.Put(endpoint, out.Payload, out.Kind == OutcomeNotFound); err != nil {
				slog.Warn("Failed to cache TMDB response", "url", endpoint, "error", err)
			}
		}
		return c.finish(req, out)
	}
}

func (c *Client) finish(req Request, out Outcome) Outcome {
	c.stats.requests.Add(1)
	label := out.Kind.String()
	if out.Cancelled() {
		label = "cancelled"
	}
	metrics.FetchOutcomes.WithLabelValues(label).Inc()

	switch {
	case out.Kind == OutcomeNotFound:
		c.stats.notFound.Add(1)
	case out.Cancelled():
		slog.Debug("TMDB request cancelled", "request", req.Hint, "url", out.URL)
	case out.Kind == OutcomePermanent:
		c.stats.permanent.Add(1)
		slog.Warn("TMDB request failed",
			"request", req.Hint,
			"url", out.URL,
			"status", out.Status,
			"error", out.Cause)
	}
	return out
}

func cancelled(endpoint string, err error) Outcome {
	return Outcome{Kind: OutcomePermanent, URL: endpoint, Cause: err}
}

// roundTrip performs a single attempt while holding a connection slot and a
// rate gate grant. The slot is released before any retry sleep.
func (c *Client) roundTrip(ctx context.Context, endpoint string) Outcome {
	release, err := c.gates.Conn.Acquire(ctx)
	if err != nil {
		return cancelled(endpoint, err)
	}
	defer release()
	metrics.InflightRequests.Inc()
	defer metrics.InflightRequests.Dec()

	if err := c.gates.Rate.Acquire(ctx); err != nil {
		return cancelled(endpoint, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Outcome{Kind: OutcomePermanent, URL: endpoint, Cause: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return cancelled(endpoint, ctx.Err())
		}
		if isTransient(err) {
			return Outcome{Kind: OutcomeTransient, URL: endpoint, Cause: err}
		}
		return Outcome{Kind: OutcomePermanent, URL: endpoint, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			if ctx.Err() != nil {
				return cancelled(endpoint, ctx.Err())
			}
			if isTransient(err) {
				return Outcome{Kind: OutcomeTransient, URL: endpoint, Status: resp.StatusCode, Cause: err}
			}
			return Outcome{Kind: OutcomePermanent, URL: endpoint, Status: resp.StatusCode, Cause: err}
		}
		if !json.Valid(body) {
			return Outcome{Kind: OutcomePermanent, URL: endpoint, Status: resp.StatusCode, Cause: errors.New("malformed JSON payload")}
		}
		return Outcome{Kind: OutcomeSuccess, URL: endpoint, Status: resp.StatusCode, Payload: body}

	case resp.StatusCode == http.StatusNotFound:
		return Outcome{Kind: OutcomeNotFound, URL: endpoint, Status: resp.StatusCode}

	case resp.StatusCode == http.StatusTooManyRequests:
		return Outcome{
			Kind:       OutcomeRateLimited,
			URL:        endpoint,
			Status:     resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), c.clock.Now(), c.defaultRetryAfter),
		}

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Outcome{
			Kind:   OutcomePermanent,
			URL:    endpoint,
			Status: resp.StatusCode,
			Cause:  fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
}

func isTransient(err error) bool {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	// Client.Timeout firing mid-body surfaces as an unexported net/http error
	// that only exposes Timeout().
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		// Network errors (connection resets etc.)
		if strings.Contains(urlErr.Error(), "connection") {
			return true
		}
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func backoffDelay(attempt int) time.Duration {
	// exponential backoff capped at 10 seconds
	delay := time.Duration(1<<uint(attempt-1)) * time.Second
	if delay > 10*time.Second {
		return 10 * time.Second
	}
	return delay
}

// parseRetryAfter accepts delay-seconds or an HTTP-date.
func parseRetryAfter(value string, now time.Time, fallback time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return fallback
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return fallback
}

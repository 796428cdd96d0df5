// Package tmdb provides the rate-limited fetch client for TheMovieDB API.
package tmdb

import (
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/CHRISHLOH/tmdb-etl/internal/ratelimit"
)

const (
	defaultBaseURL            = "https://api.themoviedb.org/3"
	defaultMaxAttempts        = 3
	defaultRetryAfter         = 2 * time.Second
	defaultTimeout            = 10 * time.Second
	defaultReferencePerSecond = 9
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// ResponseCache stores raw payloads keyed by request URL. NotFound
// responses are cached as well so absent entities are not re-requested.
type ResponseCache interface {
	Get(key string) (payload []byte, notFound bool, ok bool)
	Put(key string, payload []byte, notFound bool) error
}

// Client is a TMDB API client. Every request passes the connection gate
// and then the rate gate of the run that created the client.
type Client struct {
	token             string
	baseURL           string
	httpClient        HTTPDoer
	gates             *ratelimit.Gates
	clock             ratelimit.Clock
	reference         *ratelimit.Limiter
	cache             ResponseCache
	retryAttempts     int
	defaultRetryAfter time.Duration
	throttleBudget    time.Duration

	stats clientStats
}

type clientStats struct {
	requests   atomic.Int64
	throttled  atomic.Int64
	retries    atomic.Int64
	permanent  atomic.Int64
	notFound   atomic.Int64
	cacheHits  atomic.Int64
	throttleNs atomic.Int64
}

// Stats is a snapshot of the client's request counters.
type Stats struct {
	Requests       int64
	Throttled      int64
	Retries        int64
	Permanent      int64
	NotFound       int64
	CacheHits      int64
	ThrottleWaited time.Duration
}

// NewClient creates a new TMDB API client authenticating with a bearer token.
// Without WithGates the client gets its own fresh gates with default limits.
func NewClient(token string, opts ...Option) *Client {
	client := &Client{
		token:             token,
		baseURL:           defaultBaseURL,
		httpClient:        &http.Client{Timeout: defaultTimeout},
		clock:             ratelimit.SystemClock{},
		reference:         ratelimit.New("TMDB reference", defaultReferencePerSecond),
		retryAttempts:     defaultMaxAttempts,
		defaultRetryAfter: defaultRetryAfter,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.gates == nil {
		client.gates = ratelimit.NewGates(ratelimit.GateConfig{Clock: client.clock})
	}

	return client
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithBaseURL sets a custom base URL for the TMDB API.
func WithBaseURL(base string) Option {
	return func(client *Client) {
		if base != "" {
			client.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithRetryAttempts sets how many attempts a transient failure gets.
func WithRetryAttempts(attempts int) Option {
	return func(client *Client) {
		if attempts > 0 {
			client.retryAttempts = attempts
		}
	}
}

// WithGates binds the client to the gates of the current run.
func WithGates(gates *ratelimit.Gates) Option {
	return func(client *Client) {
		if gates != nil {
			client.gates = gates
		}
	}
}

// WithClock replaces the clock used for throttle and backoff sleeps.
func WithClock(clock ratelimit.Clock) Option {
	return func(client *Client) {
		if clock != nil {
			client.clock = clock
		}
	}
}

// WithReferenceLimiter sets the pacing for sequential reference-data requests.
func WithReferenceLimiter(limiter *ratelimit.Limiter) Option {
	return func(client *Client) {
		client.reference = limiter
	}
}

// WithCache enables the response cache for cacheable requests.
func WithCache(cache ResponseCache) Option {
	return func(client *Client) {
		client.cache = cache
	}
}

// WithDefaultRetryAfter sets the wait used when a 429 carries no Retry-After header.
func WithDefaultRetryAfter(d time.Duration) Option {
	return func(client *Client) {
		if d >= 0 {
			client.defaultRetryAfter = d
		}
	}
}

// WithThrottleBudget caps the total time one request may spend waiting on
// 429 responses. Zero keeps retrying until the request succeeds or the
// context is cancelled.
func WithThrottleBudget(d time.Duration) Option {
	return func(client *Client) {
		if d >= 0 {
			client.throttleBudget = d
		}
	}
}

// Gates returns the gates this client acquires.
func (c *Client) Gates() *ratelimit.Gates {
	return c.gates
}

// Stats returns the current request counters.
func (c *Client) Stats() Stats {
	return Stats{
		Requests:       c.stats.requests.Load(),
		Throttled:      c.stats.throttled.Load(),
		Retries:        c.stats.retries.Load(),
		Permanent:      c.stats.permanent.Load(),
		NotFound:       c.stats.notFound.Load(),
		CacheHits:      c.stats.cacheHits.Load(),
		ThrottleWaited: time.Duration(c.stats.throttleNs.Load()),
	}
}

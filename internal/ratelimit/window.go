package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateGate caps the number of requests started in any trailing window
// (one second by default). It keeps the start time of every request still
// inside the window; when the window is full the caller sleeps until the
// oldest entry leaves it and then checks again.
type RateGate struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time
	clock  Clock

	// onGrant observes every granted timestamp. Tests only.
	onGrant func(time.Time)
}

// NewRateGate creates a gate admitting at most limit acquisitions per window.
func NewRateGate(limit int, window time.Duration, clock Clock) *RateGate {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &RateGate{
		limit:  limit,
		window: window,
		stamps: make([]time.Time, 0, limit),
		clock:  clock,
	}
}

// Acquire blocks until starting a request keeps the trailing window at or
// below the limit. It returns an error only when ctx is done.
func (g *RateGate) Acquire(ctx context.Context) error {
	for {
		wait, ok := g.tryAcquire()
		if ok {
			return nil
		}
		if err := g.clock.Sleep(ctx, wait); err != nil {
			return fmt.Errorf("rate gate: %w", err)
		}
	}
}

func (g *RateGate) tryAcquire() (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	g.evict(now)

	if len(g.stamps) < g.limit {
		g.stamps = append(g.stamps, now)
		if g.onGrant != nil {
			g.onGrant(now)
		}
		return 0, true
	}

	wait := g.stamps[0].Add(g.window).Sub(now)
	if wait <= 0 {
		// Clock resolution; the next evict will drop it.
		wait = time.Millisecond
	}
	return wait, false
}

// evict drops stamps that are no longer inside (now-window, now].
func (g *RateGate) evict(now time.Time) {
	cutoff := now.Add(-g.window)
	i := 0
	for i < len(g.stamps) && !g.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		g.stamps = append(g.stamps[:0], g.stamps[i:]...)
	}
}

// Limit returns the configured ceiling.
func (g *RateGate) Limit() int {
	return g.limit
}

// InWindow returns how many acquisitions are currently inside the window.
func (g *RateGate) InWindow() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.evict(g.clock.Now())
	return len(g.stamps)
}

package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// ConnectionGate is a counting semaphore bounding in-flight requests.
type ConnectionGate struct {
	slots    chan struct{}
	inflight atomic.Int64
	peak     atomic.Int64
}

// NewConnectionGate creates a gate with capacity slots.
func NewConnectionGate(capacity int) *ConnectionGate {
	if capacity < 1 {
		capacity = 1
	}
	return &ConnectionGate{slots: make(chan struct{}, capacity)}
}

// Acquire waits for a free slot. The returned release func must be called
// exactly once; extra calls are no-ops so it is safe to defer.
func (g *ConnectionGate) Acquire(ctx context.Context) (func(), error) {
	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		return func() {}, fmt.Errorf("connection gate: %w", ctx.Err())
	}

	n := g.inflight.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.inflight.Add(-1)
			<-g.slots
		})
	}, nil
}

// Do runs fn while holding a slot.
func (g *ConnectionGate) Do(ctx context.Context, fn func() error) error {
	release, err := g.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Capacity returns the number of slots.
func (g *ConnectionGate) Capacity() int {
	return cap(g.slots)
}

// Inflight returns the number of slots currently held.
func (g *ConnectionGate) Inflight() int {
	return int(g.inflight.Load())
}

// Peak returns the highest number of slots held at once since creation.
func (g *ConnectionGate) Peak() int {
	return int(g.peak.Load())
}

// Package ratelimit holds the request pacing primitives: the per-run
// connection and rate gates used for concurrent harvesting, and a token
// bucket limiter for sequential callers.
package ratelimit

import "time"

const (
	// DefaultMaxConcurrent stays under the provider's ~20 connection ceiling.
	DefaultMaxConcurrent = 18
	// DefaultRequestsPerSecond stays under the provider's ~50 req/s ceiling.
	DefaultRequestsPerSecond = 45
)

// GateConfig sizes the gates of one run.
type GateConfig struct {
	MaxConcurrent     int
	RequestsPerSecond int
	Window            time.Duration
	Clock             Clock
}

// DefaultGateConfig returns the production limits.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MaxConcurrent:     DefaultMaxConcurrent,
		RequestsPerSecond: DefaultRequestsPerSecond,
		Window:            time.Second,
	}
}

// Gates bundles the connection and rate gate of a single top-level run.
// Every run builds its own Gates with NewGates; instances are never cached
// or reused by a later run.
type Gates struct {
	Conn *ConnectionGate
	Rate *RateGate
}

// NewGates creates fresh gates from cfg, filling zero fields with defaults.
func NewGates(cfg GateConfig) *Gates {
	def := DefaultGateConfig()
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	return &Gates{
		Conn: NewConnectionGate(cfg.MaxConcurrent),
		Rate: NewRateGate(cfg.RequestsPerSecond, cfg.Window, cfg.Clock),
	}
}

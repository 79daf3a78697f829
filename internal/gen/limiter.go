package gen

import (
	"sync"
	"time"

	"github.com/playroomlabs/partyroom/internal/dependencies/clock"
)

// LimiterConfig holds rate limiter settings
type LimiterConfig struct {
	// Window is the rolling window over which requests are counted
	Window time.Duration
	// Limits maps each model to its maximum requests per window
	Limits map[ModelKind]int
}

// DefaultLimiterConfig returns sensible defaults for the rate limiter
func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{
		Window: time.Minute,
		Limits: map[ModelKind]int{
			ModelTextPrimary:   30,
			ModelTextFallback:  30,
			ModelImagePrimary:  15,
			ModelImageFallback: 15,
		},
	}
}

// Limiter owns per-model rolling-window counters and pause-until
// timestamps. Constructed once per process and injected into the gateway.
type Limiter struct {
	mu     sync.Mutex
	clock  clock.Clock
	cfg    LimiterConfig
	events map[ModelKind][]time.Time
	paused map[ModelKind]time.Time
}

// NewLimiter creates a limiter with the given config
func NewLimiter(cfg LimiterConfig, clk clock.Clock) *Limiter {
	return &Limiter{
		clock:  clk,
		cfg:    cfg,
		events: make(map[ModelKind][]time.Time),
		paused: make(map[ModelKind]time.Time),
	}
}

// TryAcquire reports whether a request against the model may proceed,
// recording it against the rolling window if granted
func (l *Limiter) TryAcquire(model ModelKind) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if until, ok := l.paused[model]; ok {
		if now.Before(until) {
			return false
		}
		delete(l.paused, model)
	}

	limit, ok := l.cfg.Limits[model]
	if !ok {
		limit = 0 // unknown models are never granted
	}

	events := l.trim(model, now)
	if len(events) >= limit {
		return false
	}

	l.events[model] = append(events, now)
	return true
}

// MarkPaused blocks the model until the given time, typically after the
// backend reported quota exhaustion
func (l *Limiter) MarkPaused(model ModelKind, until time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused[model] = until
}

// trim drops events older than the rolling window. Caller holds the lock.
func (l *Limiter) trim(model ModelKind, now time.Time) []time.Time {
	cutoff := now.Add(-l.cfg.Window)
	events := l.events[model]
	kept := events[:0]
	for _, t := range events {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.events[model] = kept
	return kept
}

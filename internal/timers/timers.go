// Package timers provides cancellable delayed callbacks and a named-timer
// registry with replace-on-start semantics.
package timers

import "time"

// Handle is a cancellable scheduled callback
type Handle interface {
	// Stop cancels the callback if it has not fired yet.
	// It returns true if the callback was prevented from firing.
	Stop() bool
}

// Scheduler schedules callbacks to run after a delay.
// It can be mocked for deterministic tests.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Handle
}

// RealScheduler implements Scheduler using time.AfterFunc
type RealScheduler struct{}

// NewScheduler creates a new RealScheduler
func NewScheduler() *RealScheduler {
	return &RealScheduler{}
}

// AfterFunc schedules fn to run after d on its own goroutine
func (s *RealScheduler) AfterFunc(d time.Duration, fn func()) Handle {
	return &realHandle{timer: time.AfterFunc(d, fn)}
}

type realHandle struct {
	timer *time.Timer
}

func (h *realHandle) Stop() bool {
	return h.timer.Stop()
}

package mocks

import (
	"sort"
	"sync"
	"time"

	"github.com/playroomlabs/partyroom/internal/timers"
)

// MockScheduler is a manual implementation of Scheduler for testing.
// Callbacks never fire on their own; tests fire them explicitly.
type MockScheduler struct {
	mu      sync.Mutex
	pending []*MockTimer
}

// Ensure MockScheduler implements Scheduler
var _ timers.Scheduler = (*MockScheduler)(nil)

// MockTimer is a pending callback held by a MockScheduler
type MockTimer struct {
	Delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
	mu      sync.Mutex
}

// Stop cancels the timer; returns true if it had not fired
func (t *MockTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (t *MockTimer) fire() bool {
	t.mu.Lock()
	if t.fired || t.stopped {
		t.mu.Unlock()
		return false
	}
	t.fired = true
	fn := t.fn
	t.mu.Unlock()
	fn()
	return true
}

// NewMockScheduler creates a new MockScheduler
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{}
}

// AfterFunc records the callback without scheduling anything
func (s *MockScheduler) AfterFunc(d time.Duration, fn func()) timers.Handle {
	t := &MockTimer{Delay: d, fn: fn}
	s.mu.Lock()
	s.pending = append(s.pending, t)
	s.mu.Unlock()
	return t
}

// PendingCount returns the number of callbacks not yet fired or stopped
func (s *MockScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, t := range s.pending {
		t.mu.Lock()
		if !t.fired && !t.stopped {
			count++
		}
		t.mu.Unlock()
	}
	return count
}

// FireAll fires every live callback in delay order, including callbacks
// scheduled by the callbacks themselves, up to a fixed iteration bound
func (s *MockScheduler) FireAll() {
	for i := 0; i < 100; i++ {
		if !s.FireNext() {
			return
		}
	}
}

// FireNext fires the live callback with the smallest delay.
// It returns false if nothing was pending.
func (s *MockScheduler) FireNext() bool {
	s.mu.Lock()
	live := make([]*MockTimer, 0, len(s.pending))
	for _, t := range s.pending {
		t.mu.Lock()
		if !t.fired && !t.stopped {
			live = append(live, t)
		}
		t.mu.Unlock()
	}
	sort.SliceStable(live, func(i, j int) bool { return live[i].Delay < live[j].Delay })
	s.mu.Unlock()

	for _, t := range live {
		if t.fire() {
			return true
		}
	}
	return false
}

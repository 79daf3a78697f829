package timers

import (
	"sync"
	"time"

	"github.com/playroomlabs/partyroom/internal/dependencies/clock"
)

// Registry manages named timers for a room. Each name holds at most one
// active timer; starting a timer with an existing name replaces it.
type Registry struct {
	mu        sync.Mutex
	scheduler Scheduler
	clock     clock.Clock
	entries   map[string]*entry
}

type entry struct {
	handle Handle
	endsAt time.Time
}

// NewRegistry creates a registry using the given scheduler and clock
func NewRegistry(scheduler Scheduler, clk clock.Clock) *Registry {
	return &Registry{
		scheduler: scheduler,
		clock:     clk,
		entries:   make(map[string]*entry),
	}
}

// Start arms a timer under the given name, replacing any existing one
func (r *Registry) Start(name string, d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[name]; ok {
		existing.handle.Stop()
	}

	e := &entry{endsAt: r.clock.Now().Add(d)}
	e.handle = r.scheduler.AfterFunc(d, func() {
		r.remove(name, e)
		fn()
	})
	r.entries[name] = e
}

// Stop cancels the named timer if armed
func (r *Registry) Stop(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[name]; ok {
		e.handle.Stop()
		delete(r.entries, name)
	}
}

// EndTime returns when the named timer will fire, or the zero time if
// no timer is armed under that name
func (r *Registry) EndTime(name string) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[name]; ok {
		return e.endsAt
	}
	return time.Time{}
}

// StopAll cancels every armed timer
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, e := range r.entries {
		e.handle.Stop()
		delete(r.entries, name)
	}
}

// remove clears the entry after firing, unless it was already replaced
func (r *Registry) remove(name string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.entries[name]; ok && current == e {
		delete(r.entries, name)
	}
}

package engine

import (
	"sync"
	"time"

	"github.com/playroomlabs/partyroom/internal/model"
	"github.com/playroomlabs/partyroom/internal/timers"
)

// ActionKind names the timer kinds an AI can have armed
type ActionKind string

const (
	ActionComment ActionKind = "comment"
	ActionGuess   ActionKind = "guess"
	ActionVote    ActionKind = "vote"
	ActionDraw    ActionKind = "draw"
)

// AITimers tracks at most one pending timer per AI per action kind.
// Cancelling one AI's timers never affects another's.
type AITimers struct {
	mu        sync.Mutex
	scheduler timers.Scheduler
	pending   map[model.PlayerID]map[ActionKind]timers.Handle
}

// NewAITimers creates an AITimers over the given scheduler
func NewAITimers(scheduler timers.Scheduler) *AITimers {
	return &AITimers{
		scheduler: scheduler,
		pending:   make(map[model.PlayerID]map[ActionKind]timers.Handle),
	}
}

// Schedule arms a timer for the AI and kind, replacing any pending one
func (t *AITimers) Schedule(id model.PlayerID, kind ActionKind, d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	byKind, ok := t.pending[id]
	if !ok {
		byKind = make(map[ActionKind]timers.Handle)
		t.pending[id] = byKind
	}
	if existing, ok := byKind[kind]; ok {
		existing.Stop()
	}

	byKind[kind] = t.scheduler.AfterFunc(d, func() {
		t.clear(id, kind)
		fn()
	})
}

// Cancel stops a single pending timer kind for the AI
func (t *AITimers) Cancel(id model.PlayerID, kind ActionKind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if byKind, ok := t.pending[id]; ok {
		if h, ok := byKind[kind]; ok {
			h.Stop()
			delete(byKind, kind)
		}
	}
}

// CancelPlayer stops every pending timer for the AI
func (t *AITimers) CancelPlayer(id model.PlayerID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for kind, h := range t.pending[id] {
		h.Stop()
		delete(t.pending[id], kind)
	}
	delete(t.pending, id)
}

// CancelAll stops every pending timer for every AI
func (t *AITimers) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, byKind := range t.pending {
		for _, h := range byKind {
			h.Stop()
		}
		delete(t.pending, id)
	}
}

func (t *AITimers) clear(id model.PlayerID, kind ActionKind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if byKind, ok := t.pending[id]; ok {
		delete(byKind, kind)
	}
}

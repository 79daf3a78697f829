package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playroomlabs/partyroom/internal/engine"
	"github.com/playroomlabs/partyroom/internal/model"
)

// EmittedEvent records one event sent through the mock host
type EmittedEvent struct {
	Event   model.EventType
	Payload any
}

// SentMessage records one chat message sent through the mock host
type SentMessage struct {
	PlayerID  model.PlayerID // empty for system messages
	Text      string
	IsSystem  bool
	IsGuess   bool
	Persisted bool
}

// SavedImage records one generated image stored through the mock host
type SavedImage struct {
	PlayerID model.PlayerID
	Round    int
	Data     []byte
	Ref      string
}

// MockHost is a recording implementation of the engine host contract.
// All recorded state is safe for concurrent access.
type MockHost struct {
	mu sync.Mutex

	Clock *MockClock

	RoomEvents   []EmittedEvent
	PlayerEvents map[model.PlayerID][]EmittedEvent
	Messages     []SentMessage
	Saved        []SavedImage
	ScoreDeltas  []map[model.PlayerID]int
	SyncCount    int

	RosterPlayers map[model.PlayerID]model.RoomPlayer
	Profiles      map[model.PlayerID]model.AIProfile

	Drawing string
	Chat    []model.ChatMessage

	timerEnds map[string]time.Time
}

// Ensure MockHost implements the host contract
var _ engine.Host = (*MockHost)(nil)

// NewMockHost creates a mock host using the given clock
func NewMockHost(clk *MockClock) *MockHost {
	return &MockHost{
		Clock:         clk,
		PlayerEvents:  make(map[model.PlayerID][]EmittedEvent),
		RosterPlayers: make(map[model.PlayerID]model.RoomPlayer),
		Profiles:      make(map[model.PlayerID]model.AIProfile),
		timerEnds:     make(map[string]time.Time),
	}
}

// AddPlayer registers a player on the mock roster
func (h *MockHost) AddPlayer(p model.RoomPlayer, profile *model.AIProfile) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.RosterPlayers[p.ID] = p
	if profile != nil {
		h.Profiles[p.ID] = *profile
	}
}

// RemovePlayer drops a player from the mock roster
func (h *MockHost) RemovePlayer(id model.PlayerID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.RosterPlayers, id)
	delete(h.Profiles, id)
}

func (h *MockHost) EmitToRoom(event model.EventType, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.RoomEvents = append(h.RoomEvents, EmittedEvent{Event: event, Payload: payload})
}

func (h *MockHost) EmitToPlayer(id model.PlayerID, event model.EventType, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.PlayerEvents[id] = append(h.PlayerEvents[id], EmittedEvent{Event: event, Payload: payload})
}

func (h *MockHost) StartTimer(name string, d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.timerEnds[name] = h.Clock.Now().Add(d)
}

func (h *MockHost) ClearTimer(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.timerEnds, name)
}

func (h *MockHost) TimerEndTime(name string) time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.timerEnds[name]
}

func (h *MockHost) SendSystemMessage(text string, persist bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Messages = append(h.Messages, SentMessage{Text: text, IsSystem: true, Persisted: persist})
}

func (h *MockHost) SendSystemMessageTo(id model.PlayerID, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Messages = append(h.Messages, SentMessage{PlayerID: id, Text: text, IsSystem: true})
}

func (h *MockHost) SendPlayerMessage(id model.PlayerID, text string, isGuess bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Messages = append(h.Messages, SentMessage{PlayerID: id, Text: text, IsGuess: isGuess, Persisted: true})
}

func (h *MockHost) Players() map[model.PlayerID]model.RoomPlayer {
	h.mu.Lock()
	defer h.mu.Unlock()
	players := make(map[model.PlayerID]model.RoomPlayer, len(h.RosterPlayers))
	for id, p := range h.RosterPlayers {
		players[id] = p
	}
	return players
}

func (h *MockHost) AIProfile(id model.PlayerID) (model.AIProfile, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	profile, ok := h.Profiles[id]
	return profile, ok
}

func (h *MockHost) DrawingData(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Drawing, nil
}

func (h *MockHost) SetDrawingData(ctx context.Context, data string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Drawing = data
	return nil
}

func (h *MockHost) ChatHistory(ctx context.Context) ([]model.ChatMessage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	history := make([]model.ChatMessage, len(h.Chat))
	copy(history, h.Chat)
	return history, nil
}

func (h *MockHost) SaveGeneratedImage(ctx context.Context, data []byte, playerID model.PlayerID, round int) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ref := fmt.Sprintf("/media/%s-%d-%d", playerID, round, len(h.Saved))
	h.Saved = append(h.Saved, SavedImage{PlayerID: playerID, Round: round, Data: data, Ref: ref})
	return ref, nil
}

func (h *MockHost) Sanitize(text, allowedExtra string) string {
	return strings.TrimSpace(text)
}

func (h *MockHost) UpdateScores(deltas map[model.PlayerID]int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	copied := make(map[model.PlayerID]int, len(deltas))
	for id, d := range deltas {
		copied[id] = d
	}
	h.ScoreDeltas = append(h.ScoreDeltas, copied)
}

func (h *MockHost) SyncGameState() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.SyncCount++
}

// EventsOfType returns the room events with the given type
func (h *MockHost) EventsOfType(event model.EventType) []EmittedEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []EmittedEvent
	for _, e := range h.RoomEvents {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// TimerArmed reports whether the named timer is currently armed
func (h *MockHost) TimerArmed(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.timerEnds[name]
	return ok
}

// SystemMessages returns the system messages recorded so far
func (h *MockHost) SystemMessages() []SentMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []SentMessage
	for _, m := range h.Messages {
		if m.IsSystem {
			out = append(out, m)
		}
	}
	return out
}

// GuessMessages returns the guess-flagged player messages recorded so far
func (h *MockHost) GuessMessages() []SentMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []SentMessage
	for _, m := range h.Messages {
		if m.IsGuess {
			out = append(out, m)
		}
	}
	return out
}

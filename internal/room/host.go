// Package room implements the room host: the stateful collaborator that
// owns a room's roster, phase timers, chat persistence and event fan-out
// on behalf of whichever game engine the room runs.
package room

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/playroomlabs/partyroom/internal/dependencies/clock"
	"github.com/playroomlabs/partyroom/internal/engine"
	"github.com/playroomlabs/partyroom/internal/model"
	"github.com/playroomlabs/partyroom/internal/sse"
	"github.com/playroomlabs/partyroom/internal/storage"
	"github.com/playroomlabs/partyroom/internal/timers"
)

const (
	systemUsername = "System"

	// maxMessageLength bounds sanitized player input
	maxMessageLength = 120

	// persistTimeout bounds background storage writes made outside a
	// request context
	persistTimeout = 5 * time.Second
)

// Host owns a single room's shared state and implements the engine's
// host contract. Engine callbacks and HTTP handlers may call it
// concurrently.
type Host struct {
	mu sync.RWMutex

	code     model.RoomCode
	hub      *sse.Hub
	store    storage.Storage
	registry *timers.Registry
	clock    clock.Clock
	logger   *slog.Logger

	players  map[model.PlayerID]model.RoomPlayer
	profiles map[model.PlayerID]model.AIProfile

	// onTimerExpired routes phase deadline expiry back to the engine
	onTimerExpired func(name string)
}

// Ensure Host implements the engine's host contract
var _ engine.Host = (*Host)(nil)

// NewHost creates a host for a room
func NewHost(
	code model.RoomCode,
	hub *sse.Hub,
	store storage.Storage,
	scheduler timers.Scheduler,
	clk clock.Clock,
	logger *slog.Logger,
) *Host {
	return &Host{
		code:     code,
		hub:      hub,
		store:    store,
		registry: timers.NewRegistry(scheduler, clk),
		clock:    clk,
		logger:   logger.With(slog.String("room", string(code))),
		players:  make(map[model.PlayerID]model.RoomPlayer),
		profiles: make(map[model.PlayerID]model.AIProfile),
	}
}

// SetTimerHandler wires phase deadline expiry to the engine. Must be set
// before any timer is started.
func (h *Host) SetTimerHandler(fn func(name string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onTimerExpired = fn
}

// AddPlayer registers a player on the roster
func (h *Host) AddPlayer(p model.RoomPlayer, profile *model.AIProfile) {
	h.mu.Lock()
	h.players[p.ID] = p
	if profile != nil {
		h.profiles[p.ID] = *profile
	}
	h.mu.Unlock()

	h.EmitToRoom(model.EventPlayerJoined, model.PlayerJoinedPayload{Player: p})
}

// RemovePlayer drops a player from the roster
func (h *Host) RemovePlayer(id model.PlayerID) {
	h.mu.Lock()
	p, ok := h.players[id]
	delete(h.players, id)
	delete(h.profiles, id)
	h.mu.Unlock()

	if ok {
		h.EmitToRoom(model.EventPlayerLeft, model.PlayerLeftPayload{
			PlayerID: id,
			Username: p.Username,
		})
	}
}

// Shutdown stops all timers; the hub is owned by the hub manager
func (h *Host) Shutdown() {
	h.registry.StopAll()
}

// EmitToRoom broadcasts an event to every connection in the room
func (h *Host) EmitToRoom(event model.EventType, payload any) {
	h.hub.BroadcastEvent(event, payload)
}

// EmitToPlayer sends an event to one player's connections
func (h *Host) EmitToPlayer(id model.PlayerID, event model.EventType, payload any) {
	h.hub.SendEventTo(id, event, payload)
}

// StartTimer arms a named phase deadline and announces it to clients
func (h *Host) StartTimer(name string, d time.Duration) {
	h.registry.Start(name, d, func() {
		h.mu.RLock()
		fn := h.onTimerExpired
		h.mu.RUnlock()
		if fn != nil {
			fn(name)
		}
	})

	endsAt := h.clock.Now().Add(d)
	h.EmitToRoom(model.EventTimerStarted, model.TimerStartedPayload{
		Name:       name,
		DurationMs: d.Milliseconds(),
		EndsAtMs:   endsAt.UnixMilli(),
	})
}

// ClearTimer cancels a named phase deadline
func (h *Host) ClearTimer(name string) {
	h.registry.Stop(name)
}

// TimerEndTime returns when the named timer fires, or the zero time
func (h *Host) TimerEndTime(name string) time.Time {
	return h.registry.EndTime(name)
}

// SendSystemMessage broadcasts a system chat message, optionally
// persisting it to the room's chat log
func (h *Host) SendSystemMessage(text string, persist bool) {
	msg := model.ChatMessage{
		Username: systemUsername,
		Content:  text,
		IsSystem: true,
		SentAt:   h.clock.Now(),
	}
	if persist {
		h.persistChat(msg)
	}
	h.EmitToRoom(model.EventChatMessage, model.ChatMessagePayload{Message: msg})
}

// SendSystemMessageTo sends a system chat message to one player only;
// targeted messages are never persisted
func (h *Host) SendSystemMessageTo(id model.PlayerID, text string) {
	msg := model.ChatMessage{
		Username: systemUsername,
		Content:  text,
		IsSystem: true,
		SentAt:   h.clock.Now(),
	}
	h.EmitToPlayer(id, model.EventChatMessage, model.ChatMessagePayload{Message: msg})
}

// SendPlayerMessage broadcasts and persists a chat message on behalf of
// a player
func (h *Host) SendPlayerMessage(id model.PlayerID, text string, isGuess bool) {
	h.mu.RLock()
	p, ok := h.players[id]
	h.mu.RUnlock()
	if !ok {
		return
	}

	msg := model.ChatMessage{
		Username: p.Username,
		Content:  text,
		SentAt:   h.clock.Now(),
	}
	h.persistChat(msg)
	h.EmitToRoom(model.EventChatMessage, model.ChatMessagePayload{
		Message: msg,
		IsGuess: isGuess,
	})
}

// Players returns a copy of the roster
func (h *Host) Players() map[model.PlayerID]model.RoomPlayer {
	h.mu.RLock()
	defer h.mu.RUnlock()

	players := make(map[model.PlayerID]model.RoomPlayer, len(h.players))
	for id, p := range h.players {
		players[id] = p
	}
	return players
}

// AIProfile returns the generation profile of a simulated player
func (h *Host) AIProfile(id model.PlayerID) (model.AIProfile, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	profile, ok := h.profiles[id]
	return profile, ok
}

// DrawingData returns the room's canvas snapshot
func (h *Host) DrawingData(ctx context.Context) (string, error) {
	return h.store.GetCanvas(ctx, h.code)
}

// SetDrawingData stores the room's canvas snapshot
func (h *Host) SetDrawingData(ctx context.Context, data string) error {
	return h.store.SetCanvas(ctx, h.code, data)
}

// ChatHistory returns the room's persisted chat log
func (h *Host) ChatHistory(ctx context.Context) ([]model.ChatMessage, error) {
	return h.store.GetChatHistory(ctx, h.code)
}

// SaveGeneratedImage stores a generated image and returns the URL path
// it is served from
func (h *Host) SaveGeneratedImage(ctx context.Context, data []byte, playerID model.PlayerID, round int) (string, error) {
	ref := fmt.Sprintf("%s-%d-%s-%s", h.code, round, playerID, uuid.New().String())
	if err := h.store.SaveMedia(ctx, ref, data); err != nil {
		return "", err
	}
	return "/api/media/" + ref, nil
}

// Sanitize strips characters outside alphanumerics, whitespace and the
// given allow-list, collapses runs of whitespace, and bounds the length
func (h *Host) Sanitize(text, allowedExtra string) string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case strings.ContainsRune(allowedExtra, r):
			b.WriteRune(r)
		}
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")
	// Cap on a rune boundary; letters outside ASCII pass the filter and a
	// byte slice could split one mid-sequence
	if utf8.RuneCountInString(cleaned) > maxMessageLength {
		cleaned = string([]rune(cleaned)[:maxMessageLength])
	}
	return cleaned
}

// UpdateScores applies score deltas to the roster and persists the room
func (h *Host) UpdateScores(deltas map[model.PlayerID]int) {
	h.mu.Lock()
	for id, delta := range deltas {
		if p, ok := h.players[id]; ok {
			p.Score += delta
			h.players[id] = p
		}
	}
	h.mu.Unlock()

	h.persistRoom()
}

// SyncGameState signals clients to refetch engine state
func (h *Host) SyncGameState() {
	h.EmitToRoom(model.EventStateSync, nil)
}

// persistChat appends a chat message to storage on a background context
func (h *Host) persistChat(msg model.ChatMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := h.store.AppendChatMessage(ctx, h.code, msg); err != nil {
		h.logger.Warn("chat persist failed", slog.String("error", err.Error()))
	}
}

// persistRoom writes the current roster back to the room record
func (h *Host) persistRoom() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	room, err := h.store.GetRoom(ctx, h.code)
	if err != nil {
		h.logger.Warn("room load for persist failed", slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	room.Players = make(map[model.PlayerID]model.RoomPlayer, len(h.players))
	for id, p := range h.players {
		room.Players[id] = p
	}
	h.mu.RUnlock()

	if err := h.store.SaveRoom(ctx, room); err != nil {
		h.logger.Warn("room persist failed", slog.String("error", err.Error()))
	}
}

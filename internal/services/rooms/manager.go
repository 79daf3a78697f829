// Package rooms implements the room manager: the service that creates
// rooms, wires a host and game engine together for each one, and routes
// player actions from the API into the right engine.
package rooms

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playroomlabs/partyroom/internal/dependencies/clock"
	"github.com/playroomlabs/partyroom/internal/dependencies/random"
	"github.com/playroomlabs/partyroom/internal/engine"
	"github.com/playroomlabs/partyroom/internal/engine/adventure"
	"github.com/playroomlabs/partyroom/internal/engine/drawing"
	"github.com/playroomlabs/partyroom/internal/gen"
	"github.com/playroomlabs/partyroom/internal/model"
	"github.com/playroomlabs/partyroom/internal/room"
	"github.com/playroomlabs/partyroom/internal/sse"
	"github.com/playroomlabs/partyroom/internal/storage"
	"github.com/playroomlabs/partyroom/internal/timers"
)

const (
	roomCodeLength   = 6
	roomCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	// createAttempts bounds room code collision retries
	createAttempts = 5

	// persistTimeout bounds background storage writes made outside a
	// request context
	persistTimeout = 5 * time.Second
)

// playerColors are assigned round-robin by join order
var playerColors = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c",
}

// Config holds the engine configurations the manager wires into rooms
type Config struct {
	Drawing   drawing.Config
	Adventure adventure.Config
}

// DefaultConfig returns standard engine configurations
func DefaultConfig() Config {
	return Config{
		Drawing:   drawing.DefaultConfig(),
		Adventure: adventure.DefaultConfig(),
	}
}

// Manager creates and tracks live rooms
type Manager struct {
	mu sync.Mutex

	store     storage.Storage
	hubs      *sse.HubManager
	gateway   gen.Gateway
	clock     clock.Clock
	random    random.Random
	scheduler timers.Scheduler
	cfg       Config
	logger    *slog.Logger

	active map[model.RoomCode]*activeRoom
}

type activeRoom struct {
	host   *room.Host
	engine engine.GameEngine
}

// NewManager creates a room manager
func NewManager(
	store storage.Storage,
	hubs *sse.HubManager,
	gateway gen.Gateway,
	clk clock.Clock,
	rnd random.Random,
	scheduler timers.Scheduler,
	cfg Config,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		store:     store,
		hubs:      hubs,
		gateway:   gateway,
		clock:     clk,
		random:    rnd,
		scheduler: scheduler,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "rooms")),
		active:    make(map[model.RoomCode]*activeRoom),
	}
}

// CreateRoom creates a room of the given kind and starts its engine
func (m *Manager) CreateRoom(ctx context.Context, kind model.GameKind) (*model.Room, error) {
	if kind != model.GameKindDrawing && kind != model.GameKindAdventure {
		return nil, model.ErrUnknownGameKind
	}

	var code model.RoomCode
	for attempt := 0; attempt < createAttempts; attempt++ {
		candidate := model.RoomCode(m.random.String(roomCodeLength, roomCodeAlphabet))
		exists, err := m.store.RoomExists(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if !exists {
			code = candidate
			break
		}
	}
	if code == "" {
		return nil, model.ErrRoomNotFound
	}

	rm := model.NewRoom(code, kind, m.clock.Now())
	if err := m.store.SaveRoom(ctx, rm); err != nil {
		return nil, err
	}

	hub := m.hubs.GetOrCreateHub(code)
	host := room.NewHost(code, hub, m.store, m.scheduler, m.clock, m.logger)

	var eng engine.GameEngine
	switch kind {
	case model.GameKindDrawing:
		eng = drawing.New(host, m.gateway, m.clock, m.random, m.scheduler, m.cfg.Drawing, m.logger)
	case model.GameKindAdventure:
		eng = adventure.New(host, m.gateway, m.clock, m.random, m.scheduler, m.cfg.Adventure, m.logger)
	}

	host.SetTimerHandler(eng.OnTimerExpired)
	if hooked, ok := eng.(interface{ OnEnded(func(reason string)) }); ok {
		hooked.OnEnded(func(reason string) { m.onEngineEnded(code, reason) })
	}

	m.mu.Lock()
	m.active[code] = &activeRoom{host: host, engine: eng}
	m.mu.Unlock()

	eng.Start()

	m.logger.Info("room created",
		slog.String("room", string(code)),
		slog.String("kind", string(kind)),
	)
	return rm, nil
}

// JoinRoom adds a human player to a live room
func (m *Manager) JoinRoom(ctx context.Context, code model.RoomCode, username string) (model.RoomPlayer, error) {
	return m.addPlayer(ctx, code, username, nil)
}

// AddAIPlayer adds a simulated player to a live room. Missing profile
// fields are filled from the default pool.
func (m *Manager) AddAIPlayer(ctx context.Context, code model.RoomCode, username, personality string) (model.RoomPlayer, error) {
	profile := m.buildAIProfile(username, personality)
	return m.addPlayer(ctx, code, profile.Username, &profile)
}

func (m *Manager) addPlayer(ctx context.Context, code model.RoomCode, username string, profile *model.AIProfile) (model.RoomPlayer, error) {
	ar, err := m.activeRoom(code)
	if err != nil {
		return model.RoomPlayer{}, err
	}

	rm, err := m.store.GetRoom(ctx, code)
	if err != nil {
		return model.RoomPlayer{}, err
	}
	if rm.Ended {
		return model.RoomPlayer{}, model.ErrRoomEnded
	}
	for _, p := range rm.Players {
		if p.Username == username {
			return model.RoomPlayer{}, model.ErrAlreadyInRoom
		}
	}

	player := model.RoomPlayer{
		ID:       model.PlayerID(uuid.New().String()),
		Username: username,
		Color:    playerColors[len(rm.Players)%len(playerColors)],
		IsAI:     profile != nil,
		JoinedAt: m.clock.Now(),
	}

	rm.Players[player.ID] = player
	if err := m.store.SaveRoom(ctx, rm); err != nil {
		return model.RoomPlayer{}, err
	}

	ar.host.AddPlayer(player, profile)
	ar.engine.OnPlayerJoin(player)
	return player, nil
}

// LeaveRoom removes a player from a live room
func (m *Manager) LeaveRoom(ctx context.Context, code model.RoomCode, id model.PlayerID) error {
	ar, err := m.activeRoom(code)
	if err != nil {
		return err
	}

	rm, err := m.store.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	if _, ok := rm.Players[id]; !ok {
		return model.ErrPlayerNotFound
	}
	delete(rm.Players, id)
	if err := m.store.SaveRoom(ctx, rm); err != nil {
		return err
	}

	ar.host.RemovePlayer(id)
	ar.engine.OnPlayerLeave(id)
	return nil
}

// HandleCommand routes a player command to the room's engine
func (m *Manager) HandleCommand(code model.RoomCode, id model.PlayerID, name, value string) error {
	ar, err := m.activeRoom(code)
	if err != nil {
		return err
	}
	ar.engine.OnCommand(id, name, value)
	return nil
}

// HandleVote routes a vote to the room's engine
func (m *Manager) HandleVote(code model.RoomCode, voter, target model.PlayerID) error {
	ar, err := m.activeRoom(code)
	if err != nil {
		return err
	}
	ar.engine.OnVote(voter, target)
	return nil
}

// SendChat broadcasts a non-guess chat message from a player
func (m *Manager) SendChat(code model.RoomCode, id model.PlayerID, text string) error {
	ar, err := m.activeRoom(code)
	if err != nil {
		return err
	}
	text = ar.host.Sanitize(text, "'!?,.-")
	if text == "" {
		return nil
	}
	ar.host.SendPlayerMessage(id, text, false)
	return nil
}

// SetDrawing stores a canvas snapshot and notifies the engine
func (m *Manager) SetDrawing(ctx context.Context, code model.RoomCode, id model.PlayerID, data string) error {
	ar, err := m.activeRoom(code)
	if err != nil {
		return err
	}
	if err := ar.host.SetDrawingData(ctx, data); err != nil {
		return err
	}
	ar.engine.OnCommand(id, "drawingUpdated", "")
	return nil
}

// GameState returns the engine's state snapshot for a room
func (m *Manager) GameState(code model.RoomCode) (any, error) {
	ar, err := m.activeRoom(code)
	if err != nil {
		return nil, err
	}
	return ar.engine.Snapshot(), nil
}

// Room returns the persisted room record
func (m *Manager) Room(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return m.store.GetRoom(ctx, code)
}

// ChatHistory returns the room's persisted chat log
func (m *Manager) ChatHistory(ctx context.Context, code model.RoomCode) ([]model.ChatMessage, error) {
	return m.store.GetChatHistory(ctx, code)
}

// Hub returns the SSE hub for a live room, or nil
func (m *Manager) Hub(code model.RoomCode) *sse.Hub {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.active[code]; !ok {
		return nil
	}
	return m.hubs.GetHub(code)
}

// Shutdown closes every live room's engine
func (m *Manager) Shutdown() {
	m.mu.Lock()
	engines := make([]engine.GameEngine, 0, len(m.active))
	for _, ar := range m.active {
		engines = append(engines, ar.engine)
	}
	m.mu.Unlock()

	for _, eng := range engines {
		eng.Close()
	}
}

func (m *Manager) activeRoom(code model.RoomCode) (*activeRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ar, ok := m.active[code]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return ar, nil
}

// onEngineEnded tears down a room once its engine reports completion
func (m *Manager) onEngineEnded(code model.RoomCode, reason string) {
	m.mu.Lock()
	ar, ok := m.active[code]
	delete(m.active, code)
	m.mu.Unlock()
	if !ok {
		return
	}

	ar.host.Shutdown()
	m.hubs.RemoveHub(code)

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if rm, err := m.store.GetRoom(ctx, code); err == nil {
		rm.Ended = true
		if err := m.store.SaveRoom(ctx, rm); err != nil {
			m.logger.Warn("room end persist failed", slog.String("error", err.Error()))
		}
	}

	m.logger.Info("room ended",
		slog.String("room", string(code)),
		slog.String("reason", reason),
	)
}

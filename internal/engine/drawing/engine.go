// Package drawing implements the drawing-guessing game engine: one drawer
// per round, free-text guesses, AI-generated images per guess, and a
// strict-majority vote among the generated results.
package drawing

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/playroomlabs/partyroom/internal/dependencies/clock"
	"github.com/playroomlabs/partyroom/internal/dependencies/random"
	"github.com/playroomlabs/partyroom/internal/engine"
	"github.com/playroomlabs/partyroom/internal/gen"
	"github.com/playroomlabs/partyroom/internal/model"
	"github.com/playroomlabs/partyroom/internal/timers"
)

// Phase represents the current phase of a drawing game round
type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhaseDrawing    Phase = "drawing"
	PhaseGenerating Phase = "generating"
	PhaseVoting     Phase = "voting"
	PhaseResults    Phase = "results"
	PhaseEnded      Phase = "ended"
)

// Config holds drawing engine settings
type Config struct {
	DrawDuration    time.Duration
	VoteDuration    time.Duration
	ResultsDuration time.Duration

	// DeadlineGuard prevents AI actions from being scheduled within this
	// window of a phase deadline
	DeadlineGuard time.Duration
	// LastChanceLead is how long before the drawing deadline the
	// last-chance guess sweep fires
	LastChanceLead time.Duration
	// LastChanceDelay is the imminent delay for force-scheduled guesses
	LastChanceDelay time.Duration

	Delays engine.Delays
}

// DefaultConfig returns the standard drawing game configuration
func DefaultConfig() Config {
	return Config{
		DrawDuration:    90 * time.Second,
		VoteDuration:    30 * time.Second,
		ResultsDuration: 10 * time.Second,
		DeadlineGuard:   time.Second,
		LastChanceLead:  8 * time.Second,
		LastChanceDelay: 2 * time.Second,
		Delays:          engine.DefaultDelays(),
	}
}

type playerState struct {
	score int
}

type aiState struct {
	lastGuessTime time.Time
	lastChatTime  time.Time
	hasGuessed    bool
	hasCommented  bool
}

// Engine is the per-room drawing game state machine. All entry points
// serialise on the engine mutex; scheduled callbacks and generation
// completions re-validate the phase epoch before touching state.
type Engine struct {
	mu sync.Mutex

	host      engine.Host
	gateway   gen.Gateway
	clock     clock.Clock
	random    random.Random
	scheduler timers.Scheduler
	aiTimers  *engine.AITimers
	logger    *slog.Logger
	cfg       Config

	ctx    context.Context
	cancel context.CancelFunc

	phase Phase
	// epoch increments on every phase change; stale callbacks compare
	// their captured epoch and no-op on mismatch
	epoch uint64
	round int

	order   []model.PlayerID // join order, pruned on leave
	players map[model.PlayerID]*playerState
	ai      map[model.PlayerID]*aiState

	drawer     model.PlayerID
	guessOrder []model.PlayerID
	guesses    map[model.PlayerID]string
	votes      map[model.PlayerID]model.PlayerID
	results    []model.GeneratedResult

	lastChance timers.Handle

	onEnded func(reason string)
}

// Ensure Engine implements the game engine contract
var _ engine.GameEngine = (*Engine)(nil)

// New creates a drawing engine for a room
func New(
	host engine.Host,
	gateway gen.Gateway,
	clk clock.Clock,
	rnd random.Random,
	scheduler timers.Scheduler,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		host:      host,
		gateway:   gateway,
		clock:     clk,
		random:    rnd,
		scheduler: scheduler,
		aiTimers:  engine.NewAITimers(scheduler),
		logger:    logger.With(slog.String("component", "drawing-engine")),
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		phase:     PhaseWaiting,
		players:   make(map[model.PlayerID]*playerState),
		ai:        make(map[model.PlayerID]*aiState),
		guesses:   make(map[model.PlayerID]string),
		votes:     make(map[model.PlayerID]model.PlayerID),
	}
}

// OnEnded registers a hook invoked (on its own goroutine) when the engine
// tears down
func (e *Engine) OnEnded(fn func(reason string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onEnded = fn
}

// Start seeds the engine from the host roster and begins the first round
// if anyone is present
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, p := range e.host.Players() {
		e.addPlayer(p)
	}
	if len(e.order) > 0 {
		e.startRound()
	}
}

// OnPlayerJoin adds a player; if the room was waiting, a round begins
func (e *Engine) OnPlayerJoin(player model.RoomPlayer) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == PhaseEnded {
		return
	}
	if _, ok := e.players[player.ID]; ok {
		return
	}

	e.addPlayer(player)
	e.logger.Info("player joined game",
		slog.String("player_id", string(player.ID)),
		slog.Bool("is_ai", player.IsAI),
	)

	if e.phase == PhaseWaiting {
		e.startRound()
		return
	}

	// Joining mid-round: let a simulated player engage with the round
	if player.IsAI && e.phase == PhaseDrawing {
		e.scheduleAIComment(player.ID, true)
		e.scheduleAIGuess(player.ID, true)
	}
}

// OnPlayerLeave removes a player and all its pending timers atomically,
// then reconciles the current phase against the smaller roster
func (e *Engine) OnPlayerLeave(id model.PlayerID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == PhaseEnded {
		return
	}
	if _, ok := e.players[id]; !ok {
		return
	}

	wasDrawer := id == e.drawer
	e.removePlayer(id)

	if len(e.players) == 0 {
		e.teardown("room empty")
		return
	}
	if e.phase != PhaseWaiting && !e.anyHumans() {
		e.teardown("only simulated players remain")
		return
	}

	switch e.phase {
	case PhaseDrawing:
		if wasDrawer {
			e.host.SendSystemMessage("The drawer left, skipping to the next round.", true)
			e.advanceRound()
		}
	case PhaseVoting:
		delete(e.votes, id)
		e.pruneVotesFor(id)
		e.checkVotesComplete()
	}
}

// OnCommand handles player commands. Command names beginning with "g" are
// guess submissions; the drawer may end the round early with "endRound"
// and reports canvas updates with "drawingUpdated".
func (e *Engine) OnCommand(id model.PlayerID, name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == PhaseEnded {
		return
	}
	if _, ok := e.players[id]; !ok {
		return
	}

	if strings.HasPrefix(name, "g") {
		e.submitGuess(id, value)
		return
	}

	switch name {
	case "endRound":
		if e.phase == PhaseDrawing && id == e.drawer {
			e.endDrawing()
		}
	case "drawingUpdated":
		if e.phase == PhaseDrawing && id == e.drawer {
			e.host.EmitToRoom(model.EventDrawingUpdated, nil)
			e.rearmGuessesAfterDrawingUpdate()
		}
	}
}

// OnVote records a vote during the voting phase. Invalid or stale votes
// are silently rejected; they are expected races, not faults.
func (e *Engine) OnVote(voter, target model.PlayerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recordVote(voter, target)
}

// OnTimerExpired handles phase deadline expiry. Notifications for phases
// already advanced past are no-ops.
func (e *Engine) OnTimerExpired(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch name {
	case engine.TimerRoundEnd:
		if e.phase == PhaseDrawing {
			e.endDrawing()
		}
	case engine.TimerVoteEnd:
		if e.phase == PhaseVoting {
			e.tallyVotes()
		}
	case engine.TimerResultsEnd:
		if e.phase == PhaseResults {
			e.advanceRound()
		}
	}
}

// Snapshot returns a read-only view of the engine state
func (e *Engine) Snapshot() any {
	e.mu.Lock()
	defer e.mu.Unlock()

	scores := make(map[model.PlayerID]int, len(e.players))
	for id, p := range e.players {
		scores[id] = p.score
	}
	return Snapshot{
		Phase:      e.phase,
		Round:      e.round,
		DrawerID:   e.drawer,
		GuessCount: len(e.guessOrder),
		VoteCount:  len(e.votes),
		Results:    append([]model.GeneratedResult(nil), e.results...),
		Scores:     scores,
	}
}

// Snapshot is the client-facing engine state
type Snapshot struct {
	Phase      Phase
	Round      int
	DrawerID   model.PlayerID
	GuessCount int
	VoteCount  int
	Results    []model.GeneratedResult
	Scores     map[model.PlayerID]int
}

// Close tears the engine down
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhaseEnded {
		e.teardown("closed")
	}
}

// addPlayer registers a player. Caller holds the lock.
func (e *Engine) addPlayer(p model.RoomPlayer) {
	e.players[p.ID] = &playerState{score: p.Score}
	e.order = append(e.order, p.ID)
	if p.IsAI {
		e.ai[p.ID] = &aiState{}
	}
}

// removePlayer drops a player from both maps and cancels its timers.
// Caller holds the lock.
func (e *Engine) removePlayer(id model.PlayerID) {
	delete(e.players, id)
	delete(e.ai, id)
	delete(e.guesses, id)
	for i, pid := range e.order {
		if pid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	for i, pid := range e.guessOrder {
		if pid == id {
			e.guessOrder = append(e.guessOrder[:i], e.guessOrder[i+1:]...)
			break
		}
	}
	e.aiTimers.CancelPlayer(id)
}

func (e *Engine) anyHumans() bool {
	for id := range e.players {
		if _, isAI := e.ai[id]; !isAI {
			return true
		}
	}
	return false
}

// bumpEpoch invalidates every outstanding callback and generation result
func (e *Engine) bumpEpoch() {
	e.epoch++
}

// run executes fn under the lock iff the engine is still in the epoch the
// caller captured. Stale fires are dropped silently.
func (e *Engine) run(epoch uint64, fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == PhaseEnded || e.epoch != epoch {
		return
	}
	fn()
}

// teardown ends the game and cancels all pending work. Caller holds the lock.
func (e *Engine) teardown(reason string) {
	e.phase = PhaseEnded
	e.bumpEpoch()
	e.cancel()
	e.stopLastChance()
	e.aiTimers.CancelAll()
	e.host.ClearTimer(engine.TimerRoundEnd)
	e.host.ClearTimer(engine.TimerVoteEnd)
	e.host.ClearTimer(engine.TimerResultsEnd)
	e.players = make(map[model.PlayerID]*playerState)
	e.ai = make(map[model.PlayerID]*aiState)
	e.order = nil
	e.guessOrder = nil
	e.guesses = make(map[model.PlayerID]string)
	e.votes = make(map[model.PlayerID]model.PlayerID)
	e.results = nil

	e.logger.Info("drawing engine ended", slog.String("reason", reason))
	e.host.EmitToRoom(model.EventGameEnded, model.GameOverPayload{Reason: reason})

	if e.onEnded != nil {
		hook := e.onEnded
		go hook(reason)
	}
}

func (e *Engine) stopLastChance() {
	if e.lastChance != nil {
		e.lastChance.Stop()
		e.lastChance = nil
	}
}

func (e *Engine) playerName(id model.PlayerID) string {
	if p, ok := e.host.Players()[id]; ok {
		return p.Username
	}
	return string(id)
}

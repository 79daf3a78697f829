// Package adventure implements the collaborative text-adventure engine:
// players propose free-text actions, AI generates an outcome per action,
// the room votes by plurality, and the winning outcome becomes the world.
package adventure

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

// Phase represents the current phase of an adventure round
type Phase string

const (
	PhaseInitializing      Phase = "initializing"
	PhaseDescribing        Phase = "describing"
	PhaseInput             Phase = "input"
	PhaseGeneratingActions Phase = "generatingActions"
	PhaseVoting            Phase = "voting"
	PhaseGeneratingResult  Phase = "generatingResult"
	PhaseResults           Phase = "results"
	PhaseEnded             Phase = "ended"
)

const (
	// DefaultStartingScene opens every adventure
	DefaultStartingScene = "You are standing in an open field west of a white house, with a boarded front door. There is a small mailbox here."

	// failedOutcomeText replaces outcomes whose generation failed
	failedOutcomeText = "The magic fizzles and nothing much happens. Perhaps fate had other plans."
)

// terminalPhrases end the game when they appear in a winning narrative
var terminalPhrases = []string{
	"you have died",
	"eaten by a grue",
}

// Config holds adventure engine settings
type Config struct {
	InputDuration   time.Duration
	VoteDuration    time.Duration
	ResultsDuration time.Duration

	// DeadlineGuard prevents AI actions from being scheduled within this
	// window of a phase deadline
	DeadlineGuard time.Duration
	// GraceDelay lets a near-simultaneous last submission land before the
	// early input-quorum advance fires
	GraceDelay time.Duration
	// ActionCap bounds how many of the earliest actions are generated
	ActionCap int

	StartingScene    string
	PlaceholderImage string

	Delays engine.Delays
}

// DefaultConfig returns the standard adventure configuration
func DefaultConfig() Config {
	return Config{
		InputDuration:    60 * time.Second,
		VoteDuration:     30 * time.Second,
		ResultsDuration:  12 * time.Second,
		DeadlineGuard:    time.Second,
		GraceDelay:       1500 * time.Millisecond,
		ActionCap:        8,
		StartingScene:    DefaultStartingScene,
		PlaceholderImage: "/static/placeholder-scene.png",
		Delays:           engine.DefaultDelays(),
	}
}

type playerState struct {
	score int
}

type aiState struct {
	lastChatTime   time.Time
	lastActionTime time.Time
	hasCommented   bool
}

// Engine is the per-room adventure state machine. All entry points
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
	epoch uint64
	round int

	players map[model.PlayerID]*playerState
	ai      map[model.PlayerID]*aiState

	world *model.World

	actionOrder []model.PlayerID
	actions     map[model.PlayerID]string
	votes       map[model.PlayerID]model.PlayerID
	results     []model.GeneratedResult

	graceArmed bool
	grace      timers.Handle

	onEnded func(reason string)
}

// Ensure Engine implements the game engine contract
var _ engine.GameEngine = (*Engine)(nil)

// New creates an adventure engine for a room
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
		logger:    logger.With(slog.String("component", "adventure-engine")),
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		phase:     PhaseInitializing,
		world:     model.NewWorld(cfg.StartingScene),
		players:   make(map[model.PlayerID]*playerState),
		ai:        make(map[model.PlayerID]*aiState),
		actions:   make(map[model.PlayerID]string),
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

// Start seeds the roster and requests the opening scene illustration.
// Image failure substitutes the placeholder rather than blocking.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, p := range e.host.Players() {
		e.addPlayer(p)
	}
	e.round = 1

	epoch := e.epoch
	go func() {
		imageRef := e.cfg.PlaceholderImage
		img, err := e.gateway.GenerateImage(e.ctx, "An illustration of: "+e.cfg.StartingScene, "")
		if err == nil && img != nil {
			if ref, saveErr := e.host.SaveGeneratedImage(e.ctx, img.ImageData, "scene", 0); saveErr == nil {
				imageRef = ref
			}
		} else {
			e.logger.Warn("starting scene image failed, using placeholder")
		}
		e.run(epoch, func() {
			if e.phase != PhaseInitializing {
				return
			}
			e.world.ImageRef = imageRef
			e.describeScene()
		})
	}()
}

// OnPlayerJoin adds a player mid-game
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
	e.host.SendSystemMessageTo(player.ID, e.world.Description)

	if player.IsAI && e.phase == PhaseInput {
		e.scheduleAIComment(player.ID, true)
		e.scheduleAIAction(player.ID)
	}
}

// OnPlayerLeave removes a player and reconciles the current phase
func (e *Engine) OnPlayerLeave(id model.PlayerID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == PhaseEnded {
		return
	}
	if _, ok := e.players[id]; !ok {
		return
	}

	e.removePlayer(id)

	if len(e.players) == 0 {
		e.teardown("room empty")
		return
	}
	if !e.anyHumans() {
		e.teardown("only simulated players remain")
		return
	}

	switch e.phase {
	case PhaseInput:
		e.checkInputQuorum()
	case PhaseVoting:
		delete(e.votes, id)
		e.pruneVotesFor(id)
		e.checkVotesComplete()
	}
}

// OnCommand handles player commands; names beginning with "g" submit an
// action for the round
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
		e.submitAction(id, value)
	}
}

// OnVote records a vote during the voting phase
func (e *Engine) OnVote(voter, target model.PlayerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recordVote(voter, target)
}

// OnTimerExpired handles phase deadline expiry; stale notifications no-op
func (e *Engine) OnTimerExpired(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch name {
	case engine.TimerRoundEnd:
		if e.phase == PhaseInput {
			e.closeInput()
		}
	case engine.TimerVoteEnd:
		if e.phase == PhaseVoting {
			e.tallyVotes()
		}
	case engine.TimerResultsEnd:
		if e.phase == PhaseResults {
			e.nextRound()
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
		Phase:       e.phase,
		Round:       e.round,
		Description: e.world.Description,
		ImageRef:    e.world.ImageRef,
		Inventory:   e.world.Inventory.Items(),
		ActionCount: len(e.actionOrder),
		VoteCount:   len(e.votes),
		Results:     append([]model.GeneratedResult(nil), e.results...),
		Scores:      scores,
	}
}

// Snapshot is the client-facing engine state
type Snapshot struct {
	Phase       Phase
	Round       int
	Description string
	ImageRef    string
	Inventory   []string
	ActionCount int
	VoteCount   int
	Results     []model.GeneratedResult
	Scores      map[model.PlayerID]int
}

// Close tears the engine down
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhaseEnded {
		e.teardown("closed")
	}
}

func (e *Engine) addPlayer(p model.RoomPlayer) {
	e.players[p.ID] = &playerState{score: p.Score}
	if p.IsAI {
		e.ai[p.ID] = &aiState{}
	}
}

func (e *Engine) removePlayer(id model.PlayerID) {
	delete(e.players, id)
	delete(e.ai, id)
	delete(e.actions, id)
	for i, pid := range e.actionOrder {
		if pid == id {
			e.actionOrder = append(e.actionOrder[:i], e.actionOrder[i+1:]...)
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

func (e *Engine) humanCount() int {
	n := 0
	for id := range e.players {
		if _, isAI := e.ai[id]; !isAI {
			n++
		}
	}
	return n
}

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
	e.stopGrace()
	e.aiTimers.CancelAll()
	e.host.ClearTimer(engine.TimerRoundEnd)
	e.host.ClearTimer(engine.TimerVoteEnd)
	e.host.ClearTimer(engine.TimerResultsEnd)
	e.players = make(map[model.PlayerID]*playerState)
	e.ai = make(map[model.PlayerID]*aiState)
	e.actionOrder = nil
	e.actions = make(map[model.PlayerID]string)
	e.votes = make(map[model.PlayerID]model.PlayerID)
	e.results = nil

	e.logger.Info("adventure engine ended", slog.String("reason", reason))
	e.host.EmitToRoom(model.EventGameEnded, model.GameOverPayload{Reason: reason})

	if e.onEnded != nil {
		hook := e.onEnded
		go hook(reason)
	}
}

func (e *Engine) stopGrace() {
	if e.grace != nil {
		e.grace.Stop()
		e.grace = nil
	}
	e.graceArmed = false
}

func (e *Engine) playerName(id model.PlayerID) string {
	if p, ok := e.host.Players()[id]; ok {
		return p.Username
	}
	return string(id)
}

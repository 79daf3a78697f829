// Package engine defines the contracts between a room host and the
// per-room game engines, plus the AI-scheduling helpers both engines share.
package engine

import (
	"context"
	"time"

	"github.com/playroomlabs/partyroom/internal/model"
)

// Timer names used for phase deadlines. The room host owns one active
// timer per name per room.
const (
	TimerRoundEnd   = "roundEnd"
	TimerVoteEnd    = "voteEnd"
	TimerResultsEnd = "resultsEnd"
)

// GameEngine is the contract a room host drives. The two game engines are
// interchangeable implementations.
type GameEngine interface {
	// Start begins the game once the engine is wired to its host
	Start()
	OnPlayerJoin(player model.RoomPlayer)
	OnPlayerLeave(id model.PlayerID)
	// OnCommand delivers a named command; only command names beginning
	// with "g" are treated as guess/action submissions
	OnCommand(id model.PlayerID, name, value string)
	OnVote(voter, target model.PlayerID)
	OnTimerExpired(name string)
	// Snapshot returns a read-only view of engine state for clients
	Snapshot() any
	// Close tears the engine down, cancelling all pending work
	Close()
}

// Host is the collaborator contract the room host implements for engines.
// All emission is best-effort; the engine assumes no delivery guarantees.
type Host interface {
	EmitToRoom(event model.EventType, payload any)
	EmitToPlayer(id model.PlayerID, event model.EventType, payload any)

	// StartTimer arms a named deadline, replacing any prior timer of the
	// same name. Expiry is delivered back via GameEngine.OnTimerExpired.
	StartTimer(name string, d time.Duration)
	ClearTimer(name string)
	// TimerEndTime returns when the named timer fires, or the zero time
	TimerEndTime(name string) time.Time

	SendSystemMessage(text string, persist bool)
	SendSystemMessageTo(id model.PlayerID, text string)
	SendPlayerMessage(id model.PlayerID, text string, isGuess bool)

	// Players returns the authoritative roster, read-only for engines
	Players() map[model.PlayerID]model.RoomPlayer
	AIProfile(id model.PlayerID) (model.AIProfile, bool)

	// DrawingData returns the canvas snapshot; empty string means blank.
	// The snapshot may be stale; engines must tolerate both.
	DrawingData(ctx context.Context) (string, error)
	SetDrawingData(ctx context.Context, data string) error
	ChatHistory(ctx context.Context) ([]model.ChatMessage, error)

	SaveGeneratedImage(ctx context.Context, data []byte, playerID model.PlayerID, round int) (string, error)

	// Sanitize strips characters outside alphanumerics, whitespace and
	// the given allow-list
	Sanitize(text, allowedExtra string) string

	// UpdateScores applies score deltas to the roster
	UpdateScores(deltas map[model.PlayerID]int)
	// SyncGameState signals clients to refetch engine state
	SyncGameState()
}

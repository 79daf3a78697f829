package model

// EventType identifies the type of event broadcast to a room
type EventType string

const (
	// Room events
	EventPlayerJoined EventType = "player_joined"
	EventPlayerLeft   EventType = "player_left"
	EventChatMessage  EventType = "chat_message"
	EventStateSync    EventType = "state_sync"
	EventTimerStarted EventType = "timer_started"

	// Drawing game events
	EventRoundStarted    EventType = "round_started"
	EventDrawingUpdated  EventType = "drawing_updated"
	EventGenerating      EventType = "generating"
	EventVotingStarted   EventType = "voting_started"
	EventVoteRecorded    EventType = "vote_recorded"
	EventRoundResults    EventType = "round_results"
	EventGameEnded       EventType = "game_ended"

	// Adventure game events
	EventSceneDescribed   EventType = "scene_described"
	EventInputOpen        EventType = "input_open"
	EventActionsPresented EventType = "actions_presented"
	EventOutcomeRevealed  EventType = "outcome_revealed"
	EventInventoryChanged EventType = "inventory_changed"
	EventGameOver         EventType = "game_over"
)

// PlayerJoinedPayload contains data for player joined events
type PlayerJoinedPayload struct {
	Player RoomPlayer
}

// PlayerLeftPayload contains data for player left events
type PlayerLeftPayload struct {
	PlayerID PlayerID
	Username string
}

// ChatMessagePayload contains data for chat message events
type ChatMessagePayload struct {
	Message ChatMessage
	IsGuess bool
}

// TimerStartedPayload announces a named deadline to clients
type TimerStartedPayload struct {
	Name       string
	DurationMs int64
	EndsAtMs   int64
}

// RoundStartedPayload contains data for drawing round started events
type RoundStartedPayload struct {
	Round      int
	DrawerID   PlayerID
	DrawerName string
}

// VotingStartedPayload carries the options presented for voting
type VotingStartedPayload struct {
	Round   int
	Results []GeneratedResult
}

// VoteRecordedPayload reports vote progress without revealing targets
type VoteRecordedPayload struct {
	VotesCast      int
	EligibleVoters int
}

// RoundResultsPayload contains data for drawing round results events
type RoundResultsPayload struct {
	Round   int
	Winners []PlayerID
	Tally   map[PlayerID]int
	Scores  map[PlayerID]int
}

// SceneDescribedPayload broadcasts the adventure world state
type SceneDescribedPayload struct {
	Round       int
	Description string
	ImageRef    string
	Inventory   []string
}

// ActionsPresentedPayload carries generated action outcomes for voting
type ActionsPresentedPayload struct {
	Round   int
	Results []GeneratedResult
}

// OutcomeRevealedPayload contains the canonical outcome of a round
type OutcomeRevealedPayload struct {
	Round      int
	WinnerID   PlayerID
	WinnerName string
	Narrative  string
	ImageRef   string
}

// InventoryChangedPayload summarises inventory deltas
type InventoryChangedPayload struct {
	Added   []string
	Removed []string
	Items   []string
}

// GameOverPayload contains data for terminal game over events
type GameOverPayload struct {
	Reason string
}

package request

// CreateRoomRequest creates a new game room
type CreateRoomRequest struct {
	Kind string `json:"kind"`
}

// JoinRoomRequest joins a human player to a room
type JoinRoomRequest struct {
	Username string `json:"username"`
}

// AddAIRequest adds a simulated player to a room
type AddAIRequest struct {
	Username    string `json:"username"`
	Personality string `json:"personality"`
}

// LeaveRoomRequest removes a player from a room
type LeaveRoomRequest struct {
	PlayerID string `json:"player_id"`
}

// CommandRequest delivers a named command to the room's engine
type CommandRequest struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Value    string `json:"value"`
}

// VoteRequest casts a vote for a result by its submitting player
type VoteRequest struct {
	PlayerID string `json:"player_id"`
	TargetID string `json:"target_id"`
}

// ChatRequest sends a chat message to the room
type ChatRequest struct {
	PlayerID string `json:"player_id"`
	Text     string `json:"text"`
}

// DrawingRequest stores a canvas snapshot
type DrawingRequest struct {
	PlayerID string `json:"player_id"`
	Data     string `json:"data"`
}

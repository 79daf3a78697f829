package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// RoomCode is a human-readable identifier for joining rooms
type RoomCode string

// GameKind selects which game engine a room runs
type GameKind string

const (
	GameKindDrawing   GameKind = "drawing"
	GameKindAdventure GameKind = "adventure"
)

// RoomPlayer is a roster entry as the room host tracks it.
// Username and colour are authoritative here; engines mirror only the score.
type RoomPlayer struct {
	ID       PlayerID
	Username string
	Score    int
	Color    string
	IsAI     bool
	JoinedAt time.Time
}

// AIProfile holds the identity of a simulated player
type AIProfile struct {
	Username    string
	Personality string // core personality prompt fed into generation requests
}

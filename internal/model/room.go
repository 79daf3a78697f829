package model

import "time"

// MaxChatHistory bounds the persisted chat log per room
const MaxChatHistory = 200

// Room is the persistent record of a game room
type Room struct {
	Code      RoomCode
	Kind      GameKind
	Players   map[PlayerID]RoomPlayer
	CreatedAt time.Time
	Ended     bool
}

// NewRoom creates an empty room of the given kind
func NewRoom(code RoomCode, kind GameKind, createdAt time.Time) *Room {
	return &Room{
		Code:      code,
		Kind:      kind,
		Players:   make(map[PlayerID]RoomPlayer),
		CreatedAt: createdAt,
	}
}

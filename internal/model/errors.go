package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Room errors
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomEnded       = errors.New("room game has ended")
	ErrAlreadyInRoom   = errors.New("player is already in room")
	ErrUnknownGameKind = errors.New("unknown game kind")

	// Storage errors
	ErrMediaNotFound = errors.New("media not found")
)

package model

import "time"

// ChatMessage is a single entry in a room's chat feed
type ChatMessage struct {
	Username string
	Content  string
	IsSystem bool
	SentAt   time.Time
}

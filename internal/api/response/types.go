package response

import (
	"sort"
	"time"

	"github.com/playroomlabs/partyroom/internal/model"
)

// Room is the API representation of a room
type Room struct {
	Code      string   `json:"code"`
	Kind      string   `json:"kind"`
	Players   []Player `json:"players"`
	CreatedAt string   `json:"created_at"`
	Ended     bool     `json:"ended"`
}

// Player is the API representation of a room player
type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	Color    string `json:"color"`
	IsAI     bool   `json:"is_ai"`
}

// ChatMessage is the API representation of a chat entry
type ChatMessage struct {
	Username string `json:"username"`
	Content  string `json:"content"`
	IsSystem bool   `json:"is_system"`
	SentAt   string `json:"sent_at"`
}

// RoomFromModel converts a model room to its API representation.
// Players are ordered by join time for stable output.
func RoomFromModel(rm *model.Room) Room {
	players := make([]Player, 0, len(rm.Players))
	for _, p := range rm.Players {
		players = append(players, PlayerFromModel(p))
	}
	sortPlayers(players, rm)
	return Room{
		Code:      string(rm.Code),
		Kind:      string(rm.Kind),
		Players:   players,
		CreatedAt: rm.CreatedAt.Format(time.RFC3339),
		Ended:     rm.Ended,
	}
}

// PlayerFromModel converts a model player to its API representation
func PlayerFromModel(p model.RoomPlayer) Player {
	return Player{
		ID:       string(p.ID),
		Username: p.Username,
		Score:    p.Score,
		Color:    p.Color,
		IsAI:     p.IsAI,
	}
}

// ChatMessageFromModel converts a chat message to its API representation
func ChatMessageFromModel(msg model.ChatMessage) ChatMessage {
	return ChatMessage{
		Username: msg.Username,
		Content:  msg.Content,
		IsSystem: msg.IsSystem,
		SentAt:   msg.SentAt.Format(time.RFC3339),
	}
}

func sortPlayers(players []Player, rm *model.Room) {
	sort.Slice(players, func(i, j int) bool {
		a := rm.Players[model.PlayerID(players[i].ID)].JoinedAt
		b := rm.Players[model.PlayerID(players[j].ID)].JoinedAt
		if a.Equal(b) {
			return players[i].ID < players[j].ID
		}
		return a.Before(b)
	})
}

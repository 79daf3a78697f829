package storage

import (
	"context"

	"github.com/playroomlabs/partyroom/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// Room operations
	SaveRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error)
	DeleteRoom(ctx context.Context, code model.RoomCode) error
	RoomExists(ctx context.Context, code model.RoomCode) (bool, error)

	// Chat operations. Logs are bounded to model.MaxChatHistory entries;
	// appends beyond the bound evict the oldest.
	AppendChatMessage(ctx context.Context, code model.RoomCode, msg model.ChatMessage) error
	GetChatHistory(ctx context.Context, code model.RoomCode) ([]model.ChatMessage, error)
	DeleteChatHistory(ctx context.Context, code model.RoomCode) error

	// Canvas operations. Data is an opaque encoded snapshot; the empty
	// string means a blank canvas.
	SetCanvas(ctx context.Context, code model.RoomCode, data string) error
	GetCanvas(ctx context.Context, code model.RoomCode) (string, error)
	DeleteCanvas(ctx context.Context, code model.RoomCode) error

	// Media operations for generated images, keyed by opaque reference
	SaveMedia(ctx context.Context, ref string, data []byte) error
	GetMedia(ctx context.Context, ref string) ([]byte, error)
	DeleteMedia(ctx context.Context, ref string) error
}

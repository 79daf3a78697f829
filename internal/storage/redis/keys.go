package redis

import (
	"fmt"

	"github.com/playroomlabs/partyroom/internal/model"
)

// Key prefix for all room-related data
const keyPrefix = "partyroom"

// roomKey returns the Redis key for a Room
func roomKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, code)
}

// chatKey returns the Redis key for a room's chat log (a LIST)
func chatKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:chat:%s", keyPrefix, code)
}

// canvasKey returns the Redis key for a room's canvas snapshot
func canvasKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:canvas:%s", keyPrefix, code)
}

// mediaKey returns the Redis key for a generated media blob
func mediaKey(ref string) string {
	return fmt.Sprintf("%s:media:%s", keyPrefix, ref)
}

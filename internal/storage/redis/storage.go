package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playroomlabs/partyroom/internal/model"
	"github.com/playroomlabs/partyroom/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, roomKey(room.Code), data, s.cfg.RoomTTL).Err()
}

func (s *Storage) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	data, err := s.client.Get(ctx, roomKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}

	var room model.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *Storage) DeleteRoom(ctx context.Context, code model.RoomCode) error {
	return s.client.Del(ctx, roomKey(code)).Err()
}

func (s *Storage) RoomExists(ctx context.Context, code model.RoomCode) (bool, error) {
	exists, err := s.client.Exists(ctx, roomKey(code)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// Chat operations

func (s *Storage) AppendChatMessage(ctx context.Context, code model.RoomCode, msg model.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	key := chatKey(code)

	// Append, trim to the bound, and refresh the TTL atomically
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-model.MaxChatHistory), -1)
	pipe.Expire(ctx, key, s.cfg.ChatTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetChatHistory(ctx context.Context, code model.RoomCode) ([]model.ChatMessage, error) {
	values, err := s.client.LRange(ctx, chatKey(code), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]model.ChatMessage, 0, len(values))
	for _, val := range values {
		var msg model.ChatMessage
		if err := json.Unmarshal([]byte(val), &msg); err != nil {
			continue // Skip invalid data
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *Storage) DeleteChatHistory(ctx context.Context, code model.RoomCode) error {
	return s.client.Del(ctx, chatKey(code)).Err()
}

// Canvas operations

func (s *Storage) SetCanvas(ctx context.Context, code model.RoomCode, data string) error {
	return s.client.Set(ctx, canvasKey(code), data, s.cfg.CanvasTTL).Err()
}

func (s *Storage) GetCanvas(ctx context.Context, code model.RoomCode) (string, error) {
	data, err := s.client.Get(ctx, canvasKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// A missing canvas reads as blank
			return "", nil
		}
		return "", err
	}
	return data, nil
}

func (s *Storage) DeleteCanvas(ctx context.Context, code model.RoomCode) error {
	return s.client.Del(ctx, canvasKey(code)).Err()
}

// Media operations

func (s *Storage) SaveMedia(ctx context.Context, ref string, data []byte) error {
	return s.client.Set(ctx, mediaKey(ref), data, s.cfg.MediaTTL).Err()
}

func (s *Storage) GetMedia(ctx context.Context, ref string) ([]byte, error) {
	data, err := s.client.Get(ctx, mediaKey(ref)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrMediaNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Storage) DeleteMedia(ctx context.Context, ref string) error {
	return s.client.Del(ctx, mediaKey(ref)).Err()
}

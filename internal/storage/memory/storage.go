package memory

import (
	"context"
	"sync"

	"github.com/playroomlabs/partyroom/internal/model"
	"github.com/playroomlabs/partyroom/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	rooms    map[model.RoomCode]*model.Room
	chats    map[model.RoomCode][]model.ChatMessage
	canvases map[model.RoomCode]string
	media    map[string][]byte
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		rooms:    make(map[model.RoomCode]*model.Room),
		chats:    make(map[model.RoomCode][]model.ChatMessage),
		canvases: make(map[model.RoomCode]string),
		media:    make(map[string][]byte),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.Code] = room
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return room, nil
}

func (s *Storage) DeleteRoom(ctx context.Context, code model.RoomCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
	return nil
}

func (s *Storage) RoomExists(ctx context.Context, code model.RoomCode) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[code]
	return ok, nil
}

// Chat operations

func (s *Storage) AppendChatMessage(ctx context.Context, code model.RoomCode, msg model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := append(s.chats[code], msg)
	if len(log) > model.MaxChatHistory {
		log = log[len(log)-model.MaxChatHistory:]
	}
	s.chats[code] = log
	return nil
}

func (s *Storage) GetChatHistory(ctx context.Context, code model.RoomCode) ([]model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.chats[code]
	result := make([]model.ChatMessage, len(log))
	copy(result, log)
	return result, nil
}

func (s *Storage) DeleteChatHistory(ctx context.Context, code model.RoomCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chats, code)
	return nil
}

// Canvas operations

func (s *Storage) SetCanvas(ctx context.Context, code model.RoomCode, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canvases[code] = data
	return nil
}

func (s *Storage) GetCanvas(ctx context.Context, code model.RoomCode) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.canvases[code], nil
}

func (s *Storage) DeleteCanvas(ctx context.Context, code model.RoomCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.canvases, code)
	return nil
}

// Media operations

func (s *Storage) SaveMedia(ctx context.Context, ref string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.media[ref] = stored
	return nil
}

func (s *Storage) GetMedia(ctx context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.media[ref]
	if !ok {
		return nil, model.ErrMediaNotFound
	}
	result := make([]byte, len(data))
	copy(result, data)
	return result, nil
}

func (s *Storage) DeleteMedia(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.media, ref)
	return nil
}

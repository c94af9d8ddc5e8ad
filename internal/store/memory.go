package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rohan357015/raja-mantri-game/internal/core"
	"github.com/Rohan357015/raja-mantri-game/internal/domain"
)

// MemoryStore is the process-local fallback backing, used when no
// durable store is reachable at startup. It must stay behaviorally
// identical to MongoStore: all reads hand out clones, all writes go
// through Save*, invalid rooms are rejected before being kept.
type MemoryStore struct {
	mu    sync.RWMutex
	codes CodeGenerator
	rooms map[string]*domain.Room
	users map[domain.UserID]*domain.User
}

func NewMemoryStore(codes CodeGenerator) *MemoryStore {
	return &MemoryStore{
		codes: codes,
		rooms: make(map[string]*domain.Room),
		users: make(map[domain.UserID]*domain.User),
	}
}

var _ core.RoomStore = (*MemoryStore)(nil)

func (s *MemoryStore) CreateUser(ctx context.Context, name, roomCode string) (*domain.User, error) {
	user, err := domain.NewUser(name)
	if err != nil {
		return nil, err
	}
	if roomCode != "" {
		user.RoomCode = domain.NormalizeCode(roomCode)
		user.InRoom = true
	}
	s.mu.Lock()
	s.users[user.ID] = cloneUser(user)
	s.mu.Unlock()
	return user, nil
}

func (s *MemoryStore) FindUserByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (s *MemoryStore) SaveUser(ctx context.Context, user *domain.User) error {
	if err := domain.ValidateName(user.Name); err != nil {
		return err
	}
	s.mu.Lock()
	s.users[user.ID] = cloneUser(user)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) CreateRoom(ctx context.Context, host *domain.User, round, maxPlayers int) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := s.codes.Generate()
		if _, taken := s.rooms[code]; taken {
			log.Warn().Str("module", "store.memory").Str("code", code).Msg("room code collision, retrying")
			continue
		}
		room, err := domain.NewRoom(code, host, round, maxPlayers)
		if err != nil {
			return nil, err
		}
		s.rooms[room.Code] = room.Clone()
		return room, nil
	}
	return nil, domain.ErrStoreUnavailable
}

func (s *MemoryStore) FindRoomByCode(ctx context.Context, code string) (*domain.Room, error) {
	code = domain.NormalizeCode(code)
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (s *MemoryStore) SaveRoom(ctx context.Context, room *domain.Room) error {
	if err := room.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.Code]; !ok {
		return domain.ErrRoomNotFound
	}
	s.rooms[room.Code] = room.Clone()
	return nil
}

func (s *MemoryStore) DeleteRoom(ctx context.Context, code string) error {
	code = domain.NormalizeCode(code)
	s.mu.Lock()
	delete(s.rooms, code)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) PurgeStale(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for code, room := range s.rooms {
		if room.Status == domain.StatusFinished ||
			(room.Status == domain.StatusWaiting && room.CreatedAt.Before(cutoff)) {
			delete(s.rooms, code)
			removed++
		}
	}
	for id, user := range s.users {
		if !user.InRoom && user.CreatedAt.Before(cutoff) {
			delete(s.users, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) RoomCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms), nil
}

func cloneUser(u *domain.User) *domain.User {
	cp := *u
	return &cp
}

package store

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rohan357015/raja-mantri-game/internal/domain"
)

// seqCodeGenerator replays a fixed sequence, repeating the last code,
// so collision handling can be exercised deterministically.
type seqCodeGenerator struct {
	codes []string
	i     int
}

func (g *seqCodeGenerator) Generate() string {
	if g.i < len(g.codes)-1 {
		g.i++
		return g.codes[g.i-1]
	}
	return g.codes[len(g.codes)-1]
}

func newTestStore() *MemoryStore {
	return NewMemoryStore(NewCodeGenerator())
}

func createTestRoom(t *testing.T, s *MemoryStore) *domain.Room {
	t.Helper()
	host, err := s.CreateUser(context.Background(), "Alice", "")
	require.NoError(t, err)
	room, err := s.CreateRoom(context.Background(), host, 3, 4)
	require.NoError(t, err)
	return room
}

func TestCodeGeneratorShape(t *testing.T) {
	gen := NewCodeGenerator()
	pattern := regexp.MustCompile(`^[A-Z0-9]{6}$`)
	for i := 0; i < 100; i++ {
		assert.Regexp(t, pattern, gen.Generate())
	}
}

func TestCreateRoomAssignsUniqueCode(t *testing.T) {
	gen := &seqCodeGenerator{codes: []string{"AAAAAA", "AAAAAA", "BBBBBB"}}
	s := NewMemoryStore(gen)
	ctx := context.Background()

	host, err := s.CreateUser(ctx, "Alice", "")
	require.NoError(t, err)
	first, err := s.CreateRoom(ctx, host, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, "AAAAAA", first.Code)

	// Second create collides on AAAAAA and must retry to BBBBBB.
	other, err := s.CreateUser(ctx, "Bob", "")
	require.NoError(t, err)
	second, err := s.CreateRoom(ctx, other, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", second.Code)
}

func TestCreateRoomGivesUpAfterExhaustion(t *testing.T) {
	gen := &seqCodeGenerator{codes: []string{"AAAAAA"}}
	s := NewMemoryStore(gen)
	ctx := context.Background()

	host, err := s.CreateUser(ctx, "Alice", "")
	require.NoError(t, err)
	_, err = s.CreateRoom(ctx, host, 3, 4)
	require.NoError(t, err)

	other, err := s.CreateUser(ctx, "Bob", "")
	require.NoError(t, err)
	_, err = s.CreateRoom(ctx, other, 3, 4)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestFindRoomIsCaseInsensitive(t *testing.T) {
	s := newTestStore()
	room := createTestRoom(t, s)

	for _, code := range []string{room.Code, strings.ToLower(room.Code), "  " + room.Code + " "} {
		found, err := s.FindRoomByCode(context.Background(), code)
		require.NoError(t, err)
		assert.Equal(t, room.Code, found.Code)
	}

	_, err := s.FindRoomByCode(context.Background(), "NOSUCH")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestReadsReturnSnapshots(t *testing.T) {
	s := newTestStore()
	room := createTestRoom(t, s)

	snap, err := s.FindRoomByCode(context.Background(), room.Code)
	require.NoError(t, err)
	snap.Players[0].Name = "Mallory"
	snap.Status = domain.StatusFinished

	again, err := s.FindRoomByCode(context.Background(), room.Code)
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.Players[0].Name)
	assert.Equal(t, domain.StatusWaiting, again.Status)
}

func TestSaveRoomRejectsCorruptRoom(t *testing.T) {
	s := newTestStore()
	room := createTestRoom(t, s)

	room.Players[0].IsHost = false
	assert.ErrorIs(t, s.SaveRoom(context.Background(), room), domain.ErrRoomCorrupt)
}

func TestSaveRoomUnknownCode(t *testing.T) {
	s := newTestStore()
	host, err := domain.NewUser("Alice")
	require.NoError(t, err)
	room, err := domain.NewRoom("ZZZZZZ", host, 3, 4)
	require.NoError(t, err)

	assert.ErrorIs(t, s.SaveRoom(context.Background(), room), domain.ErrRoomNotFound)
}

func TestDeleteRoomIsIdempotent(t *testing.T) {
	s := newTestStore()
	room := createTestRoom(t, s)

	require.NoError(t, s.DeleteRoom(context.Background(), room.Code))
	require.NoError(t, s.DeleteRoom(context.Background(), room.Code))
	_, err := s.FindRoomByCode(context.Background(), room.Code)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestUsersRoundTrip(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "Bob", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", user.RoomCode)
	assert.True(t, user.InRoom)

	found, err := s.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	found.InRoom = false
	found.RoomCode = ""
	require.NoError(t, s.SaveUser(ctx, found))
	again, err := s.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, again.InRoom)

	_, err = s.FindUserByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestPurgeStale(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	stale := createTestRoom(t, s)
	fresh := createTestRoom(t, s)

	// Backdate the stale room past the cutoff.
	s.mu.Lock()
	s.rooms[stale.Code].CreatedAt = time.Now().Add(-48 * time.Hour)
	s.mu.Unlock()

	removed, err := s.PurgeStale(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.FindRoomByCode(ctx, stale.Code)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	_, err = s.FindRoomByCode(ctx, fresh.Code)
	assert.NoError(t, err)

	count, err := s.RoomCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

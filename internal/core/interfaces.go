// Package core defines the contracts the lobby is wired through.
package core

import (
	"context"
	"time"

	"github.com/Rohan357015/raja-mantri-game/internal/domain"
)

// Frame is a marshaled event payload.
type Frame []byte

type SessionID string

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Gateway fans lobby events out to live connections. Payloads carry
// their event name in a `type` field. Delivery is best-effort: a slow
// or gone recipient never fails the triggering operation.
type Gateway interface {
	NotifyRoom(code string, v any)
	NotifyOne(sid SessionID, v any)
	NotifyGlobal(v any)
}

// RoomStore owns Room and User records. The durable and in-memory
// backings must behave identically to callers: reads return independent
// snapshots, mutations are persisted through the Save methods, and a
// room that fails domain.Room.Validate is never written.
type RoomStore interface {
	CreateUser(ctx context.Context, name, roomCode string) (*domain.User, error)
	FindUserByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	SaveUser(ctx context.Context, user *domain.User) error

	// CreateRoom assigns a fresh unique code and seeds the player list
	// with the host entry.
	CreateRoom(ctx context.Context, host *domain.User, round, maxPlayers int) (*domain.Room, error)
	// FindRoomByCode is case-insensitive on input; codes are stored
	// uppercase.
	FindRoomByCode(ctx context.Context, code string) (*domain.Room, error)
	SaveRoom(ctx context.Context, room *domain.Room) error
	DeleteRoom(ctx context.Context, code string) error

	// PurgeStale removes finished rooms, abandoned waiting rooms older
	// than cutoff, and users detached from any room older than cutoff.
	// Returns the number of records removed.
	PurgeStale(ctx context.Context, cutoff time.Time) (int, error)

	RoomCount(ctx context.Context) (int, error)
}

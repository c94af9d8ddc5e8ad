// Package app coordinates the lobby: membership state machine,
// connection registry, and background cleanup.
package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rohan357015/raja-mantri-game/internal/core"
	"github.com/Rohan357015/raja-mantri-game/internal/domain"
)

// Options carry the operator-tunable membership rules.
type Options struct {
	MaxPlayers int
	// MinPlayers is the authoritative start threshold. The original
	// frontend gated its button at 4 while the backend enforced 2; the
	// backend rule wins here.
	MinPlayers int
}

func (o Options) withDefaults() Options {
	if o.MaxPlayers <= 0 {
		o.MaxPlayers = domain.DefaultMaxPlayers
	}
	if o.MinPlayers <= 0 {
		o.MinPlayers = 2
	}
	return o
}

// Lobby is the membership engine. Every mutation of a room runs as a
// non-overlapping read-check-write transaction: a per-room lock is held
// across the store round-trip so racing joins can never overshoot
// capacity or admit duplicate names.
type Lobby struct {
	store core.RoomStore
	reg   *Registry
	gw    core.Gateway
	opts  Options

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLobby(store core.RoomStore, reg *Registry, gw core.Gateway, opts Options) *Lobby {
	return &Lobby{
		store: store,
		reg:   reg,
		gw:    gw,
		opts:  opts.withDefaults(),
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *Lobby) lockRoom(code string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[code]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[code] = lock
	}
	return lock
}

func (l *Lobby) dropLock(code string) {
	l.mu.Lock()
	delete(l.locks, code)
	l.mu.Unlock()
}

// CreateRoom validates input, creates the host user and a fresh room
// with the host as its only player, and announces the room lobby-wide.
func (l *Lobby) CreateRoom(ctx context.Context, name string, round int) (*domain.Room, error) {
	// Validation fully precedes mutation: a bad round must not leave a
	// stray user behind.
	if err := domain.ValidateRound(round); err != nil {
		return nil, err
	}
	if err := domain.ValidateName(name); err != nil {
		return nil, err
	}

	host, err := l.store.CreateUser(ctx, name, "")
	if err != nil {
		return nil, err
	}
	room, err := l.store.CreateRoom(ctx, host, round, l.opts.MaxPlayers)
	if err != nil {
		return nil, err
	}

	host.RoomCode = room.Code
	host.InRoom = true
	if err := l.store.SaveUser(ctx, host); err != nil {
		log.Warn().Err(err).Str("module", "app.lobby").Str("room", room.Code).Msg("host back-reference not saved")
	}

	log.Info().Str("module", "app.lobby").Str("room", room.Code).Str("host", name).Int("round", round).Msg("room created")
	l.gw.NotifyGlobal(struct {
		Type string       `json:"type"`
		Room *domain.Room `json:"room"`
	}{"room-created", room})
	return room, nil
}

// JoinRoom admits name into the room behind code. Error precedence is
// fixed: not found, full, not waiting, name taken.
func (l *Lobby) JoinRoom(ctx context.Context, code, name string) (*domain.Room, error) {
	code = domain.NormalizeCode(code)
	if code == "" {
		return nil, domain.ErrCodeEmpty
	}
	if err := domain.ValidateName(name); err != nil {
		return nil, err
	}

	lock := l.lockRoom(code)
	lock.Lock()
	defer lock.Unlock()

	room, err := l.store.FindRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := room.CheckJoin(name); err != nil {
		return nil, err
	}

	user, err := l.store.CreateUser(ctx, name, room.Code)
	if err != nil {
		return nil, err
	}
	if err := room.AddPlayer(user); err != nil {
		return nil, err
	}
	if err := l.store.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	log.Info().Str("module", "app.lobby").Str("room", room.Code).Str("player", name).Int("players", len(room.Players)).Msg("player joined")
	l.notifyRoomUpdated(room)
	return room, nil
}

// GetRoom is a pure read; no lock, no broadcast.
func (l *Lobby) GetRoom(ctx context.Context, code string) (*domain.Room, error) {
	code = domain.NormalizeCode(code)
	if code == "" {
		return nil, domain.ErrCodeEmpty
	}
	return l.store.FindRoomByCode(ctx, code)
}

// StartGame moves the room to playing. Only the recorded host may do
// it, the room must still be waiting, and MinPlayers must be present.
func (l *Lobby) StartGame(ctx context.Context, code string, userID domain.UserID) (*domain.Room, error) {
	code = domain.NormalizeCode(code)
	if code == "" {
		return nil, domain.ErrCodeEmpty
	}

	lock := l.lockRoom(code)
	lock.Lock()
	defer lock.Unlock()

	room, err := l.store.FindRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(userID) {
		return nil, domain.ErrNotHost
	}
	if err := room.Start(l.opts.MinPlayers); err != nil {
		return nil, err
	}
	if err := l.store.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	log.Info().Str("module", "app.lobby").Str("room", room.Code).Int("players", len(room.Players)).Msg("game started")
	l.gw.NotifyRoom(room.Code, struct {
		Type    string       `json:"type"`
		Message string       `json:"message"`
		Room    *domain.Room `json:"room"`
	}{"game-started", "Game started successfully", room})
	return room, nil
}

// LeaveRoom removes the player matching name (case-insensitively).
// Idempotent: an unknown room or an already-absent player is a no-op.
// A departing host hands the room to the earliest remaining joiner; a
// room left empty is deleted.
func (l *Lobby) LeaveRoom(ctx context.Context, code, name string) error {
	code = domain.NormalizeCode(code)
	if code == "" {
		return nil
	}

	lock := l.lockRoom(code)
	lock.Lock()
	defer lock.Unlock()

	room, err := l.store.FindRoomByCode(ctx, code)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var leaverID domain.UserID
	for _, p := range room.Players {
		if strings.EqualFold(p.Name, name) {
			leaverID = p.UserID
			break
		}
	}

	removed, wasHost := room.RemovePlayer(name)
	if !removed {
		return nil
	}

	if len(room.Players) == 0 {
		if err := l.store.DeleteRoom(ctx, code); err != nil {
			return err
		}
		l.dropLock(code)
		l.reg.UnbindNamed(code, name)
		l.detachUser(ctx, leaverID)
		log.Info().Str("module", "app.lobby").Str("room", code).Msg("room emptied and deleted")
		return nil
	}

	if wasHost {
		room.PromoteHost()
		log.Info().Str("module", "app.lobby").Str("room", code).Str("host", room.HostName).Msg("host promoted")
	}
	if err := l.store.SaveRoom(ctx, room); err != nil {
		return err
	}

	l.reg.UnbindNamed(code, name)
	l.detachUser(ctx, leaverID)
	log.Info().Str("module", "app.lobby").Str("room", code).Str("player", name).Int("players", len(room.Players)).Msg("player left")
	l.notifyRoomUpdated(room)
	return nil
}

// PurgeStale removes stale records through the store and then sweeps
// the per-room lock table, so rooms collected here do not leak their
// mutex entries. This is the janitor's entry point.
func (l *Lobby) PurgeStale(ctx context.Context, cutoff time.Time) (int, error) {
	removed, err := l.store.PurgeStale(ctx, cutoff)
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		l.sweepLocks(ctx)
	}
	return removed, nil
}

// sweepLocks drops lock entries for rooms that no longer exist. A room
// recreated under the same code simply gets a fresh mutex on next use.
func (l *Lobby) sweepLocks(ctx context.Context) {
	l.mu.Lock()
	codes := make([]string, 0, len(l.locks))
	for code := range l.locks {
		codes = append(codes, code)
	}
	l.mu.Unlock()

	for _, code := range codes {
		if _, err := l.store.FindRoomByCode(ctx, code); errors.Is(err, domain.ErrRoomNotFound) {
			l.dropLock(code)
		}
	}
}

// HandleDisconnect translates an abrupt connection loss into a leave.
// Safe to invoke twice for the same connection.
func (l *Lobby) HandleDisconnect(ctx context.Context, sid core.SessionID) {
	code, name, ok := l.reg.Lookup(sid)
	l.reg.Unregister(sid)
	if !ok {
		return
	}
	log.Info().Str("module", "app.lobby").Str("sid", string(sid)).Str("room", code).Str("player", name).Msg("disconnect, leaving room")
	if err := l.LeaveRoom(ctx, code, name); err != nil {
		log.Error().Err(err).Str("module", "app.lobby").Str("room", code).Str("player", name).Msg("leave on disconnect failed")
	}
}

// detachUser clears the user's room back-reference, best effort.
func (l *Lobby) detachUser(ctx context.Context, id domain.UserID) {
	if id == "" {
		return
	}
	user, err := l.store.FindUserByID(ctx, id)
	if err != nil {
		return
	}
	user.RoomCode = ""
	user.InRoom = false
	if err := l.store.SaveUser(ctx, user); err != nil {
		log.Warn().Err(err).Str("module", "app.lobby").Str("user", string(id)).Msg("user back-reference not cleared")
	}
}

func (l *Lobby) notifyRoomUpdated(room *domain.Room) {
	l.gw.NotifyRoom(room.Code, struct {
		Type string       `json:"type"`
		Room *domain.Room `json:"room"`
	}{"room-updated", room})
}


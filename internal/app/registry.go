package app

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Rohan357015/raja-mantri-game/internal/core"
)

type binding struct {
	RoomCode string
	Name     string
	IsHost   bool
	Conn     core.SignalConnection
}

// Registry maps live connections to the room and player name they
// represent. It is ephemeral process state rebuilt from nothing on
// restart; durable room data lives in the store. Indexed by room first
// so per-room fan-out and per-connection removal are both O(1).
type Registry struct {
	mu    sync.RWMutex
	conns map[core.SessionID]*binding
	rooms map[string]map[core.SessionID]*binding
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[core.SessionID]*binding),
		rooms: make(map[string]map[core.SessionID]*binding),
	}
}

// Register tracks a connection that has not joined a room yet, so
// lobby-wide announcements can reach it.
func (r *Registry) Register(sid core.SessionID, conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[sid] = &binding{Conn: conn}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("connection registered")
}

// Bind attaches a registered connection to a (room, player) pair.
func (r *Registry) Bind(sid core.SessionID, roomCode, name string, isHost bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.conns[sid]
	if !ok {
		return false
	}
	if entry.RoomCode != "" {
		r.dropFromRoom(sid, entry.RoomCode)
	}
	entry.RoomCode = roomCode
	entry.Name = name
	entry.IsHost = isHost
	members, ok := r.rooms[roomCode]
	if !ok {
		members = make(map[core.SessionID]*binding)
		r.rooms[roomCode] = members
	}
	members[sid] = entry
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", roomCode).Str("name", name).Msg("bound to room")
	return true
}

// Lookup translates a connection into its membership, if any.
func (r *Registry) Lookup(sid core.SessionID) (roomCode, name string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, found := r.conns[sid]
	if !found || entry.RoomCode == "" {
		return "", "", false
	}
	return entry.RoomCode, entry.Name, true
}

// Unbind drops the room association but keeps the connection alive
// (explicit leave-room without closing the socket).
func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.conns[sid]
	if !ok || entry.RoomCode == "" {
		return
	}
	r.dropFromRoom(sid, entry.RoomCode)
	entry.RoomCode = ""
	entry.Name = ""
	entry.IsHost = false
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbound from room")
}

// UnbindNamed drops every binding for a player name in a room. Lets the
// lobby keep the registry consistent when a leave arrives over HTTP and
// the same player also holds a live connection. Names match
// case-insensitively, same as the membership rules.
func (r *Registry) UnbindNamed(roomCode, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sid, entry := range r.rooms[roomCode] {
		if strings.EqualFold(entry.Name, name) {
			r.dropFromRoom(sid, roomCode)
			entry.RoomCode = ""
			entry.Name = ""
			entry.IsHost = false
			log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", roomCode).Msg("unbound by name")
		}
	}
}

// Unregister removes the connection entirely. Idempotent.
func (r *Registry) Unregister(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.conns[sid]
	if !ok {
		return
	}
	if entry.RoomCode != "" {
		r.dropFromRoom(sid, entry.RoomCode)
	}
	delete(r.conns, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("connection unregistered")
}

// MemberSnap is a point-in-time view of one tracked connection.
type MemberSnap struct {
	SID  core.SessionID
	Conn core.SignalConnection
}

// MembersOf snapshots the connections currently bound to a room.
func (r *Registry) MembersOf(roomCode string) []MemberSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[roomCode]
	out := make([]MemberSnap, 0, len(members))
	for sid, entry := range members {
		out = append(out, MemberSnap{SID: sid, Conn: entry.Conn})
	}
	return out
}

// All snapshots every tracked connection, roomless ones included.
func (r *Registry) All() []MemberSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberSnap, 0, len(r.conns))
	for sid, entry := range r.conns {
		out = append(out, MemberSnap{SID: sid, Conn: entry.Conn})
	}
	return out
}

// Conn returns the transport endpoint for a connection.
func (r *Registry) Conn(sid core.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.conns[sid]
	if !ok {
		return nil, false
	}
	return entry.Conn, true
}

// dropFromRoom assumes r.mu is held.
func (r *Registry) dropFromRoom(sid core.SessionID, roomCode string) {
	members, ok := r.rooms[roomCode]
	if !ok {
		return
	}
	delete(members, sid)
	if len(members) == 0 {
		delete(r.rooms, roomCode)
	}
}

package domain

import (
	"errors"
	"strings"
	"time"
)

const (
	MinRound          = 1
	MaxRound          = 10
	DefaultMaxPlayers = 4
	CodeLen           = 6
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// statusRank orders the lifecycle; a room may only move forward.
var statusRank = map[Status]int{
	StatusWaiting:  0,
	StatusPlaying:  1,
	StatusFinished: 2,
}

var (
	ErrInvalidRound     = errors.New("round must be between 1 and 10")
	ErrCodeEmpty        = errors.New("room code is required")
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrRoomNotWaiting   = errors.New("room is not accepting new players")
	ErrNameTaken        = errors.New("name already taken in this room")
	ErrNotHost          = errors.New("only the host can start the game")
	ErrNotEnoughPlayers = errors.New("not enough players to start the game")
	ErrStatusRegressed  = errors.New("room status cannot move backwards")
	ErrRoomCorrupt      = errors.New("room violates its invariants")
	ErrStoreUnavailable = errors.New("store unavailable")
)

type Player struct {
	UserID   UserID    `json:"userId"`
	Name     string    `json:"name"`
	IsHost   bool      `json:"isHost"`
	JoinedAt time.Time `json:"joinedAt"`
}

type Room struct {
	Code       string     `json:"roomCode"`
	HostID     UserID     `json:"-"`
	HostName   string     `json:"hostName"`
	Round      int        `json:"round"`
	Players    []Player   `json:"players"`
	MaxPlayers int        `json:"maxPlayers"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
}

// NormalizeCode maps user input onto the stored form. Codes are kept
// uppercase; lookups accept any case.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ValidateRound(round int) error {
	if round < MinRound || round > MaxRound {
		return ErrInvalidRound
	}
	return nil
}

// NewRoom seeds a room with its host as the first (and only) player.
func NewRoom(code string, host *User, round, maxPlayers int) (*Room, error) {
	if err := ValidateRound(round); err != nil {
		return nil, err
	}
	if err := ValidateName(host.Name); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, ErrCodeEmpty
	}
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}
	now := time.Now()
	return &Room{
		Code:       NormalizeCode(code),
		HostID:     host.ID,
		HostName:   host.Name,
		Round:      round,
		MaxPlayers: maxPlayers,
		Status:     StatusWaiting,
		CreatedAt:  now,
		Players: []Player{{
			UserID:   host.ID,
			Name:     host.Name,
			IsHost:   true,
			JoinedAt: now,
		}},
	}, nil
}

// HasPlayer reports whether name is already taken, case-insensitively.
func (r *Room) HasPlayer(name string) bool {
	for _, p := range r.Players {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

func (r *Room) IsHost(id UserID) bool {
	for _, p := range r.Players {
		if p.UserID == id && p.IsHost {
			return true
		}
	}
	return false
}

// CheckJoin evaluates admission rules without mutating anything.
// The order (capacity, status, name) is part of the contract.
func (r *Room) CheckJoin(name string) error {
	if len(r.Players) >= r.MaxPlayers {
		return ErrRoomFull
	}
	if r.Status != StatusWaiting {
		return ErrRoomNotWaiting
	}
	if r.HasPlayer(name) {
		return ErrNameTaken
	}
	return nil
}

// AddPlayer appends user after re-running the admission checks.
func (r *Room) AddPlayer(user *User) error {
	if err := r.CheckJoin(user.Name); err != nil {
		return err
	}
	r.Players = append(r.Players, Player{
		UserID:   user.ID,
		Name:     user.Name,
		IsHost:   false,
		JoinedAt: time.Now(),
	})
	return nil
}

// RemovePlayer drops the entry matching name, case-insensitively.
// Returns whether anything was removed and whether it was the host.
func (r *Room) RemovePlayer(name string) (removed, wasHost bool) {
	kept := r.Players[:0]
	for _, p := range r.Players {
		if strings.EqualFold(p.Name, name) {
			removed = true
			wasHost = wasHost || p.IsHost
			continue
		}
		kept = append(kept, p)
	}
	r.Players = kept
	return removed, wasHost
}

// PromoteHost hands host authority to the earliest remaining joiner.
// Join order is insertion order, so that is Players[0].
func (r *Room) PromoteHost() bool {
	if len(r.Players) == 0 {
		return false
	}
	for i := range r.Players {
		r.Players[i].IsHost = false
	}
	r.Players[0].IsHost = true
	r.HostID = r.Players[0].UserID
	r.HostName = r.Players[0].Name
	return true
}

// Start moves the room to playing. minPlayers is the authoritative
// threshold; the caller has already verified host authority.
func (r *Room) Start(minPlayers int) error {
	if r.Status != StatusWaiting {
		return ErrRoomNotWaiting
	}
	if len(r.Players) < minPlayers {
		return ErrNotEnoughPlayers
	}
	now := time.Now()
	r.Status = StatusPlaying
	r.StartedAt = &now
	return nil
}

// SetStatus enforces the waiting -> playing -> finished direction.
func (r *Room) SetStatus(next Status) error {
	nextRank, ok := statusRank[next]
	if !ok {
		return ErrRoomCorrupt
	}
	if nextRank < statusRank[r.Status] {
		return ErrStatusRegressed
	}
	r.Status = next
	return nil
}

// Validate is the post-mutation invariant check stores run before
// persisting. A room that fails it must never be written.
func (r *Room) Validate() error {
	if r.Code == "" {
		return ErrCodeEmpty
	}
	if err := ValidateRound(r.Round); err != nil {
		return err
	}
	if len(r.Players) == 0 || len(r.Players) > r.MaxPlayers {
		return ErrRoomCorrupt
	}
	if _, ok := statusRank[r.Status]; !ok {
		return ErrRoomCorrupt
	}
	hosts := 0
	seen := make(map[string]struct{}, len(r.Players))
	for _, p := range r.Players {
		if p.IsHost {
			hosts++
		}
		key := strings.ToLower(p.Name)
		if _, dup := seen[key]; dup {
			return ErrRoomCorrupt
		}
		seen[key] = struct{}{}
	}
	if hosts != 1 {
		return ErrRoomCorrupt
	}
	return nil
}

// Clone returns an independent copy so store snapshots cannot drift.
func (r *Room) Clone() *Room {
	cp := *r
	cp.Players = make([]Player, len(r.Players))
	copy(cp.Players, r.Players)
	if r.StartedAt != nil {
		t := *r.StartedAt
		cp.StartedAt = &t
	}
	return &cp
}

// Package domain contains entities and the rules that keep them valid.
// No transport or storage logic here.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const MaxNameLen = 36

var (
	ErrNameEmpty    = errors.New("name is required")
	ErrNameTooLong  = errors.New("name too long")
	ErrUserNotFound = errors.New("user not found")
)

type UserID string

type User struct {
	ID        UserID    `json:"id"`
	Name      string    `json:"name"`
	RoomCode  string    `json:"roomCode,omitempty"`
	InRoom    bool      `json:"inRoom"`
	CreatedAt time.Time `json:"createdAt"`
}

// ValidateName is shared by user creation and join requests so both
// store backings reject the same inputs.
func ValidateName(name string) error {
	if len(name) == 0 {
		return ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	return nil
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in stores.
func NewUser(name string) (*User, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return &User{
		ID:        UserID(uuid.NewString()),
		Name:      name,
		CreatedAt: time.Now(),
	}, nil
}

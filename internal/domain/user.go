// Package domain contains identifiers and wire messages, without transport logic.
package domain

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
)

const MaxUserIDLen = 64

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
)

// PeerID is assigned by the relay to one live connection and never reused.
type PeerID string

// UserID is a caller-supplied stable identifier used for direct addressing.
type UserID string

// ParseUserID trims and validates a caller-supplied user id.
func ParseUserID(raw string) (UserID, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return "", ErrUserIDTooLong
	}
	return UserID(id), nil
}

// NewUserID returns eight upper-case hex characters, the format desktop
// clients show to users for direct connect.
func NewUserID() (UserID, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return UserID(strings.ToUpper(hex.EncodeToString(b))), nil
}

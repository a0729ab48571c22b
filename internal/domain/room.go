package domain

import (
	"time"

	"github.com/google/uuid"
)

const RoomIDLen = 8

type RoomID string

type Room struct {
	ID        RoomID
	CreatedAt time.Time
}

// NewRoom returns a room with a fresh short id. Uniqueness against live rooms
// is the caller's concern.
func NewRoom() *Room {
	return &Room{
		ID:        RoomID(uuid.NewString()[:RoomIDLen]),
		CreatedAt: time.Now(),
	}
}

// Member is a read-only view of a room participant for diagnostics.
type Member struct {
	PeerID PeerID `json:"peerId"`
	UserID UserID `json:"userId,omitempty"`
}

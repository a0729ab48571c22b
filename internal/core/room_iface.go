package core

import (
	"github.com/dkeye/RemoteDesk/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []Undelivered
}

type Undelivered struct {
	Member MemberSession
	Err    error
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	Room() *domain.Room
	MemberCount() int
	Has(peer domain.PeerID) bool
	// Members returns a snapshot, optionally without one peer.
	Members(except domain.PeerID) []MemberSession

	AddMember(ms MemberSession) bool
	RemoveMember(peer domain.PeerID) bool
	Broadcast(from domain.PeerID, data Frame) PublishResult
}

type RoomInfo struct {
	ID          domain.RoomID   `json:"roomId"`
	MemberCount int             `json:"memberCount"`
	Peers       []domain.PeerID `json:"peers"`
}

// RoomManager owns room lifetime. Join and Leave are atomic with respect to
// room deletion: a room is removed in the same critical section that empties it.
type RoomManager interface {
	Create(founder MemberSession) RoomService
	Join(id domain.RoomID, ms MemberSession) (others []MemberSession, err error)
	Leave(id domain.RoomID, peer domain.PeerID) (remaining []MemberSession, deleted bool)
	Get(id domain.RoomID) (RoomService, bool)
	Count() int
	List() []RoomInfo
}

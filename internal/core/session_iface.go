package core

import "github.com/dkeye/RemoteDesk/internal/domain"

// MemberSession binds a peer id to its transport endpoint.
// This is what rooms store and fan out to.
type MemberSession interface {
	PeerID() domain.PeerID
	Signal() SignalConnection
}

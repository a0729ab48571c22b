package core

import "github.com/dkeye/RemoteDesk/internal/domain"

type memberSession struct {
	peer   domain.PeerID
	signal SignalConnection
}

func NewMemberSession(peer domain.PeerID, conn SignalConnection) MemberSession {
	return &memberSession{peer: peer, signal: conn}
}

func (m *memberSession) PeerID() domain.PeerID    { return m.peer }
func (m *memberSession) Signal() SignalConnection { return m.signal }

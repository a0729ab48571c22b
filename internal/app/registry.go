package app

import (
	"sync"

	"github.com/dkeye/RemoteDesk/internal/core"
	"github.com/dkeye/RemoteDesk/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	Session core.MemberSession
	UserID  domain.UserID
	RoomID  domain.RoomID
}

// Removed describes what a connection still held when it was removed.
// UserID is set only if the binding still pointed at that connection.
type Removed struct {
	UserID domain.UserID
	RoomID domain.RoomID
}

// Registry tracks live relay connections by peer id and by bound user id.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.PeerID]*connEntry
	users map[domain.UserID]domain.PeerID
	newID func() domain.PeerID
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[domain.PeerID]*connEntry),
		users: make(map[domain.UserID]domain.PeerID),
		newID: func() domain.PeerID { return domain.PeerID(uuid.NewString()) },
	}
}

// Register assigns a fresh peer id to conn. It never fails.
func (r *Registry) Register(conn core.SignalConnection) core.MemberSession {
	r.mu.Lock()
	id := r.newID()
	for {
		if _, taken := r.conns[id]; !taken {
			break
		}
		id = r.newID()
	}
	sess := core.NewMemberSession(id, conn)
	r.conns[id] = &connEntry{Session: sess}
	r.mu.Unlock()

	log.Info().Str("module", "app.registry").Str("peer", string(id)).Msg("registered connection")
	return sess
}

// BindUser points uid at peer, overwriting any other holder. It returns the
// user id peer held before and the peer that lost uid, if any.
func (r *Registry) BindUser(peer domain.PeerID, uid domain.UserID) (prev domain.UserID, evicted domain.PeerID, ok bool) {
	r.mu.Lock()
	e, ok := r.conns[peer]
	if !ok {
		r.mu.Unlock()
		return "", "", false
	}
	prev = e.UserID
	if prev != "" && prev != uid && r.users[prev] == peer {
		delete(r.users, prev)
	}
	if holder, taken := r.users[uid]; taken && holder != peer {
		evicted = holder
		if old, ok := r.conns[holder]; ok {
			old.UserID = ""
		}
	}
	r.users[uid] = peer
	e.UserID = uid
	r.mu.Unlock()

	log.Info().Str("module", "app.registry").Str("peer", string(peer)).Str("user", string(uid)).Str("evicted", string(evicted)).Msg("bound user")
	return prev, evicted, true
}

func (r *Registry) LookupByUser(uid domain.UserID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	peer, ok := r.users[uid]
	if !ok {
		return nil, false
	}
	e, ok := r.conns[peer]
	if !ok {
		return nil, false
	}
	return e.Session, true
}

func (r *Registry) LookupByPeer(peer domain.PeerID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[peer]; ok {
		return e.Session, true
	}
	return nil, false
}

func (r *Registry) UserOf(peer domain.PeerID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[peer]
	if !ok || e.UserID == "" {
		return "", false
	}
	return e.UserID, true
}

func (r *Registry) RoomOf(peer domain.PeerID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[peer]
	if !ok || e.RoomID == "" {
		return "", false
	}
	return e.RoomID, true
}

func (r *Registry) SetRoom(peer domain.PeerID, room domain.RoomID) bool {
	r.mu.Lock()
	e, ok := r.conns[peer]
	if ok {
		e.RoomID = room
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	log.Info().Str("module", "app.registry").Str("peer", string(peer)).Str("room", string(room)).Msg("updated room")
	return true
}

// ClearRoom drops the room association if it still is room.
func (r *Registry) ClearRoom(peer domain.PeerID, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[peer]; ok && e.RoomID == room {
		e.RoomID = ""
	}
}

// Remove forgets peer. The second call for the same peer returns false.
func (r *Registry) Remove(peer domain.PeerID) (Removed, bool) {
	r.mu.Lock()
	e, ok := r.conns[peer]
	if !ok {
		r.mu.Unlock()
		return Removed{}, false
	}
	delete(r.conns, peer)
	out := Removed{RoomID: e.RoomID}
	if e.UserID != "" && r.users[e.UserID] == peer {
		delete(r.users, e.UserID)
		out.UserID = e.UserID
	}
	r.mu.Unlock()

	log.Info().Str("module", "app.registry").Str("peer", string(peer)).Str("user", string(out.UserID)).Msg("removed connection")
	return out, true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Member returns the diagnostic view of peer.
func (r *Registry) Member(peer domain.PeerID) domain.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := domain.Member{PeerID: peer}
	if e, ok := r.conns[peer]; ok {
		m.UserID = e.UserID
	}
	return m
}

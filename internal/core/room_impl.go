package core

import (
	"sync"

	"github.com/dkeye/RemoteDesk/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources and does no I/O under its lock;
// callers log membership changes.
type roomImpl struct {
	room   *domain.Room
	mu     sync.RWMutex
	byPeer map[domain.PeerID]MemberSession
}

func NewRoomService(room *domain.Room) RoomService {
	return &roomImpl{
		room:   room,
		byPeer: make(map[domain.PeerID]MemberSession),
	}
}

func (r *roomImpl) Room() *domain.Room { return r.room }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPeer)
}

func (r *roomImpl) Has(peer domain.PeerID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byPeer[peer]
	return ok
}

func (r *roomImpl) Members(except domain.PeerID) []MemberSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberSession, 0, len(r.byPeer))
	for peer, ms := range r.byPeer {
		if peer == except {
			continue
		}
		out = append(out, ms)
	}
	return out
}

func (r *roomImpl) AddMember(ms MemberSession) bool {
	peer := ms.PeerID()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPeer[peer]; ok {
		return false
	}
	r.byPeer[peer] = ms
	return true
}

func (r *roomImpl) RemoveMember(peer domain.PeerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPeer[peer]; !ok {
		return false
	}
	delete(r.byPeer, peer)
	return true
}

// Broadcast sends data to every member except from. Sends happen on a
// snapshot, outside the room lock.
func (r *roomImpl) Broadcast(from domain.PeerID, data Frame) PublishResult {
	res := PublishResult{}
	for _, m := range r.Members(from) {
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, Undelivered{Member: m, Err: err})
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("from", string(from)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

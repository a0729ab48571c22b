package app

import (
	"cmp"
	"slices"
	"sync"

	"github.com/dkeye/RemoteDesk/internal/core"
	"github.com/dkeye/RemoteDesk/internal/domain"
	"github.com/rs/zerolog/log"
)

type RoomManagerImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService
}

func NewRoomManager() core.RoomManager {
	return &RoomManagerImpl{rooms: make(map[domain.RoomID]core.RoomService)}
}

func (f *RoomManagerImpl) Create(founder core.MemberSession) core.RoomService {
	f.mu.Lock()
	room := domain.NewRoom()
	for {
		if _, taken := f.rooms[room.ID]; !taken {
			break
		}
		room = domain.NewRoom()
	}
	svc := core.NewRoomService(room)
	svc.AddMember(founder)
	f.rooms[room.ID] = svc
	f.mu.Unlock()

	log.Info().Str("module", "app.rooms").Str("room", string(room.ID)).Str("founder", string(founder.PeerID())).Msg("room created")
	return svc
}

// Join adds ms to an existing room and returns the members that were already there.
func (f *RoomManagerImpl) Join(id domain.RoomID, ms core.MemberSession) ([]core.MemberSession, error) {
	f.mu.Lock()
	room, ok := f.rooms[id]
	if !ok {
		f.mu.Unlock()
		return nil, domain.ErrRoomNotFound
	}
	others := room.Members(ms.PeerID())
	room.AddMember(ms)
	f.mu.Unlock()

	log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("peer", string(ms.PeerID())).Msg("member added")
	return others, nil
}

// Leave removes peer and deletes the room once it is empty.
func (f *RoomManagerImpl) Leave(id domain.RoomID, peer domain.PeerID) ([]core.MemberSession, bool) {
	f.mu.Lock()
	room, ok := f.rooms[id]
	if !ok {
		f.mu.Unlock()
		return nil, false
	}
	room.RemoveMember(peer)
	remaining := room.Members("")
	if len(remaining) == 0 {
		delete(f.rooms, id)
	}
	f.mu.Unlock()

	log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("peer", string(peer)).Msg("member removed")
	if len(remaining) > 0 {
		return remaining, false
	}
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room deleted")
	return nil, true
}

func (f *RoomManagerImpl) Get(id domain.RoomID) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[id]
	return room, ok
}

func (f *RoomManagerImpl) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.rooms)
}

func (f *RoomManagerImpl) List() []core.RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(f.rooms))
	for id, r := range f.rooms {
		members := r.Members("")
		peers := make([]domain.PeerID, 0, len(members))
		for _, m := range members {
			peers = append(peers, m.PeerID())
		}
		slices.Sort(peers)
		out = append(out, core.RoomInfo{ID: id, MemberCount: len(peers), Peers: peers})
	}
	slices.SortFunc(out, func(a, b core.RoomInfo) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

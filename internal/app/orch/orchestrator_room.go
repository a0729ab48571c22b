package orch

import (
	"github.com/dkeye/RemoteDesk/internal/domain"
	"github.com/dkeye/RemoteDesk/internal/metrics"
	"github.com/rs/zerolog/log"
)

// CreateRoom moves peer into a new room it founds.
func (o *Orchestrator) CreateRoom(peer domain.PeerID) {
	ms, ok := o.Registry.LookupByPeer(peer)
	if !ok {
		return
	}
	if cur, ok := o.Registry.RoomOf(peer); ok {
		o.leaveRoom(peer, cur)
	}
	room := o.Rooms.Create(ms)
	id := room.Room().ID
	o.Registry.SetRoom(peer, id)
	metrics.SetActiveRooms(o.Rooms.Count())
	o.send(ms, domain.Message{Type: domain.TypeRoomCreated, RoomID: id})
}

// JoinRoom adds peer to an existing room. An unknown room leaves every
// membership untouched, including the caller's current one.
func (o *Orchestrator) JoinRoom(peer domain.PeerID, id domain.RoomID) {
	ms, ok := o.Registry.LookupByPeer(peer)
	if !ok {
		return
	}
	if id == "" {
		o.sendError(ms, domain.ErrRoomNotFound)
		return
	}
	cur, inRoom := o.Registry.RoomOf(peer)
	if inRoom && cur == id {
		o.send(ms, domain.Message{Type: domain.TypeRoomJoined, RoomID: id})
		return
	}

	others, err := o.Rooms.Join(id, ms)
	if err != nil {
		log.Info().Str("module", "orch").Str("peer", string(peer)).Str("room", string(id)).Msg("join unknown room")
		o.sendError(ms, domain.ErrRoomNotFound)
		return
	}
	if inRoom {
		o.leaveRoom(peer, cur)
	}
	o.Registry.SetRoom(peer, id)
	log.Info().Str("module", "orch").Str("peer", string(peer)).Str("room", string(id)).Int("others", len(others)).Msg("joined room")

	o.send(ms, domain.Message{Type: domain.TypeRoomJoined, RoomID: id})
	joined := domain.Message{Type: domain.TypePeerJoined, PeerID: peer}
	for _, other := range others {
		o.send(other, joined)
	}
}

func (o *Orchestrator) leaveRoom(peer domain.PeerID, id domain.RoomID) {
	remaining, deleted := o.Rooms.Leave(id, peer)
	o.Registry.ClearRoom(peer, id)
	if deleted {
		metrics.SetActiveRooms(o.Rooms.Count())
		return
	}
	left := domain.Message{Type: domain.TypePeerLeft, PeerID: peer}
	for _, m := range remaining {
		o.send(m, left)
	}
}

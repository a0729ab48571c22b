package orch

import (
	"github.com/dkeye/RemoteDesk/internal/domain"
	"github.com/dkeye/RemoteDesk/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Relay forwards a signal or ice-candidate from peer. With To set it goes to
// that peer wherever it is; otherwise to the rest of peer's room. Anything
// undeliverable is dropped without telling the sender.
func (o *Orchestrator) Relay(peer domain.PeerID, in domain.Message) {
	out := domain.Message{Type: in.Type, From: peer, To: in.To, Payload: in.Payload}
	frame, err := out.Encode()
	if err != nil {
		log.Debug().Err(err).Str("module", "orch").Str("peer", string(peer)).Msg("drop unencodable relay frame")
		return
	}

	if in.To != "" {
		dst, ok := o.Registry.LookupByPeer(in.To)
		if !ok {
			metrics.FrameDropped("no_target")
			log.Debug().Str("module", "orch").Str("from", string(peer)).Str("to", string(in.To)).Msg("relay target gone")
			return
		}
		o.deliver(dst, in.Type, frame)
		return
	}

	roomID, ok := o.Registry.RoomOf(peer)
	if !ok {
		metrics.FrameDropped("no_room")
		return
	}
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		metrics.FrameDropped("no_room")
		return
	}
	res := room.Broadcast(peer, frame)
	for i := 0; i < res.SendTo; i++ {
		metrics.MessageRouted(string(in.Type))
	}
	for _, u := range res.Dropped {
		o.onDropped(u.Member, u.Err)
	}
	if res.SendTo+len(res.Dropped) > 1 {
		log.Warn().Str("module", "orch").Str("room", string(roomID)).Int("recipients", res.SendTo+len(res.Dropped)).Msg("negotiation broadcast to more than one peer")
	}
}

package orch

import (
	"errors"

	"github.com/dkeye/RemoteDesk/internal/app"
	"github.com/dkeye/RemoteDesk/internal/core"
	"github.com/dkeye/RemoteDesk/internal/domain"
	"github.com/dkeye/RemoteDesk/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Orchestrator applies relay operations to the registry, rooms and pairing
// intents. Calls for one connection must come from a single goroutine.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Pairing  *app.Pairing
	Policy   app.Policy
}

// Connect registers conn and queues its welcome frame before anything else
// can be sent to it.
func (o *Orchestrator) Connect(conn core.SignalConnection) core.MemberSession {
	ms := o.Registry.Register(conn)
	metrics.IncrementWSActiveConnections()
	o.send(ms, domain.Welcome(ms.PeerID()))
	return ms
}

// Disconnect runs cleanup for peer once; later calls are no-ops.
func (o *Orchestrator) Disconnect(peer domain.PeerID) {
	removed, ok := o.Registry.Remove(peer)
	if !ok {
		return
	}
	metrics.DecrementWSActiveConnections()
	if removed.RoomID != "" {
		o.leaveRoom(peer, removed.RoomID)
	}
	if removed.UserID != "" {
		o.Pairing.Forget(removed.UserID)
	}
	log.Info().Str("module", "orch").Str("peer", string(peer)).Msg("disconnected")
}

func (o *Orchestrator) send(ms core.MemberSession, m domain.Message) {
	frame, err := m.Encode()
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("type", string(m.Type)).Msg("encode")
		return
	}
	o.deliver(ms, m.Type, frame)
}

func (o *Orchestrator) deliver(ms core.MemberSession, kind domain.MessageType, frame core.Frame) bool {
	if err := ms.Signal().TrySend(frame); err != nil {
		o.onDropped(ms, err)
		return false
	}
	metrics.MessageRouted(string(kind))
	return true
}

func (o *Orchestrator) sendError(ms core.MemberSession, code domain.ErrorCode) {
	metrics.RoutingError(string(code))
	o.send(ms, domain.ErrorMessage(code))
}

func (o *Orchestrator) onDropped(ms core.MemberSession, err error) {
	if !errors.Is(err, core.ErrBackpressure) {
		metrics.FrameDropped("closed")
		log.Debug().Err(err).Str("module", "orch").Str("peer", string(ms.PeerID())).Msg("drop frame")
		return
	}
	metrics.FrameDropped("backpressure")
	log.Warn().Str("module", "orch").Str("peer", string(ms.PeerID())).Msg("outbound queue full")
	if o.Policy != nil && o.Policy.OnBackPressure(ms) == app.Disconnect {
		// The read pump notices the closed socket and runs Disconnect.
		ms.Signal().Close()
	}
}

type RoomView struct {
	ID      domain.RoomID   `json:"roomId"`
	Members []domain.Member `json:"members"`
}

func (o *Orchestrator) RoomsSnapshot() []RoomView {
	infos := o.Rooms.List()
	out := make([]RoomView, 0, len(infos))
	for _, info := range infos {
		v := RoomView{ID: info.ID, Members: make([]domain.Member, 0, len(info.Peers))}
		for _, p := range info.Peers {
			v.Members = append(v.Members, o.Registry.Member(p))
		}
		out = append(out, v)
	}
	return out
}

func (o *Orchestrator) Connections() int { return o.Registry.Count() }

package agent

import (
	"context"

	"github.com/dkeye/RemoteDesk/internal/client"
	"github.com/dkeye/RemoteDesk/internal/control"
	"github.com/dkeye/RemoteDesk/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type HostOptions struct {
	UserID  domain.UserID
	NewPeer PeerFactory
	Session func() control.SessionOptions
}

// Host registers a user id and offers a control channel to every viewer
// that connects to it.
type Host struct {
	opts  HostOptions
	link  relayLink
	peers *peerSet
}

func NewHost(opts HostOptions) *Host {
	return &Host{opts: opts, peers: newPeerSet()}
}

func (h *Host) OnConnect(_ context.Context, conn *client.Conn) error {
	h.link.set(conn)
	return conn.Send(domain.Message{Type: domain.TypeRegister, UserID: h.opts.UserID})
}

func (h *Host) Handle(ctx context.Context, _ *client.Conn, m domain.Message) {
	switch m.Type {
	case domain.TypeRegistered:
		log.Info().Str("module", "agent").Str("user", string(m.UserID)).Msg("registered, waiting for viewers")
	case domain.TypePeerJoined:
		viewer := m.InitiatorPeerID
		if viewer == "" {
			viewer = m.PeerID
		}
		h.offer(ctx, viewer)
	case domain.TypeSignal:
		h.onSignal(m)
	case domain.TypeICECandidate:
		addCandidate(h.peers, m)
	case domain.TypePeerLeft:
		h.peers.close(m.PeerID)
	case domain.TypeError:
		log.Warn().Str("module", "agent").Str("error", string(m.Error)).Msg("relay error")
	}
}

func (h *Host) Close() { h.peers.closeAll() }

// Sessions reports how many viewers have a live negotiation.
func (h *Host) Sessions() int { return h.peers.len() }

// offer is sent by the host: on direct connect the target starts negotiating.
func (h *Host) offer(ctx context.Context, viewer domain.PeerID) {
	e, err := newEntry(ctx, &h.link, h.peers, h.opts.NewPeer, viewer, control.RoleHost, h.opts.Session, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "agent").Str("viewer", string(viewer)).Msg("create peer")
		return
	}
	offer, err := e.pc.CreateOffer()
	if err != nil {
		log.Error().Err(err).Str("module", "agent").Str("viewer", string(viewer)).Msg("create offer")
		h.peers.close(viewer)
		return
	}
	if err := h.link.send(domain.TypeSignal, viewer, offer); err != nil {
		log.Error().Err(err).Str("module", "agent").Str("viewer", string(viewer)).Msg("send offer")
		h.peers.close(viewer)
		return
	}
	log.Info().Str("module", "agent").Str("viewer", string(viewer)).Msg("offer sent")
}

func (h *Host) onSignal(m domain.Message) {
	e, ok := h.peers.get(m.From)
	if !ok {
		return
	}
	desc, err := decodeDescription(m.Payload)
	if err != nil || desc.Type != webrtc.SDPTypeAnswer {
		log.Debug().Err(err).Str("module", "agent").Str("from", string(m.From)).Msg("ignore signal")
		return
	}
	if err := e.pc.ApplyAnswer(desc); err != nil {
		log.Error().Err(err).Str("module", "agent").Str("from", string(m.From)).Msg("apply answer")
		h.peers.close(m.From)
	}
}

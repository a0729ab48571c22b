package agent

import (
	"context"
	"sync"

	"github.com/dkeye/RemoteDesk/internal/client"
	"github.com/dkeye/RemoteDesk/internal/control"
	"github.com/dkeye/RemoteDesk/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type ViewerOptions struct {
	Target domain.UserID
	// UserID is optional; when set the host sees it as initiatorId.
	UserID  domain.UserID
	NewPeer PeerFactory
	Session func() control.SessionOptions
	// OnReady runs once the control channel to the host is open.
	OnReady func(ctx context.Context, s *control.Session)
}

// Viewer connects to a host by user id and answers its offer.
type Viewer struct {
	opts  ViewerOptions
	link  relayLink
	peers *peerSet

	mu     sync.Mutex
	err    error
	failed chan struct{}
}

func NewViewer(opts ViewerOptions) *Viewer {
	return &Viewer{opts: opts, peers: newPeerSet(), failed: make(chan struct{})}
}

func (v *Viewer) OnConnect(_ context.Context, conn *client.Conn) error {
	v.link.set(conn)
	if v.opts.UserID != "" {
		if err := conn.Send(domain.Message{Type: domain.TypeRegister, UserID: v.opts.UserID}); err != nil {
			return err
		}
	}
	return conn.Send(domain.Message{Type: domain.TypeConnect, TargetUserID: v.opts.Target})
}

func (v *Viewer) Handle(ctx context.Context, _ *client.Conn, m domain.Message) {
	switch m.Type {
	case domain.TypeConnecting:
		log.Info().Str("module", "agent").Str("target", string(m.TargetUserID)).Msg("connecting")
	case domain.TypeSignal:
		v.onSignal(ctx, m)
	case domain.TypeICECandidate:
		addCandidate(v.peers, m)
	case domain.TypePeerLeft:
		v.peers.close(m.PeerID)
	case domain.TypeError:
		log.Error().Str("module", "agent").Str("error", string(m.Error)).Msg("relay error")
		v.fail(m.Error)
	}
}

// Failed is closed when the relay rejects the connect request.
func (v *Viewer) Failed() <-chan struct{} { return v.failed }

func (v *Viewer) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

func (v *Viewer) Close() { v.peers.closeAll() }

func (v *Viewer) fail(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return
	}
	v.err = err
	close(v.failed)
}

func (v *Viewer) onSignal(ctx context.Context, m domain.Message) {
	desc, err := decodeDescription(m.Payload)
	if err != nil {
		log.Debug().Err(err).Str("module", "agent").Msg("ignore signal")
		return
	}
	if desc.Type != webrtc.SDPTypeOffer {
		return
	}
	host := m.From
	e, err := newEntry(ctx, &v.link, v.peers, v.opts.NewPeer, host, control.RoleViewer, v.opts.Session, v.opts.OnReady)
	if err != nil {
		log.Error().Err(err).Str("module", "agent").Str("host", string(host)).Msg("create peer")
		return
	}
	answer, err := e.pc.ApplyOffer(desc)
	if err != nil {
		log.Error().Err(err).Str("module", "agent").Str("host", string(host)).Msg("apply offer")
		v.peers.close(host)
		return
	}
	if err := v.link.send(domain.TypeSignal, host, answer); err != nil {
		log.Error().Err(err).Str("module", "agent").Str("host", string(host)).Msg("send answer")
		v.peers.close(host)
	}
}

// Package agent runs the desktop side of a session: it answers relay
// messages, negotiates the peer connection and starts the control protocol.
package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/RemoteDesk/internal/client"
	"github.com/dkeye/RemoteDesk/internal/control"
	"github.com/dkeye/RemoteDesk/internal/core"
	"github.com/dkeye/RemoteDesk/internal/domain"
	json "github.com/goccy/go-json"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var ErrNotConnected = errors.New("relay not connected")

// PeerFactory creates a peer connection towards remote.
type PeerFactory func(remote domain.PeerID) (core.PeerConnection, error)

// relayLink holds the current relay socket. It changes on every reconnect.
type relayLink struct {
	mu   sync.Mutex
	conn *client.Conn
}

func (l *relayLink) set(c *client.Conn) {
	l.mu.Lock()
	l.conn = c
	l.mu.Unlock()
}

func (l *relayLink) send(kind domain.MessageType, to domain.PeerID, v any) error {
	l.mu.Lock()
	c := l.conn
	l.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}
	return c.SendPayload(kind, to, v)
}

type peerEntry struct {
	pc core.PeerConnection

	mu      sync.Mutex
	session *control.Session
}

func (e *peerEntry) setSession(s *control.Session) {
	e.mu.Lock()
	e.session = s
	e.mu.Unlock()
}

func (e *peerEntry) close() {
	e.mu.Lock()
	s := e.session
	e.session = nil
	e.mu.Unlock()
	if s != nil {
		s.Close()
	}
	e.pc.Close()
}

type peerSet struct {
	mu sync.Mutex
	m  map[domain.PeerID]*peerEntry
}

func newPeerSet() *peerSet { return &peerSet{m: make(map[domain.PeerID]*peerEntry)} }

func (s *peerSet) get(id domain.PeerID) (*peerEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[id]
	return e, ok
}

// put stores e and returns the entry it replaced, if any.
func (s *peerSet) put(id domain.PeerID, e *peerEntry) *peerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.m[id]
	s.m[id] = e
	return old
}

// forget removes id only while it still maps to e.
func (s *peerSet) forget(id domain.PeerID, e *peerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m[id] == e {
		delete(s.m, id)
	}
}

func (s *peerSet) close(id domain.PeerID) {
	s.mu.Lock()
	e, ok := s.m[id]
	delete(s.m, id)
	s.mu.Unlock()
	if ok {
		e.close()
	}
}

func (s *peerSet) closeAll() {
	s.mu.Lock()
	all := s.m
	s.m = make(map[domain.PeerID]*peerEntry)
	s.mu.Unlock()
	for _, e := range all {
		e.close()
	}
}

func (s *peerSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// newEntry wires a fresh peer connection to the relay and to a control
// session that starts once the channel opens.
func newEntry(
	ctx context.Context,
	link *relayLink,
	peers *peerSet,
	factory PeerFactory,
	remote domain.PeerID,
	role control.Role,
	opts func() control.SessionOptions,
	onReady func(context.Context, *control.Session),
) (*peerEntry, error) {
	pc, err := factory(remote)
	if err != nil {
		return nil, err
	}
	e := &peerEntry{pc: pc}
	pc.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		if err := link.send(domain.TypeICECandidate, remote, ci); err != nil {
			log.Warn().Err(err).Str("module", "agent").Str("remote", string(remote)).Msg("send candidate")
		}
	})
	pc.OnControlChannel(func(ch core.ControlChannel) {
		s := control.NewSession(role, ch, opts())
		if err := s.Start(ctx); err != nil {
			log.Error().Err(err).Str("module", "agent").Str("remote", string(remote)).Msg("start control session")
			return
		}
		e.setSession(s)
		if onReady != nil {
			go onReady(ctx, s)
		}
	})
	pc.OnClosed(func() {
		peers.forget(remote, e)
		log.Info().Str("module", "agent").Str("remote", string(remote)).Msg("peer closed")
	})
	if old := peers.put(remote, e); old != nil {
		old.close()
	}
	return e, nil
}

func decodeDescription(raw json.RawMessage) (webrtc.SessionDescription, error) {
	var desc webrtc.SessionDescription
	err := json.Unmarshal(raw, &desc)
	return desc, err
}

func decodeCandidate(raw json.RawMessage) (webrtc.ICECandidateInit, error) {
	var ci webrtc.ICECandidateInit
	err := json.Unmarshal(raw, &ci)
	return ci, err
}

func addCandidate(peers *peerSet, m domain.Message) {
	e, ok := peers.get(m.From)
	if !ok {
		return
	}
	ci, err := decodeCandidate(m.Payload)
	if err != nil {
		log.Debug().Err(err).Str("module", "agent").Msg("ignore candidate")
		return
	}
	if err := e.pc.AddICECandidate(ci); err != nil {
		log.Warn().Err(err).Str("module", "agent").Str("remote", string(m.From)).Msg("add candidate")
	}
}

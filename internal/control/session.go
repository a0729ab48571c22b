package control

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/RemoteDesk/internal/core"
	"github.com/rs/zerolog/log"
)

type Role int

const (
	RoleHost Role = iota
	RoleViewer
)

func (r Role) String() string {
	if r == RoleHost {
		return "host"
	}
	return "viewer"
}

type SessionOptions struct {
	Name string
	// Dispatcher applies remote input. Viewers leave it nil and ignore input.
	Dispatcher *Dispatcher
	Receiver   *Receiver
	Clipboard  Clipboard
	// ClipboardInterval defaults to one second.
	ClipboardInterval time.Duration
	OnHello           func(Event)
	OnFile            func(path string)
}

// Session speaks the control protocol over one open channel.
type Session struct {
	role Role
	ch   core.ControlChannel
	opts SessionOptions
	clip *ClipboardSync

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	peer    string
	helloed bool
}

func NewSession(role Role, ch core.ControlChannel, opts SessionOptions) *Session {
	s := &Session{role: role, ch: ch, opts: opts}
	if opts.Clipboard != nil {
		interval := opts.ClipboardInterval
		if interval <= 0 {
			interval = time.Second
		}
		s.clip = NewClipboardSync(opts.Clipboard, interval, s.Send)
	}
	return s
}

// Start installs the message handler, says hello and starts clipboard sync.
// The channel is usable right away; the peer's hello is not awaited.
func (s *Session) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.ch.OnMessage(s.handle)
	if err := s.Send(Hello(s.role == RoleHost, s.opts.Name)); err != nil {
		s.cancel()
		return err
	}
	if s.clip != nil {
		go s.clip.Run(s.ctx)
	}
	log.Info().Str("module", "control").Str("role", s.role.String()).Msg("control session started")
	return nil
}

func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	_ = s.ch.Close()
}

func (s *Session) Send(e Event) error {
	return sendEvent(s.ch, e)
}

func (s *Session) SendFile(ctx context.Context, name string, data []byte, chunkSize int) error {
	return SendFile(ctx, s.ch, name, data, chunkSize)
}

// Flush waits until everything queued on the channel has been handed to the
// transport.
func (s *Session) Flush(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for s.ch.BufferedAmount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Peer returns the name from the peer's hello, if one arrived.
func (s *Session) Peer() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer, s.helloed
}

func (s *Session) handle(data []byte, isText bool) {
	ctx := s.ctx
	if !isText {
		s.chunk(data)
		return
	}
	e, err := Decode(data)
	if err != nil {
		log.Debug().Err(err).Str("module", "control").Msg("ignore control frame")
		return
	}

	switch e.Type {
	case EventHelloHost, EventHelloViewer:
		s.mu.Lock()
		s.peer, s.helloed = e.Name, true
		s.mu.Unlock()
		log.Info().Str("module", "control").Str("hello", string(e.Type)).Str("name", e.Name).Msg("peer hello")
		if s.opts.OnHello != nil {
			s.opts.OnHello(e)
		}
	case EventMove, EventDown, EventUp, EventDoubleClick, EventContextClick, EventWheel:
		if s.opts.Dispatcher == nil {
			return
		}
		if err := s.opts.Dispatcher.Apply(ctx, e); err != nil {
			ev := log.Warn()
			if errors.Is(err, ErrInjectionUnavailable) {
				ev = log.Error()
			}
			ev.Err(err).Str("module", "control").Str("event", string(e.Type)).Msg("inject")
		}
	case EventClipboard:
		if s.clip == nil {
			return
		}
		if err := s.clip.Receive(ctx, e.Text); err != nil {
			log.Warn().Err(err).Str("module", "control").Msg("clipboard write")
		}
	case EventFileMeta:
		if s.opts.Receiver == nil {
			return
		}
		if err := s.opts.Receiver.Begin(e.Name, e.Size); err != nil {
			log.Warn().Err(err).Str("module", "control").Str("file", e.Name).Msg("reject file")
		}
	case EventFileChunk:
		s.chunk(e.Bytes)
	case EventFileEnd:
		if s.opts.Receiver == nil {
			return
		}
		path, err := s.opts.Receiver.End(ctx)
		if err != nil {
			log.Warn().Err(err).Str("module", "control").Msg("file transfer failed")
			return
		}
		if s.opts.OnFile != nil {
			s.opts.OnFile(path)
		}
	}
}

func (s *Session) chunk(b []byte) {
	if s.opts.Receiver == nil {
		return
	}
	if err := s.opts.Receiver.Chunk(b); err != nil {
		log.Debug().Err(err).Str("module", "control").Int("bytes", len(b)).Msg("drop file chunk")
	}
}

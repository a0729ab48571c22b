package control

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Clipboard interface {
	ReadText(ctx context.Context) (string, error)
	WriteText(ctx context.Context, text string) error
}

// ClipboardSync polls the local clipboard on a fixed interval and sends
// changes, never echoing back a value that just arrived from the peer.
type ClipboardSync struct {
	cb       Clipboard
	interval time.Duration
	send     func(Event) error

	mu           sync.Mutex
	lastSent     string
	lastReceived string
}

func NewClipboardSync(cb Clipboard, interval time.Duration, send func(Event) error) *ClipboardSync {
	return &ClipboardSync{cb: cb, interval: interval, send: send}
}

func (s *ClipboardSync) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Poll(ctx); err != nil {
				log.Debug().Err(err).Str("module", "control").Msg("clipboard poll")
			}
		}
	}
}

// Poll sends the local clipboard if it changed since the last exchange.
func (s *ClipboardSync) Poll(ctx context.Context) error {
	text, err := s.cb.ReadText(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if text == "" || text == s.lastSent || text == s.lastReceived {
		return nil
	}
	if err := s.send(ClipboardText(text)); err != nil {
		return err
	}
	s.lastSent, s.lastReceived = text, ""
	return nil
}

// Receive applies text from the peer locally.
func (s *ClipboardSync) Receive(ctx context.Context, text string) error {
	s.mu.Lock()
	s.lastSent, s.lastReceived = "", text
	s.mu.Unlock()
	return s.cb.WriteText(ctx, text)
}

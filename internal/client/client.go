// Package client is the desktop side of the relay protocol.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/RemoteDesk/internal/domain"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

const writeWait = 5 * time.Second

var ErrNoWelcome = errors.New("relay did not send welcome")

// Conn is one live relay socket.
type Conn struct {
	ws   *websocket.Conn
	peer domain.PeerID

	mu sync.Mutex
}

// Dial connects to url and waits for the welcome frame.
func Dial(ctx context.Context, dialer *websocket.Dialer, url string) (*Conn, error) {
	ws, _, err := dialer.DialContext(ctx, url, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Conn{ws: ws}
	m, err := c.Read()
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	if m.Type != domain.TypeWelcome || m.PeerID == "" {
		_ = ws.Close()
		return nil, fmt.Errorf("%w: got %q", ErrNoWelcome, m.Type)
	}
	c.peer = m.PeerID
	return c, nil
}

func (c *Conn) PeerID() domain.PeerID { return c.peer }

func (c *Conn) Send(m domain.Message) error {
	b, err := m.Encode()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, b)
}

// SendPayload marshals v as the opaque payload of a signal or ice-candidate.
func (c *Conn) SendPayload(kind domain.MessageType, to domain.PeerID, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Send(domain.Message{Type: kind, To: to, Payload: raw})
}

// Read returns the next relay frame, skipping frames it cannot parse.
func (c *Conn) Read() (domain.Message, error) {
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			return domain.Message{}, err
		}
		if mt != websocket.TextMessage {
			continue
		}
		var m domain.Message
		if err := json.Unmarshal(data, &m); err != nil {
			log.Debug().Err(err).Str("module", "client").Msg("ignore relay frame")
			continue
		}
		return m, nil
	}
}

func (c *Conn) Close() error { return c.ws.Close() }

// Handler reacts to relay sessions. OnConnect runs on every new socket and
// must restore registrations, since the relay keeps nothing across sockets.
type Handler interface {
	OnConnect(ctx context.Context, conn *Conn) error
	Handle(ctx context.Context, conn *Conn, m domain.Message)
}

type Options struct {
	URL          string
	Dialer       *websocket.Dialer
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

// Run keeps a relay session up until ctx ends, redialing with capped
// exponential backoff after every disconnect.
func Run(ctx context.Context, opts Options, h Handler) error {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	for {
		conn, err := dial(ctx, opts)
		if err != nil {
			return err
		}
		log.Info().Str("module", "client").Str("url", opts.URL).Str("peer", string(conn.PeerID())).Msg("relay connected")
		err = serve(ctx, conn, h)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Str("module", "client").Msg("relay session ended")
	}
}

func dial(ctx context.Context, opts Options) (*Conn, error) {
	b := retry.NewExponential(opts.ReconnectMin)
	b = retry.WithCappedDuration(opts.ReconnectMax, b)
	b = retry.WithJitterPercent(10, b)

	var conn *Conn
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		c, err := Dial(ctx, opts.Dialer, opts.URL)
		if err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("relay dial failed")
			return retry.RetryableError(err)
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func serve(ctx context.Context, conn *Conn, h Handler) error {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := h.OnConnect(ctx, conn); err != nil {
		return fmt.Errorf("on connect: %w", err)
	}
	for {
		m, err := conn.Read()
		if err != nil {
			return err
		}
		h.Handle(ctx, conn, m)
	}
}

package signal

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/RemoteDesk/internal/domain"
	"github.com/dkeye/RemoteDesk/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func (ctl *SignalWSController) writePump(ctx context.Context, peer domain.PeerID, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("peer", string(peer)).Msg("writePump ctx done")
			c.Close()
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("peer", string(peer)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("peer", string(peer)).Msg("writePump write error")
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("peer", string(peer)).Msg("ping failed")
				c.Close()
				return
			}
		}
	}
}

// readPump owns all inbound handling for peer. Its deferred block is the
// only place that runs disconnect cleanup.
func (ctl *SignalWSController) readPump(peer domain.PeerID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("peer", string(peer)).Msg("readPump closing")
		c.Close()
		ctl.Orch.Disconnect(peer)
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait))
	})
	limiter := newFrameLimiter(ctl.rateLimit, ctl.rateBurst)

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("peer", string(peer)).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait))
		if mt != websocket.TextMessage {
			continue
		}
		ctl.handleSignal(peer, data, limiter)
	}
}

// handleSignal ignores malformed and unknown frames without replying.
// Only relayed negotiation frames count against the limiter; requests that
// expect a reply are always served.
func (ctl *SignalWSController) handleSignal(peer domain.PeerID, data []byte, limiter *rate.Limiter) {
	m, err := domain.DecodeInbound(data)
	if err != nil {
		ev := log.Debug().Str("module", "signal").Str("peer", string(peer))
		if errors.Is(err, domain.ErrUnknownType) {
			ev = ev.Str("type", string(m.Type))
		}
		ev.Err(err).Msg("ignore frame")
		return
	}
	if (m.Type == domain.TypeSignal || m.Type == domain.TypeICECandidate) && !limiter.Allow() {
		metrics.FrameDropped("rate_limited")
		log.Debug().Str("module", "signal").Str("peer", string(peer)).Str("type", string(m.Type)).Msg("rate limited frame")
		return
	}
	ctl.dispatch(peer, m)
}

package signal

import (
	"github.com/dkeye/RemoteDesk/internal/domain"
	"github.com/rs/zerolog/log"
)

// handleRelay forwards negotiation payloads without looking inside them.
// An inbound roomId is advisory; the sender's membership decides.
func (ctl *SignalWSController) handleRelay(peer domain.PeerID, m domain.Message) {
	log.Debug().Str("module", "signal").Str("peer", string(peer)).Str("type", string(m.Type)).Str("to", string(m.To)).Int("payload", len(m.Payload)).Msg("relay")
	ctl.Orch.Relay(peer, m)
}

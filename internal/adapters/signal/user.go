package signal

import (
	"github.com/dkeye/RemoteDesk/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleRegister(peer domain.PeerID, m domain.Message) {
	log.Info().Str("module", "signal").Str("peer", string(peer)).Str("user", string(m.UserID)).Msg("register")
	ctl.Orch.RegisterUser(peer, string(m.UserID))
}

func (ctl *SignalWSController) handleConnect(peer domain.PeerID, m domain.Message) {
	log.Info().Str("module", "signal").Str("peer", string(peer)).Str("target", string(m.TargetUserID)).Msg("connect")
	ctl.Orch.ConnectUser(peer, string(m.TargetUserID))
}

package signal

import (
	"github.com/dkeye/RemoteDesk/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleCreate(peer domain.PeerID) {
	log.Info().Str("module", "signal").Str("peer", string(peer)).Msg("create")
	ctl.Orch.CreateRoom(peer)
}

func (ctl *SignalWSController) handleJoin(peer domain.PeerID, m domain.Message) {
	log.Info().Str("module", "signal").Str("peer", string(peer)).Str("room", string(m.RoomID)).Msg("join")
	ctl.Orch.JoinRoom(peer, m.RoomID)
}

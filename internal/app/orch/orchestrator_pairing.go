package orch

import (
	"errors"

	"github.com/dkeye/RemoteDesk/internal/core"
	"github.com/dkeye/RemoteDesk/internal/domain"
	"github.com/rs/zerolog/log"
)

// RegisterUser binds a stable user id to peer. Invalid ids are ignored.
func (o *Orchestrator) RegisterUser(peer domain.PeerID, raw string) {
	uid, err := domain.ParseUserID(raw)
	if err != nil {
		log.Debug().Err(err).Str("module", "orch").Str("peer", string(peer)).Msg("ignore register")
		return
	}
	ms, ok := o.Registry.LookupByPeer(peer)
	if !ok {
		return
	}
	prev, evicted, ok := o.Registry.BindUser(peer, uid)
	if !ok {
		return
	}
	if prev != "" && prev != uid {
		o.Pairing.Forget(prev)
	}
	if evicted != "" {
		log.Warn().Str("module", "orch").Str("user", string(uid)).Str("old_peer", string(evicted)).Str("new_peer", string(peer)).Msg("user id taken over")
	}
	o.send(ms, domain.Message{Type: domain.TypeRegistered, UserID: uid})
}

// ConnectUser asks the holder of target to start negotiating with peer.
// The target, not the caller, sends the offer.
func (o *Orchestrator) ConnectUser(peer domain.PeerID, target string) {
	ms, ok := o.Registry.LookupByPeer(peer)
	if !ok {
		return
	}
	uid, err := domain.ParseUserID(target)
	switch {
	case errors.Is(err, domain.ErrUserIDEmpty):
		o.sendError(ms, domain.ErrTargetUserIDMissing)
		return
	case err != nil:
		o.sendError(ms, domain.ErrUserNotFound)
		return
	}

	dst, ok := o.Registry.LookupByUser(uid)
	if !ok {
		o.sendError(ms, domain.ErrUserNotFound)
		return
	}
	if !dst.Signal().Writable() {
		o.sendError(ms, domain.ErrUserOffline)
		return
	}

	initiator, hasUser := o.Registry.UserOf(peer)
	frame, err := domain.Message{
		Type:            domain.TypePeerJoined,
		PeerID:          peer,
		UserID:          uid,
		InitiatorID:     initiator,
		InitiatorPeerID: peer,
	}.Encode()
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode peer-joined")
		return
	}
	if err := dst.Signal().TrySend(frame); err != nil {
		if errors.Is(err, core.ErrClosed) {
			o.sendError(ms, domain.ErrUserOffline)
			return
		}
		o.onDropped(dst, err)
	}
	if hasUser {
		o.Pairing.Add(uid, initiator)
	}
	log.Info().Str("module", "orch").Str("peer", string(peer)).Str("target", string(uid)).Msg("direct connect")
	o.send(ms, domain.Message{Type: domain.TypeConnecting, TargetUserID: uid})
}

package core

import "github.com/pion/webrtc/v4"

// PeerConnection is the negotiation surface of a direct desktop-to-desktop
// link. SDP and candidates travel through the relay as opaque payloads.
type PeerConnection interface {
	// CreateOffer sets and returns the local offer.
	CreateOffer() (webrtc.SessionDescription, error)
	// ApplyOffer sets the remote offer and returns the local answer.
	ApplyOffer(webrtc.SessionDescription) (webrtc.SessionDescription, error)
	ApplyAnswer(webrtc.SessionDescription) error
	AddICECandidate(webrtc.ICECandidateInit) error
	OnICECandidate(func(webrtc.ICECandidateInit))
	// OnControlChannel fires once the control data channel is open,
	// whichever side created it.
	OnControlChannel(func(ControlChannel))
	OnClosed(func())
	Close()
}

// ControlChannel carries control events between two peers.
type ControlChannel interface {
	SendText(string) error
	Send([]byte) error
	OnMessage(func(data []byte, isText bool))
	// BufferedAmount is the number of bytes queued but not yet sent.
	BufferedAmount() uint64
	Close() error
}

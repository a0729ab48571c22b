package rtc

import (
	"sync"

	"github.com/dkeye/RemoteDesk/internal/control"
	"github.com/dkeye/RemoteDesk/internal/core"
	"github.com/dkeye/RemoteDesk/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// WebRTCConnection implements core.PeerConnection on pion. Candidates that
// arrive before the remote description are held until it is set.
type WebRTCConnection struct {
	pc     *webrtc.PeerConnection
	remote domain.PeerID

	mu        sync.Mutex
	onICE     func(webrtc.ICECandidateInit)
	onControl func(core.ControlChannel)
	onClosed  func()
	pending   []webrtc.ICECandidateInit
	closeOnce sync.Once
}

func DefaultWebRTCConfig() webrtc.Configuration {
	return ConfigFromURLs([]string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"})
}

func ConfigFromURLs(urls []string) webrtc.Configuration {
	servers := make([]webrtc.ICEServer, 0, len(urls))
	for _, u := range urls {
		servers = append(servers, webrtc.ICEServer{URLs: []string{u}})
	}
	return webrtc.Configuration{ICEServers: servers}
}

func NewWebRTCConnection(cfg webrtc.Configuration, remote domain.PeerID) (*WebRTCConnection, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	c := &WebRTCConnection{pc: pc, remote: remote}

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("remote", string(remote)).Str("peer_connection_state", s.String()).Msg("Peer state")
		if s == webrtc.PeerConnectionStateFailed || s == webrtc.PeerConnectionStateClosed {
			c.fireClosed()
		}
	})

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		c.mu.Lock()
		fn := c.onICE
		c.mu.Unlock()
		if fn != nil {
			fn(cand.ToJSON())
		}
	})

	// The viewer side learns about the channel from the offerer.
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != control.ChannelLabel {
			log.Warn().Str("module", "rtc").Str("label", dc.Label()).Msg("ignore data channel")
			return
		}
		c.bindChannel(dc)
	})

	return c, nil
}

// CreateOffer opens the ordered, reliable control channel and returns the
// local offer. Only the offering side creates the channel.
func (c *WebRTCConnection) CreateOffer() (webrtc.SessionDescription, error) {
	ordered := true
	dc, err := c.pc.CreateDataChannel(control.ChannelLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	c.bindChannel(dc)

	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return offer, nil
}

func (c *WebRTCConnection) ApplyOffer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if err := c.pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	c.flushPending()
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return answer, nil
}

func (c *WebRTCConnection) ApplyAnswer(answer webrtc.SessionDescription) error {
	if err := c.pc.SetRemoteDescription(answer); err != nil {
		return err
	}
	c.flushPending()
	return nil
}

func (c *WebRTCConnection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	c.mu.Lock()
	if c.pc.RemoteDescription() == nil {
		c.pending = append(c.pending, ci)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.pc.AddICECandidate(ci)
}

func (c *WebRTCConnection) flushPending() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, ci := range pending {
		if err := c.pc.AddICECandidate(ci); err != nil {
			log.Warn().Err(err).Str("module", "rtc").Str("remote", string(c.remote)).Msg("add queued candidate")
		}
	}
}

func (c *WebRTCConnection) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	c.mu.Lock()
	c.onICE = fn
	c.mu.Unlock()
}

func (c *WebRTCConnection) OnControlChannel(fn func(core.ControlChannel)) {
	c.mu.Lock()
	c.onControl = fn
	c.mu.Unlock()
}

// OnClosed sets the callback run once when the connection fails or closes.
func (c *WebRTCConnection) OnClosed(fn func()) {
	c.mu.Lock()
	c.onClosed = fn
	c.mu.Unlock()
}

func (c *WebRTCConnection) Close() {
	if err := c.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("remote", string(c.remote)).Msg("close error")
	} else {
		log.Info().Str("module", "rtc").Str("remote", string(c.remote)).Msg("closed")
	}
	c.fireClosed()
}

func (c *WebRTCConnection) fireClosed() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		fn := c.onClosed
		c.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}

func (c *WebRTCConnection) bindChannel(dc *webrtc.DataChannel) {
	dc.OnOpen(func() {
		log.Info().Str("module", "rtc").Str("remote", string(c.remote)).Str("label", dc.Label()).Msg("control channel open")
		c.mu.Lock()
		fn := c.onControl
		c.mu.Unlock()
		if fn != nil {
			fn(&dataChannel{dc: dc})
		}
	})
}

type dataChannel struct {
	dc *webrtc.DataChannel
}

func (d *dataChannel) SendText(s string) error { return d.dc.SendText(s) }

func (d *dataChannel) Send(b []byte) error { return d.dc.Send(b) }

func (d *dataChannel) OnMessage(fn func(data []byte, isText bool)) {
	d.dc.OnMessage(func(msg webrtc.DataChannelMessage) { fn(msg.Data, msg.IsString) })
}

func (d *dataChannel) BufferedAmount() uint64 { return d.dc.BufferedAmount() }

func (d *dataChannel) Close() error { return d.dc.Close() }

package orch

import (
	"sync"
	"testing"

	"github.com/dkeye/RemoteDesk/internal/app"
	"github.com/dkeye/RemoteDesk/internal/core"
	"github.com/dkeye/RemoteDesk/internal/domain"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return core.ErrClosed
	case c.full:
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) Writable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *fakeConn) setFull(v bool) {
	c.mu.Lock()
	c.full = v
	c.mu.Unlock()
}

// take returns and clears everything sent so far.
func (c *fakeConn) take(t *testing.T) []domain.Message {
	t.Helper()
	c.mu.Lock()
	frames := c.frames
	c.frames = nil
	c.mu.Unlock()
	out := make([]domain.Message, 0, len(frames))
	for _, f := range frames {
		var m domain.Message
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

// only asserts exactly one message was sent since the last take.
func (c *fakeConn) only(t *testing.T) domain.Message {
	t.Helper()
	msgs := c.take(t)
	require.Len(t, msgs, 1, "%+v", msgs)
	return msgs[0]
}

type peer struct {
	id   domain.PeerID
	conn *fakeConn
}

func newOrchestrator(policy app.Policy) *Orchestrator {
	return &Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomManager(),
		Pairing:  app.NewPairing(),
		Policy:   policy,
	}
}

func connect(t *testing.T, o *Orchestrator) peer {
	t.Helper()
	c := &fakeConn{}
	ms := o.Connect(c)
	welcome := c.only(t)
	require.Equal(t, domain.TypeWelcome, welcome.Type)
	require.Equal(t, ms.PeerID(), welcome.PeerID)
	return peer{id: ms.PeerID(), conn: c}
}

func createRoom(t *testing.T, o *Orchestrator, p peer) domain.RoomID {
	t.Helper()
	o.CreateRoom(p.id)
	m := p.conn.only(t)
	require.Equal(t, domain.TypeRoomCreated, m.Type)
	require.Len(t, string(m.RoomID), domain.RoomIDLen)
	return m.RoomID
}

func register(t *testing.T, o *Orchestrator, p peer, uid string) {
	t.Helper()
	o.RegisterUser(p.id, uid)
	m := p.conn.only(t)
	require.Equal(t, domain.TypeRegistered, m.Type)
	require.Equal(t, domain.UserID(uid), m.UserID)
}

func TestWelcomeIsFirstAndUnique(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(app.SimplePolicy{})
	a := connect(t, o)
	b := connect(t, o)
	assert.NotEqual(t, a.id, b.id)
	assert.Equal(t, 2, o.Connections())
}

func TestRoomScenario(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(app.SimplePolicy{})
	a := connect(t, o)
	b := connect(t, o)

	id := createRoom(t, o, a)

	o.JoinRoom(b.id, id)
	assert.Equal(t, domain.Message{Type: domain.TypeRoomJoined, RoomID: id}, b.conn.only(t))
	assert.Equal(t, domain.Message{Type: domain.TypePeerJoined, PeerID: b.id}, a.conn.only(t))

	payload := []byte(`{"type":"offer","sdp":"x"}`)
	o.Relay(a.id, domain.Message{Type: domain.TypeSignal, Payload: payload})
	got := b.conn.only(t)
	assert.Equal(t, domain.TypeSignal, got.Type)
	assert.Equal(t, a.id, got.From)
	assert.JSONEq(t, string(payload), string(got.Payload))
	assert.Empty(t, a.conn.take(t), "sender never receives its own broadcast")

	o.Disconnect(b.id)
	assert.Equal(t, domain.Message{Type: domain.TypePeerLeft, PeerID: b.id}, a.conn.only(t))

	o.Disconnect(a.id)
	assert.Zero(t, o.Rooms.Count())
	assert.Zero(t, o.Connections())

	c := connect(t, o)
	o.JoinRoom(c.id, id)
	assert.Equal(t, domain.ErrRoomNotFound, c.conn.only(t).Error)
}

func TestJoinUnknownRoomKeepsCurrentRoom(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(app.SimplePolicy{})
	a := connect(t, o)
	b := connect(t, o)
	id := createRoom(t, o, a)
	o.JoinRoom(b.id, id)
	b.conn.take(t)
	a.conn.take(t)

	o.JoinRoom(b.id, "missing1")
	assert.Equal(t, domain.Message{Type: domain.TypeError, Error: domain.ErrRoomNotFound}, b.conn.only(t))
	assert.Empty(t, a.conn.take(t))

	cur, ok := o.Registry.RoomOf(b.id)
	require.True(t, ok)
	assert.Equal(t, id, cur)
}

func TestJoinEmptyRoomID(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(app.SimplePolicy{})
	a := connect(t, o)
	o.JoinRoom(a.id, "")
	assert.Equal(t, domain.ErrRoomNotFound, a.conn.only(t).Error)
}

func TestRejoinSameRoom(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(app.SimplePolicy{})
	a := connect(t, o)
	b := connect(t, o)
	id := createRoom(t, o, a)
	o.JoinRoom(b.id, id)
	b.conn.take(t)
	a.conn.take(t)

	o.JoinRoom(b.id, id)
	assert.Equal(t, domain.TypeRoomJoined, b.conn.only(t).Type)
	assert.Empty(t, a.conn.take(t))
	room, ok := o.Rooms.Get(id)
	require.True(t, ok)
	assert.Equal(t, 2, room.MemberCount())
}

func TestSwitchingRoomsLeavesOld(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(app.SimplePolicy{})
	a := connect(t, o)
	b := connect(t, o)
	c := connect(t, o)
	first := createRoom(t, o, a)
	o.JoinRoom(b.id, first)
	a.conn.take(t)
	b.conn.take(t)

	second := createRoom(t, o, c)
	o.JoinRoom(b.id, second)
	assert.Equal(t, domain.TypeRoomJoined, b.conn.only(t).Type)
	assert.Equal(t, domain.Message{Type: domain.TypePeerJoined, PeerID: b.id}, c.conn.only(t))
	assert.Equal(t, domain.Message{Type: domain.TypePeerLeft, PeerID: b.id}, a.conn.only(t))

	// Creating a room while in one also leaves it; the last member leaving
	// deletes the old room.
	o.CreateRoom(a.id)
	a.conn.take(t)
	_, ok := o.Rooms.Get(first)
	assert.False(t, ok)
}

func TestBroadcastReachesAllOthers(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(app.SimplePolicy{})
	host := connect(t, o)
	id := createRoom(t, o, host)
	var viewers []peer
	for range 3 {
		v := connect(t, o)
		o.JoinRoom(v.id, id)
		viewers = append(viewers, v)
	}
	host.conn.take(t)
	for _, v := range viewers {
		v.conn.take(t)
	}

	o.Relay(host.id, domain.Message{Type: domain.TypeICECandidate, Payload: []byte(`{"candidate":"c"}`)})
	for _, v := range viewers {
		m := v.conn.only(t)
		assert.Equal(t, domain.TypeICECandidate, m.Type)
		assert.Equal(t, host.id, m.From)
	}
	assert.Empty(t, host.conn.take(t))
}

func TestRelayTargetedIgnoresRooms(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(app.SimplePolicy{})
	a := connect(t, o)
	b := connect(t, o)
	c := connect(t, o)

	o.Relay(a.id, domain.Message{Type: domain.TypeSignal, To: c.id, RoomID: "whatever", Payload: []byte(`{"type":"answer","sdp":"y"}`)})
	m := c.conn.only(t)
	assert.Equal(t, a.id, m.From)
	assert.Equal(t, c.id, m.To)
	assert.Empty(t, m.RoomID)
	assert.Empty(t, b.conn.take(t))

	o.Relay(a.id, domain.Message{Type: domain.TypeSignal, To: "gone"})
	assert.Empty(t, a.conn.take(t), "undeliverable relays are dropped silently")
}

func TestRelayOutsideRoomIsDropped(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(app.SimplePolicy{})
	a := connect(t, o)
	b := connect(t, o)
	o.Relay(a.id, domain.Message{Type: domain.TypeSignal, Payload: []byte(`{}`)})
	assert.Empty(t, a.conn.take(t))
	assert.Empty(t, b.conn.take(t))
}

func TestDirectConnect(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(app.SimplePolicy{})
	host := connect(t, o)
	viewer := connect(t, o)
	register(t, o, host, "ABCD1234")
	register(t, o, viewer, "VIEW0001")

	o.ConnectUser(viewer.id, "ABCD1234")
	assert.Equal(t, domain.Message{
		Type:            domain.TypePeerJoined,
		PeerID:          viewer.id,
		UserID:          "ABCD1234",
		InitiatorID:     "VIEW0001",
		InitiatorPeerID: viewer.id,
	}, host.conn.only(t))
	assert.Equal(t, domain.Message{Type: domain.TypeConnecting, TargetUserID: "ABCD1234"}, viewer.conn.only(t))
	assert.Equal(t, []domain.UserID{"VIEW0001"}, o.Pairing.Sources("ABCD1234"))

	// The host answers by peer id.
	o.Relay(host.id, domain.Message{Type: domain.TypeSignal, To: viewer.id, Payload: []byte(`{"type":"offer","sdp":"z"}`)})
	assert.Equal(t, host.id, viewer.conn.only(t).From)

	o.Disconnect(viewer.id)
	assert.Zero(t, o.Pairing.Len())
}

func TestDirectConnectWithoutCallerUserID(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(app.SimplePolicy{})
	host := connect(t, o)
	viewer := connect(t, o)
	register(t, o, host, "HOST")

	o.ConnectUser(viewer.id, " HOST ")
	m := host.conn.only(t)
	assert.Equal(t, viewer.id, m.InitiatorPeerID)
	assert.Empty(t, m.InitiatorID)
	assert.Equal(t, domain.TypeConnecting, viewer.conn.only(t).Type)
	assert.Zero(t, o.Pairing.Len())
}

func TestDirectConnectErrors(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(app.SimplePolicy{})
	host := connect(t, o)
	viewer := connect(t, o)
	register(t, o, host, "HOST")

	o.ConnectUser(viewer.id, "")
	assert.Equal(t, domain.ErrTargetUserIDMissing, viewer.conn.only(t).Error)

	o.ConnectUser(viewer.id, "NOBODY")
	assert.Equal(t, domain.ErrUserNotFound, viewer.conn.only(t).Error)

	host.conn.Close()
	o.ConnectUser(viewer.id, "HOST")
	assert.Equal(t, domain.ErrUserOffline, viewer.conn.only(t).Error)

	o.Disconnect(host.id)
	o.ConnectUser(viewer.id, "HOST")
	assert.Equal(t, domain.ErrUserNotFound, viewer.conn.only(t).Error)
}

func TestNonStringIDsMatchNothing(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(app.SimplePolicy{})
	host := connect(t, o)
	viewer := connect(t, o)
	register(t, o, host, "42")
	createRoom(t, o, host)

	join, err := domain.DecodeInbound([]byte(`{"type":"join","roomId":12345678}`))
	require.NoError(t, err)
	o.JoinRoom(viewer.id, join.RoomID)
	assert.Equal(t, domain.ErrRoomNotFound, viewer.conn.only(t).Error)

	conn, err := domain.DecodeInbound([]byte(`{"type":"connect","targetUserId":42}`))
	require.NoError(t, err)
	o.ConnectUser(viewer.id, string(conn.TargetUserID))
	assert.Equal(t, domain.ErrUserNotFound, viewer.conn.only(t).Error)
	assert.Empty(t, host.conn.take(t))
}

func TestReRegisterRoutesToNewest(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(app.SimplePolicy{})
	first := connect(t, o)
	second := connect(t, o)
	viewer := connect(t, o)
	register(t, o, first, "U")
	register(t, o, second, "U")

	o.ConnectUser(viewer.id, "U")
	assert.Equal(t, domain.TypePeerJoined, second.conn.only(t).Type)
	assert.Empty(t, first.conn.take(t))
	viewer.conn.take(t)

	// The stale holder closing keeps the newer binding.
	o.Disconnect(first.id)
	o.ConnectUser(viewer.id, "U")
	assert.Equal(t, domain.TypePeerJoined, second.conn.only(t).Type)
}

func TestRegisterIgnoresInvalidIDs(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(app.SimplePolicy{})
	a := connect(t, o)
	o.RegisterUser(a.id, "   ")
	assert.Empty(t, a.conn.take(t))
	_, ok := o.Registry.UserOf(a.id)
	assert.False(t, ok)
}

func TestBackpressurePolicies(t *testing.T) {
	t.Parallel()
	for name, tc := range map[string]struct {
		policy     app.Policy
		wantClosed bool
	}{
		"drop":       {app.SimplePolicy{}, false},
		"disconnect": {app.StrictPolicy{}, true},
	} {
		t.Run(name, func(t *testing.T) {
			o := newOrchestrator(tc.policy)
			a := connect(t, o)
			b := connect(t, o)
			id := createRoom(t, o, a)
			o.JoinRoom(b.id, id)
			a.conn.take(t)
			b.conn.take(t)

			b.conn.setFull(true)
			o.Relay(a.id, domain.Message{Type: domain.TypeSignal, Payload: []byte(`{}`)})
			assert.Equal(t, tc.wantClosed, !b.conn.Writable())
			assert.True(t, a.conn.Writable())
			assert.Empty(t, a.conn.take(t))
		})
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(app.SimplePolicy{})
	a := connect(t, o)
	b := connect(t, o)
	id := createRoom(t, o, a)
	o.JoinRoom(b.id, id)
	a.conn.take(t)

	o.Disconnect(b.id)
	o.Disconnect(b.id)
	assert.Len(t, a.conn.take(t), 1)
}

func TestRoomsSnapshot(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(app.SimplePolicy{})
	a := connect(t, o)
	register(t, o, a, "HOST")
	id := createRoom(t, o, a)

	snap := o.RoomsSnapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, id, snap[0].ID)
	assert.Equal(t, []domain.Member{{PeerID: a.id, UserID: "HOST"}}, snap[0].Members)
}

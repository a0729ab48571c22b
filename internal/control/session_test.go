package control

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startSession(t *testing.T, role Role, opts SessionOptions) (*Session, *fakeChannel) {
	t.Helper()
	ch := &fakeChannel{}
	s := NewSession(role, ch, opts)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, s.Start(ctx))
	t.Cleanup(s.Close)
	return s, ch
}

func TestSessionHello(t *testing.T) {
	t.Parallel()
	var hello Event
	s, ch := startSession(t, RoleHost, SessionOptions{Name: "desk", OnHello: func(e Event) { hello = e }})

	frames := ch.frames()
	require.NotEmpty(t, frames)
	assert.JSONEq(t, `{"type":"hello-host","name":"desk"}`, frames[0].text)

	_, ok := s.Peer()
	assert.False(t, ok)
	ch.deliver([]byte(`{"type":"hello-viewer","name":"laptop"}`), true)
	name, ok := s.Peer()
	assert.True(t, ok)
	assert.Equal(t, "laptop", name)
	assert.Equal(t, EventHelloViewer, hello.Type)
}

func TestSessionAppliesInput(t *testing.T) {
	t.Parallel()
	d, inj := newTestDispatcher()
	_, ch := startSession(t, RoleHost, SessionOptions{Dispatcher: d})

	ch.deliver([]byte(`{"type":"move","x":0.5,"y":0.5}`), true)
	ch.deliver([]byte(`{"type":"context-click"}`), true)
	ch.deliver([]byte(`{"type":"move"}`), true)
	ch.deliver([]byte(`garbage`), true)
	assert.Equal(t, []call{
		{kind: "pointer", a: 960, b: 540},
		{kind: "button", btn: ButtonRight, down: true},
		{kind: "button", btn: ButtonRight},
	}, inj.got())
}

func TestSessionViewerIgnoresInput(t *testing.T) {
	t.Parallel()
	_, ch := startSession(t, RoleViewer, SessionOptions{})
	ch.deliver([]byte(`{"type":"move","x":0.5,"y":0.5}`), true)
	ch.deliver([]byte{1, 2, 3}, false)
	assert.Len(t, ch.frames(), 1, "only the hello went out")
}

func TestSessionReceivesClipboardAndFiles(t *testing.T) {
	t.Parallel()
	cb := &memClipboard{}
	sink := &memSink{}
	saved := make(chan string, 1)
	_, ch := startSession(t, RoleHost, SessionOptions{
		Clipboard:         cb,
		ClipboardInterval: time.Hour,
		Receiver:          NewReceiver(sink, 0),
		OnFile:            func(path string) { saved <- path },
	})

	ch.deliver([]byte(`{"type":"clipboard-text","text":"from viewer"}`), true)
	assert.Equal(t, []string{"from viewer"}, cb.writes)

	ch.deliver([]byte(`{"type":"file-meta","name":"a.txt","size":5}`), true)
	ch.deliver([]byte("he"), false)
	ch.deliver([]byte(`{"type":"file-chunk","bytes":"bGxv"}`), true)
	ch.deliver([]byte(`{"type":"file-end"}`), true)

	select {
	case path := <-saved:
		assert.Equal(t, "/downloads/a.txt", path)
	default:
		t.Fatal("file was not saved")
	}
	data, _ := sink.get("a.txt")
	assert.Equal(t, "hello", string(data))
}

func TestSessionFlush(t *testing.T) {
	t.Parallel()
	s, ch := startSession(t, RoleViewer, SessionOptions{})
	require.NoError(t, s.Flush(context.Background()))

	ch.mu.Lock()
	ch.buffered = 10
	ch.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Flush(ctx), context.DeadlineExceeded)

	go func() {
		time.Sleep(30 * time.Millisecond)
		ch.mu.Lock()
		ch.buffered = 0
		ch.mu.Unlock()
	}()
	assert.NoError(t, s.Flush(context.Background()))
}

func TestSessionCloseClosesChannel(t *testing.T) {
	t.Parallel()
	ch := &fakeChannel{}
	s := NewSession(RoleHost, ch, SessionOptions{})
	require.NoError(t, s.Start(context.Background()))
	s.Close()
	assert.Error(t, s.Send(ContextClick()))
}

package control

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiverRoundTrip(t *testing.T) {
	t.Parallel()
	sink := &memSink{}
	r := NewReceiver(sink, 0)
	ctx := context.Background()

	require.NoError(t, r.Begin("notes.txt", 11))
	require.NoError(t, r.Chunk([]byte("hello ")))
	require.NoError(t, r.Chunk([]byte("world")))
	name, got, active := r.Pending()
	assert.Equal(t, "notes.txt", name)
	assert.EqualValues(t, 11, got)
	assert.True(t, active)

	path, err := r.End(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/downloads/notes.txt", path)
	data, ok := sink.get("notes.txt")
	require.True(t, ok)
	assert.Equal(t, "hello world", string(data))

	_, _, active = r.Pending()
	assert.False(t, active)
}

func TestReceiverSizeMismatch(t *testing.T) {
	t.Parallel()
	sink := &memSink{}
	r := NewReceiver(sink, 0)
	require.NoError(t, r.Begin("short.bin", 10))
	require.NoError(t, r.Chunk([]byte("abc")))
	_, err := r.End(context.Background())
	assert.ErrorIs(t, err, ErrSizeMismatch)
	_, ok := sink.get("short.bin")
	assert.False(t, ok)
}

func TestReceiverWithoutBegin(t *testing.T) {
	t.Parallel()
	r := NewReceiver(&memSink{}, 0)
	assert.ErrorIs(t, r.Chunk([]byte("x")), ErrNoTransfer)
	_, err := r.End(context.Background())
	assert.ErrorIs(t, err, ErrNoTransfer)
}

func TestReceiverBeginResets(t *testing.T) {
	t.Parallel()
	sink := &memSink{}
	r := NewReceiver(sink, 0)
	require.NoError(t, r.Begin("first", 100))
	require.NoError(t, r.Chunk([]byte("stale")))
	require.NoError(t, r.Begin("second", 2))
	require.NoError(t, r.Chunk([]byte("ok")))
	_, err := r.End(context.Background())
	require.NoError(t, err)
	data, _ := sink.get("second")
	assert.Equal(t, "ok", string(data))
}

func TestReceiverLimit(t *testing.T) {
	t.Parallel()
	r := NewReceiver(&memSink{}, 4)
	assert.ErrorIs(t, r.Begin("big", 5), ErrFileTooLarge)

	require.NoError(t, r.Begin("liar", 4))
	require.NoError(t, r.Chunk([]byte("abc")))
	assert.ErrorIs(t, r.Chunk([]byte("de")), ErrFileTooLarge)
	_, _, active := r.Pending()
	assert.False(t, active)
}

func TestSendFileFraming(t *testing.T) {
	t.Parallel()
	ch := &fakeChannel{}
	data := bytes.Repeat([]byte("z"), 10)
	require.NoError(t, SendFile(context.Background(), ch, "z.bin", data, 4))

	frames := ch.frames()
	require.Len(t, frames, 5)
	assert.JSONEq(t, `{"type":"file-meta","name":"z.bin","size":10}`, frames[0].text)
	assert.Len(t, frames[1].bin, 4)
	assert.Len(t, frames[2].bin, 4)
	assert.Len(t, frames[3].bin, 2)
	assert.JSONEq(t, `{"type":"file-end"}`, frames[4].text)
}

func TestSendFileEmpty(t *testing.T) {
	t.Parallel()
	ch := &fakeChannel{}
	require.NoError(t, SendFile(context.Background(), ch, "empty", nil, 16))
	frames := ch.frames()
	require.Len(t, frames, 2)
	assert.JSONEq(t, `{"type":"file-meta","name":"empty"}`, frames[0].text)
}

func TestSendFileErrors(t *testing.T) {
	t.Parallel()
	assert.Error(t, SendFile(context.Background(), &fakeChannel{}, "x", []byte("x"), 0))

	ch := &fakeChannel{failAt: 3}
	err := SendFile(context.Background(), ch, "x", []byte("abcdef"), 2)
	assert.ErrorContains(t, err, "chunk at 2")
}

func TestSendFileThroughReceiver(t *testing.T) {
	t.Parallel()
	sink := &memSink{}
	host := NewSession(RoleHost, &fakeChannel{}, SessionOptions{Receiver: NewReceiver(sink, 0)})
	host.ctx = context.Background()

	ch := &fakeChannel{}
	data := bytes.Repeat([]byte{0, 1, 2, 3, 255}, 1000)
	require.NoError(t, SendFile(context.Background(), ch, "blob.bin", data, 1024))
	for _, f := range ch.frames() {
		if f.bin != nil {
			host.handle(f.bin, false)
			continue
		}
		host.handle([]byte(f.text), true)
	}
	got, ok := sink.get("blob.bin")
	require.True(t, ok)
	assert.Equal(t, data, got)
}

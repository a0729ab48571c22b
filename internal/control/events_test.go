package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvents(t *testing.T) {
	t.Parallel()
	e, err := Decode([]byte(`{"type":"move","x":0.25,"y":0.75}`))
	require.NoError(t, err)
	p, ok := e.Point()
	require.True(t, ok)
	assert.Equal(t, Point{0.25, 0.75}, p)

	e, err = Decode([]byte(`{"type":"down","button":2}`))
	require.NoError(t, err)
	_, ok = e.Point()
	assert.False(t, ok)
	assert.Equal(t, 2, e.Button)

	e, err = Decode([]byte(`{"type":"file-chunk","bytes":"aGVsbG8="}`))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), e.Bytes)
}

func TestDecodeRejects(t *testing.T) {
	t.Parallel()
	_, err := Decode([]byte(`{"type":"move","x":0.5}`))
	assert.ErrorIs(t, err, ErrMalformedEvent)

	_, err = Decode([]byte(`nope`))
	assert.ErrorIs(t, err, ErrMalformedEvent)

	_, err = Decode([]byte(`{"type":"keyboard"}`))
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestEventEncoding(t *testing.T) {
	t.Parallel()
	b, err := Move(Point{0, 1}).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"move","x":0,"y":1}`, string(b))

	b, err = Press(true, 0, nil).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"down"}`, string(b))

	b, err = Press(false, 1, &Point{0.1, 0.2}).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"up","button":1,"x":0.1,"y":0.2}`, string(b))

	b, err = FileMeta("a.txt", 3).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"file-meta","name":"a.txt","size":3}`, string(b))

	b, err = Hello(true, "desk").Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"hello-host","name":"desk"}`, string(b))
}

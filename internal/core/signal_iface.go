package core

import "errors"

// Frame is one encoded relay message.
type Frame []byte

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// SignalConnection abstracts the relay messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend enqueues without blocking. It fails with ErrClosed after Close
	// and with ErrBackpressure when the outbound queue is full.
	TrySend(Frame) error
	Close()
	// Writable reports whether the transport still accepts frames.
	Writable() bool
}

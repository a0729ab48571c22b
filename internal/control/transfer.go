package control

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/RemoteDesk/internal/core"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoTransfer   = errors.New("no file transfer in progress")
	ErrSizeMismatch = errors.New("file size mismatch")
	ErrFileTooLarge = errors.New("file too large")
)

// FileSink stores a received file and returns where it went.
type FileSink interface {
	Save(ctx context.Context, suggestedName string, data []byte) (string, error)
}

// Receiver reassembles one file at a time. Chunks are concatenated in
// arrival order and checked against the announced size only.
type Receiver struct {
	sink    FileSink
	maxSize int64

	mu       sync.Mutex
	active   bool
	name     string
	size     int64
	chunks   [][]byte
	received int64
}

// NewReceiver limits transfers to maxSize bytes; zero means no limit.
func NewReceiver(sink FileSink, maxSize int64) *Receiver {
	return &Receiver{sink: sink, maxSize: maxSize}
}

// Begin discards any unfinished transfer and starts a new one.
func (r *Receiver) Begin(name string, size int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
	if size < 0 || (r.maxSize > 0 && size > r.maxSize) {
		return fmt.Errorf("%w: %d bytes", ErrFileTooLarge, size)
	}
	r.active, r.name, r.size = true, name, size
	log.Info().Str("module", "control").Str("file", name).Int64("size", size).Msg("file transfer started")
	return nil
}

func (r *Receiver) Chunk(b []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return ErrNoTransfer
	}
	if r.maxSize > 0 && r.received+int64(len(b)) > r.maxSize {
		r.resetLocked()
		return ErrFileTooLarge
	}
	r.chunks = append(r.chunks, bytes.Clone(b))
	r.received += int64(len(b))
	return nil
}

// End assembles the chunks and hands them to the sink when the total length
// matches the announced size.
func (r *Receiver) End(ctx context.Context) (string, error) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return "", ErrNoTransfer
	}
	name, size := r.name, r.size
	data := bytes.Join(r.chunks, nil)
	r.resetLocked()
	r.mu.Unlock()

	if int64(len(data)) != size {
		return "", fmt.Errorf("%w: got %d, want %d", ErrSizeMismatch, len(data), size)
	}
	path, err := r.sink.Save(ctx, name, data)
	if err != nil {
		return "", fmt.Errorf("save %q: %w", name, err)
	}
	log.Info().Str("module", "control").Str("file", name).Str("path", path).Int64("size", size).Msg("file saved")
	return path, nil
}

// Pending reports the name and byte count of the transfer in progress.
func (r *Receiver) Pending() (string, int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name, r.received, r.active
}

func (r *Receiver) resetLocked() {
	r.active, r.name, r.size, r.chunks, r.received = false, "", 0, nil, 0
}

// SendFile writes file-meta, binary chunks of at most chunkSize bytes, and
// file-end to ch.
func SendFile(ctx context.Context, ch core.ControlChannel, name string, data []byte, chunkSize int) error {
	if chunkSize <= 0 {
		return fmt.Errorf("invalid chunk size %d", chunkSize)
	}
	if err := sendEvent(ch, FileMeta(name, int64(len(data)))); err != nil {
		return err
	}
	for off := 0; off < len(data); off += chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(off+chunkSize, len(data))
		if err := ch.Send(data[off:end]); err != nil {
			return fmt.Errorf("send chunk at %d: %w", off, err)
		}
	}
	return sendEvent(ch, FileEnd())
}

func sendEvent(ch core.ControlChannel, e Event) error {
	b, err := e.Encode()
	if err != nil {
		return err
	}
	if err := ch.SendText(string(b)); err != nil {
		return fmt.Errorf("send %s: %w", e.Type, err)
	}
	return nil
}

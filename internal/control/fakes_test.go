package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type call struct {
	kind string
	a, b int
	down bool
	btn  Button
}

type fakeInjector struct {
	name  string
	err   error
	mu    sync.Mutex
	calls []call
}

func (f *fakeInjector) Name() string { return f.name }

func (f *fakeInjector) record(c call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, c)
	return nil
}

func (f *fakeInjector) InjectPointer(_ context.Context, x, y int) error {
	return f.record(call{kind: "pointer", a: x, b: y})
}

func (f *fakeInjector) InjectButton(_ context.Context, b Button, down bool) error {
	return f.record(call{kind: "button", btn: b, down: down})
}

func (f *fakeInjector) InjectScroll(_ context.Context, dx, dy int) error {
	return f.record(call{kind: "scroll", a: dx, b: dy})
}

func (f *fakeInjector) got() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type fixedScreen struct {
	size  Size
	err   error
	reads int
}

func (s *fixedScreen) ScreenSize(context.Context) (Size, error) {
	s.reads++
	return s.size, s.err
}

type frame struct {
	text string
	bin  []byte
}

// fakeChannel records what is sent and lets a test deliver inbound frames.
type fakeChannel struct {
	mu       sync.Mutex
	sent     []frame
	handler  func([]byte, bool)
	buffered uint64
	closed   bool
	failAt   int
}

func (c *fakeChannel) push(f frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("channel closed")
	}
	if c.failAt > 0 && len(c.sent)+1 == c.failAt {
		return fmt.Errorf("send %d failed", c.failAt)
	}
	c.sent = append(c.sent, f)
	return nil
}

func (c *fakeChannel) SendText(s string) error { return c.push(frame{text: s}) }

func (c *fakeChannel) Send(b []byte) error { return c.push(frame{bin: append([]byte(nil), b...)}) }

func (c *fakeChannel) OnMessage(fn func(data []byte, isText bool)) {
	c.mu.Lock()
	c.handler = fn
	c.mu.Unlock()
}

func (c *fakeChannel) BufferedAmount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffered
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) deliver(data []byte, isText bool) {
	c.mu.Lock()
	fn := c.handler
	c.mu.Unlock()
	fn(data, isText)
}

func (c *fakeChannel) frames() []frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]frame(nil), c.sent...)
}

type memSink struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (s *memSink) Save(_ context.Context, name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files == nil {
		s.files = make(map[string][]byte)
	}
	s.files[name] = data
	return "/downloads/" + name, nil
}

func (s *memSink) get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[name]
	return b, ok
}

type memClipboard struct {
	mu     sync.Mutex
	text   string
	writes []string
}

func (c *memClipboard) ReadText(context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text, nil
}

func (c *memClipboard) WriteText(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	c.writes = append(c.writes, text)
	return nil
}

func (c *memClipboard) set(text string) {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
}

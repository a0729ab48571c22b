package control

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ScreenSizer reports the local screen size in pixels.
type ScreenSizer interface {
	ScreenSize(ctx context.Context) (Size, error)
}

// CachedScreen remembers the last size read from src for ttl. Invalidate
// forces the next call to read again, e.g. after a display change.
type CachedScreen struct {
	src ScreenSizer
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	size    Size
	fetched time.Time
	known   bool
	stale   bool
}

func NewCachedScreen(src ScreenSizer, ttl time.Duration) *CachedScreen {
	return &CachedScreen{src: src, ttl: ttl, now: time.Now}
}

func (c *CachedScreen) Size(ctx context.Context) Size {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.known && !c.stale && c.now().Sub(c.fetched) < c.ttl {
		return c.size
	}
	s, err := c.src.ScreenSize(ctx)
	if err != nil || !s.Valid() {
		log.Warn().Err(err).Str("module", "control").Msg("screen size unavailable")
		if c.known {
			return c.size
		}
		return DefaultScreen
	}
	c.size, c.fetched, c.known, c.stale = s, c.now(), true, false
	return s
}

func (c *CachedScreen) Invalidate() {
	c.mu.Lock()
	c.stale = true
	c.mu.Unlock()
}

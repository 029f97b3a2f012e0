package situation

import (
	"sync"
	"time"
)

// Photo is a camera capture pending attachment to the next query.
type Photo struct {
	ImageBase64 string
	CapturedAt  time.Time
}

// PhotoCache holds at most one photo per session. Entries expire after the
// TTL even if never consumed.
type PhotoCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	photos  map[string]Photo
	nowFunc func() time.Time
}

func NewPhotoCache(ttl time.Duration) *PhotoCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &PhotoCache{
		ttl:     ttl,
		photos:  make(map[string]Photo),
		nowFunc: time.Now,
	}
}

// Put replaces any pending photo for the session.
func (c *PhotoCache) Put(sessionID string, p Photo) {
	if p.CapturedAt.IsZero() {
		p.CapturedAt = c.nowFunc().UTC()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.photos[sessionID] = p
}

// Take consumes the pending photo if present and unexpired.
func (c *PhotoCache) Take(sessionID string) (Photo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.photos[sessionID]
	if !ok {
		return Photo{}, false
	}
	delete(c.photos, sessionID)
	if c.nowFunc().Sub(p.CapturedAt) > c.ttl {
		return Photo{}, false
	}
	return p, true
}

func (c *PhotoCache) Drop(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.photos, sessionID)
}

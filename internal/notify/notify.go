package notify

import (
	"sync"
	"time"
)

// Level classifies a notification for display emphasis.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// Notification is one transient statusline message.
type Notification struct {
	Level     Level
	Text      string
	ExpiresAt time.Time
}

// DefaultTTL is how long a notification stays visible unless a custom TTL is
// given.
const DefaultTTL = 4 * time.Second

// Center accumulates levelled, expiring notifications. The view drains it
// each frame via Active; expired entries are pruned on read. Safe for use
// from multiple goroutines.
type Center struct {
	mu    sync.Mutex
	items []Notification
	ttl   time.Duration
	now   func() time.Time
}

// NewCenter builds a Center with the default TTL.
func NewCenter() *Center {
	return &Center{ttl: DefaultTTL, now: time.Now}
}

// Info posts an informational notification.
func (c *Center) Info(text string) { c.post(LevelInfo, text, c.ttl) }

// Warn posts a warning notification.
func (c *Center) Warn(text string) { c.post(LevelWarn, text, c.ttl) }

// Error posts an error notification.
func (c *Center) Error(text string) { c.post(LevelError, text, c.ttl) }

// Post adds a notification with an explicit TTL.
func (c *Center) Post(level Level, text string, ttl time.Duration) {
	c.post(level, text, ttl)
}

func (c *Center) post(level Level, text string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, Notification{
		Level:     level,
		Text:      text,
		ExpiresAt: c.now().Add(ttl),
	})
}

// Active returns the notifications that have not expired, oldest first, and
// drops the rest.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	live := c.items[:0]
	for _, n := range c.items {
		if n.ExpiresAt.After(now) {
			live = append(live, n)
		}
	}
	c.items = live
	out := make([]Notification, len(live))
	copy(out, live)
	return out
}

// Latest returns the most recent active notification, or false when none.
func (c *Center) Latest() (Notification, bool) {
	active := c.Active()
	if len(active) == 0 {
		return Notification{}, false
	}
	return active[len(active)-1], true
}

// Clear drops everything immediately.
func (c *Center) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

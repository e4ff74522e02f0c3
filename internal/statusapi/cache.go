package statusapi

import (
	"sync"
	"time"
)

// Status is the last state reported for a target.
type Status struct {
	Up        bool
	ChangedAt time.Time
}

// Cache remembers the last reported state of every target so it can be
// served on demand. It implements monitors.Listener and monitors.Forgetter.
type Cache struct {
	mu       sync.RWMutex
	statuses map[string]Status

	now func() time.Time
}

func NewCache() *Cache {
	return &Cache{
		statuses: make(map[string]Status),
		now:      time.Now,
	}
}

func (c *Cache) StateChanged(name string, up bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.statuses[name] = Status{Up: up, ChangedAt: c.now().UTC()}
}

func (c *Cache) Forget(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.statuses, name)
}

// Get returns the cached status. ok is false while nothing has been reported.
func (c *Cache) Get(name string) (Status, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.statuses[name]
	return s, ok
}

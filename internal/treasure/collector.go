package treasure

import (
	"context"
	"sync"
	"time"
)

// Collector gathers the distinct players reacting to a hunt prompt
type Collector struct {
	mu           sync.Mutex
	participants map[string]struct{}
	order        []string

	done     chan struct{}
	stopOnce sync.Once
}

func NewCollector() *Collector {
	return &Collector{participants: make(map[string]struct{}), done: make(chan struct{})}
}

// Add a reactor. Bots and players already in are ignored, as is
// anybody coming after the collection is over
func (c *Collector) Add(userID string, bot bool) bool {
	if bot || userID == "" {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.participants[userID]; ok {
		return false
	}
	c.participants[userID] = struct{}{}
	c.order = append(c.order, userID)
	return true
}

// Stop the collection before the window closes
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// Wait until the window closes, the collection is stopped or the context is done.
// Returns the participants in the order they joined
func (c *Collector) Wait(ctx context.Context, window time.Duration) []string {
	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-c.done:
	case <-ctx.Done():
	}
	c.Stop()
	return c.Participants()
}

func (c *Collector) Participants() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

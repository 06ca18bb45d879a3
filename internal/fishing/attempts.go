package fishing

import (
	"sync"
	"time"

	"reelbot/internal/common"
)

const DefaultRegenInterval = 15 * time.Minute

type attemptKey struct {
	guildID string
	userID  string
}

type attempts struct {
	remaining int
	last      time.Time // Anchor of the regeneration
}

// AttemptTracker counts the casts each player has left in each guild.
// Casts come back one per interval, up to what the rod allows
type AttemptTracker struct {
	clock    common.Clock
	interval time.Duration

	mu    sync.Mutex
	state map[attemptKey]*attempts
}

func NewAttemptTracker(clock common.Clock, interval time.Duration) *AttemptTracker {
	if interval <= 0 {
		interval = DefaultRegenInterval
	}
	return &AttemptTracker{clock: clock, interval: interval, state: make(map[attemptKey]*attempts)}
}

// Must be called with the lock held
func (t *AttemptTracker) get(guildID string, userID string, rod Rod) *attempts {
	k := attemptKey{guildID, userID}
	a, ok := t.state[k]
	if !ok {
		a = &attempts{remaining: rod.Casts, last: t.clock.Now()}
		t.state[k] = a
	}
	return a
}

func (t *AttemptTracker) Remaining(guildID string, userID string, rod Rod) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.get(guildID, userID, rod).remaining
}

// Regenerate and tell if at least one cast is left
func (t *AttemptTracker) HasRemaining(guildID string, userID string, rod Rod) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	a := t.get(guildID, userID, rod)
	t.regenerate(a, rod)
	return a.remaining > 0
}

// The anchor moves by the intervals consumed, so calling this often
// never hands out the same interval twice
func (t *AttemptTracker) regenerate(a *attempts, rod Rod) {
	now := t.clock.Now()
	intervals := int(now.Sub(a.last) / t.interval)
	if intervals > 0 {
		a.remaining += intervals
		a.last = a.last.Add(time.Duration(intervals) * t.interval)
	}
	if a.remaining >= rod.Casts {
		a.remaining = rod.Casts
		a.last = now
	}
}

// Use one cast. This restarts the regeneration clock.
// Returns the casts left
func (t *AttemptTracker) Use(guildID string, userID string, rod Rod) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	a := t.get(guildID, userID, rod)
	if a.remaining > 0 {
		a.remaining--
	}
	a.last = t.clock.Now()
	return a.remaining
}

// Time until the next cast comes back, zero if the player is full
func (t *AttemptTracker) NextIn(guildID string, userID string, rod Rod) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	a := t.get(guildID, userID, rod)
	t.regenerate(a, rod)
	if a.remaining >= rod.Casts {
		return 0
	}
	return a.last.Add(t.interval).Sub(t.clock.Now())
}

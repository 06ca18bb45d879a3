package bot

import (
	"sort"
	"sync"
	"time"

	"reelbot/internal/common"
)

// Presence remembers when each player last did something in each guild
type Presence struct {
	clock  common.Clock
	window time.Duration

	mu       sync.Mutex
	lastSeen map[string]map[string]time.Time
}

func NewPresence(clock common.Clock, window time.Duration) *Presence {
	return &Presence{clock: clock, window: window, lastSeen: make(map[string]map[string]time.Time)}
}

func (p *Presence) Seen(guildID string, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	users, ok := p.lastSeen[guildID]
	if !ok {
		users = make(map[string]time.Time)
		p.lastSeen[guildID] = users
	}
	users[userID] = p.clock.Now()
}

// Players seen within the window, sorted
func (p *Presence) ActiveUserIDs(guildID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.clock.Now()
	userIds := []string{}
	for userID, seen := range p.lastSeen[guildID] {
		if now.Sub(seen) <= p.window {
			userIds = append(userIds, userID)
		}
	}
	sort.Strings(userIds)
	return userIds
}

// Forget the players that left the window. Returns how many were forgotten
func (p *Presence) Prune() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.clock.Now()
	pruned := 0
	for guildID, users := range p.lastSeen {
		for userID, seen := range users {
			if now.Sub(seen) > p.window {
				delete(users, userID)
				pruned++
			}
		}
		if len(users) == 0 {
			delete(p.lastSeen, guildID)
		}
	}
	return pruned
}

func (p *Presence) Forget(guildID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.lastSeen, guildID)
}

// Announcement channel of every guild
type Channels struct {
	mu       sync.RWMutex
	channels map[string]string
}

func NewChannels(channels map[string]string) *Channels {
	c := &Channels{channels: make(map[string]string)}
	for guildID, channelID := range channels {
		c.channels[guildID] = channelID
	}
	return c
}

func (c *Channels) Get(guildID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	channelID, ok := c.channels[guildID]
	return channelID, ok
}

func (c *Channels) Set(guildID string, channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[guildID] = channelID
}

func (c *Channels) Remove(guildID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.channels, guildID)
}

// Package settingstest provides an in-memory settings.Source for tests.
package settingstest

import (
	"context"
	"sync"

	"reelbot/internal/settings"
)

var _ settings.Source = (*Memory)(nil)

// Memory is a Source kept in memory
type Memory struct {
	mu      sync.Mutex
	toggles map[string]bool
}

func NewMemory() *Memory {
	return &Memory{toggles: make(map[string]bool)}
}

func (m *Memory) Enabled(ctx context.Context, guildID string, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	enabled, ok := m.toggles[guildID+"/"+key]
	return !ok || enabled
}

func (m *Memory) Set(guildID string, key string, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toggles[guildID+"/"+key] = enabled
}

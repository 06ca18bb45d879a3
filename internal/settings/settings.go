// Package settings names the per guild toggles of the game.
package settings

import "context"

const (
	FishingAnnouncements = "fishing_announcements"
	TreasureHunts        = "treasure_hunts"
)

var Keys = []string{FishingAnnouncements, TreasureHunts}

func Valid(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Source reads toggles on demand. Toggles never set are enabled
type Source interface {
	Enabled(ctx context.Context, guildID string, key string) bool
}

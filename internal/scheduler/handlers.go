package scheduler

import "context"

// Handler starts an activity. It runs in its own goroutine and may block
type Handler interface {
	Start(ctx context.Context, activity Activity) error
}

// Ender is implemented by handlers that need to act when their activity ends
type Ender interface {
	End(ctx context.Context, activity Activity) error
}

// Requester is implemented by handlers that know how to queue their next activity
type Requester interface {
	Request(guildID string) bool
}

// One handler per kind of activity
type Handlers struct {
	FishSpawn          Handler
	HungerAnnouncement Handler
	TreasureHunt       Handler
}

func (h Handlers) For(kind Kind) Handler {
	switch kind {
	case KindFishSpawn:
		return h.FishSpawn
	case KindHungerAnnouncement:
		return h.HungerAnnouncement
	case KindTreasureHunt:
		return h.TreasureHunt
	default:
		return nil
	}
}

// Package hunger keeps the satiety of the guild mascot. It drops with time
// and goes up when players feed it fish.
package hunger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"reelbot/internal/common"
	"reelbot/internal/fishing"
	"reelbot/internal/journal"
	"reelbot/internal/notify"
	"reelbot/internal/scheduler"
)

const (
	Full   = 100.0
	Mascot = "Pebble"
)

var (
	ErrTooFull         = errors.New("the mascot is too full")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

type Tier int

const (
	Satisfied Tier = iota
	Mild
	Very
	Starving
)

func (t Tier) String() string {
	switch t {
	case Mild:
		return "mild"
	case Very:
		return "very"
	case Starving:
		return "starving"
	default:
		return "satisfied"
	}
}

// TierOf tells how hungry the mascot is at that level
func TierOf(level float64) Tier {
	switch {
	case level < 10:
		return Starving
	case level < 25:
		return Very
	case level < 50:
		return Mild
	default:
		return Satisfied
	}
}

type Config struct {
	DecayPerMinute       float64
	AnnouncementChance   float64       // Chance for a player action to trigger an announcement
	AnnouncementInterval time.Duration // Minimum time between two announcements
	RequestDelay         time.Duration // From the request to the scheduled announcement
	Window               time.Duration
}

func DefaultConfig() Config {
	return Config{
		DecayPerMinute:       0.05,
		AnnouncementChance:   0.05,
		AnnouncementInterval: time.Hour,
		RequestDelay:         2 * time.Hour,
		Window:               10 * time.Minute,
	}
}

type Scheduling interface {
	AddActivity(activity scheduler.Activity) bool
	AttachNotification(guildID string, id uuid.UUID, handle notify.Handle) bool
}

type state struct {
	level            float64
	lastUpdate       time.Time
	lastAnnouncement time.Time
}

// Tracker owns the hunger of every guild
type Tracker struct {
	notifier   notify.Notifier
	scheduling Scheduling
	journal    journal.Recorder
	clock      common.Clock
	rnd        common.Random
	config     Config

	mu     sync.Mutex
	guilds map[string]*state
}

func NewTracker(notifier notify.Notifier, scheduling Scheduling, recorder journal.Recorder, clock common.Clock, rnd common.Random, config Config) *Tracker {
	if recorder == nil {
		recorder = journal.Discard
	}
	return &Tracker{
		notifier:   notifier,
		scheduling: scheduling,
		journal:    recorder,
		clock:      clock,
		rnd:        rnd,
		config:     config,
		guilds:     make(map[string]*state),
	}
}

// Must be called with the lock held. Applies the decay since the last update
func (t *Tracker) update(guildID string) *state {
	now := t.clock.Now()
	s, ok := t.guilds[guildID]
	if !ok {
		s = &state{level: Full, lastUpdate: now}
		t.guilds[guildID] = s
		return s
	}
	elapsed := now.Sub(s.lastUpdate)
	if elapsed <= 0 {
		return s
	}
	s.level -= elapsed.Minutes() * t.config.DecayPerMinute
	if s.level < 0 {
		s.level = 0
	}
	s.lastUpdate = now
	return s
}

// Update the hunger of the guild and return the level
func (t *Tracker) Update(guildID string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.update(guildID).level
}

func (t *Tracker) Level(guildID string) float64 {
	return t.Update(guildID)
}

// Feed the mascot. Fails without changing anything when it would go over full.
// Returns the new level
func (t *Tracker) Feed(guildID string, fish fishing.Fish, quantity int) (float64, error) {
	if quantity <= 0 {
		return 0, ErrInvalidQuantity
	}
	t.mu.Lock()
	s := t.update(guildID)
	level := s.level + fish.HPWorth*float64(quantity)
	if level > Full {
		current := s.level
		t.mu.Unlock()
		return current, ErrTooFull
	}
	s.level = level
	t.mu.Unlock()

	log.Debug().Msg(fmt.Sprintf("Guild %s fed %d %s, hunger at %.1f", guildID, quantity, fish.Name, level))
	t.journal.Record(journal.Entry{Event: journal.EventFeed, GuildID: guildID, Item: fish.Name, Quantity: quantity})
	return level, nil
}

// Reserve the right to announce. Must be called with the lock held.
// Returns the previous announcement time so a failed send can give it back
func (t *Tracker) claimAnnouncement(s *state) (time.Time, bool) {
	now := t.clock.Now()
	previous := s.lastAnnouncement
	if !previous.IsZero() && now.Sub(previous) < t.config.AnnouncementInterval {
		return previous, false
	}
	if TierOf(s.level) == Satisfied {
		return previous, false
	}
	s.lastAnnouncement = now
	return previous, true
}

// Called on player actions. Announces the hunger once in a while if the mascot is hungry
func (t *Tracker) MaybeAnnounce(ctx context.Context, guildID string) bool {
	if t.rnd.Float64() >= t.config.AnnouncementChance {
		return false
	}
	_, ok := t.Announce(ctx, guildID)
	return ok
}

// Post a hunger announcement if the mascot is hungry and the last one is old enough
func (t *Tracker) Announce(ctx context.Context, guildID string) (notify.Handle, bool) {
	t.mu.Lock()
	s := t.update(guildID)
	previous, ok := t.claimAnnouncement(s)
	if !ok {
		t.mu.Unlock()
		return notify.Handle{}, false
	}
	level, claimed := s.level, s.lastAnnouncement
	t.mu.Unlock()

	handle, err := t.notifier.Send(guildID, Message(level))
	if err != nil {
		// Nothing was posted, the interval starts over from the last real announcement
		t.mu.Lock()
		if s.lastAnnouncement.Equal(claimed) {
			s.lastAnnouncement = previous
		}
		t.mu.Unlock()
		log.Warn().Err(err).Msg(fmt.Sprintf("Could not announce hunger in guild %s", guildID))
		return notify.Handle{}, false
	}
	log.Info().Msg(fmt.Sprintf("Announced %s hunger in guild %s", TierOf(level), guildID))
	return handle, true
}

func Message(level float64) string {
	switch TierOf(level) {
	case Starving:
		return fmt.Sprintf("😿 %s is STARVING (%.0f/100)! Somebody feed it a fish, quick!", Mascot, level)
	case Very:
		return fmt.Sprintf("🙀 %s is very hungry (%.0f/100) and keeps staring at your bucket.", Mascot, level)
	case Mild:
		return fmt.Sprintf("🐱 %s is getting peckish (%.0f/100). A fish or two would be nice.", Mascot, level)
	default:
		return fmt.Sprintf("😺 %s is happily full (%.0f/100).", Mascot, level)
	}
}

func (t *Tracker) Start(ctx context.Context, activity scheduler.Activity) error {
	handle, ok := t.Announce(ctx, activity.GuildID)
	if ok {
		t.scheduling.AttachNotification(activity.GuildID, activity.ID, handle)
	}
	return nil
}

func (t *Tracker) End(ctx context.Context, activity scheduler.Activity) error {
	if !t.Request(activity.GuildID) {
		log.Info().Msg(fmt.Sprintf("Next hunger announcement not scheduled for guild %s", activity.GuildID))
	}
	return nil
}

func (t *Tracker) Request(guildID string) bool {
	start := t.clock.Now().Add(t.config.RequestDelay)
	return t.scheduling.AddActivity(scheduler.NewActivity(guildID, scheduler.KindHungerAnnouncement, start, t.config.Window))
}

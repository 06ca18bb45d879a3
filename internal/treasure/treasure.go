// Package treasure runs the timed treasure hunts: a prompt is posted, players
// react to it while the hunt lasts, and everybody who joined gets coins.
package treasure

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"reelbot/internal/common"
	"reelbot/internal/journal"
	"reelbot/internal/notify"
	"reelbot/internal/scheduler"
	"reelbot/internal/settings"
)

const (
	Emoji      = "💰"
	BaseReward = 50
	PerPlayer  = 10
	MaxReward  = 100
)

// Coins for each participant of a hunt with that many participants
func Reward(participants int) int {
	if participants <= 0 {
		return 0
	}
	return min(MaxReward, BaseReward+PerPlayer*participants)
}

type Economy interface {
	AddToBalance(ctx context.Context, guildID string, userID string, amount int) error
}

type Scheduling interface {
	AddActivity(activity scheduler.Activity) bool
	AttachNotification(guildID string, id uuid.UUID, handle notify.Handle) bool
}

type Config struct {
	Delay  time.Duration // From the request to the hunt
	Window time.Duration // How long players have to join
}

func DefaultConfig() Config {
	return Config{Delay: 3 * time.Hour, Window: 15 * time.Minute}
}

type Outcome struct {
	Participants []string
	Reward       int
}

type hunt struct {
	activityID uuid.UUID
	prompt     notify.Handle
	collector  *Collector
}

// Orchestrator runs at most one hunt per guild
type Orchestrator struct {
	economy    Economy
	notifier   notify.Notifier
	settings   settings.Source
	scheduling Scheduling
	journal    journal.Recorder
	clock      common.Clock
	config     Config

	mu    sync.Mutex
	hunts map[string]*hunt
}

func NewOrchestrator(economy Economy, notifier notify.Notifier, settingsSource settings.Source, scheduling Scheduling, recorder journal.Recorder, clock common.Clock, config Config) *Orchestrator {
	if recorder == nil {
		recorder = journal.Discard
	}
	return &Orchestrator{
		economy:    economy,
		notifier:   notifier,
		settings:   settingsSource,
		scheduling: scheduling,
		journal:    recorder,
		clock:      clock,
		config:     config,
		hunts:      make(map[string]*hunt),
	}
}

// Start runs the whole hunt of the activity and returns once it is resolved
func (o *Orchestrator) Start(ctx context.Context, activity scheduler.Activity) error {
	if !o.settings.Enabled(ctx, activity.GuildID, settings.TreasureHunts) {
		log.Info().Msg(fmt.Sprintf("Treasure hunts are disabled in guild %s", activity.GuildID))
		return nil
	}
	_, err := o.Run(ctx, activity.GuildID, activity.ID, activity.Duration())
	return err
}

// Run a hunt in the guild for the given window
func (o *Orchestrator) Run(ctx context.Context, guildID string, activityID uuid.UUID, window time.Duration) (Outcome, error) {
	prompt, err := o.notifier.Send(guildID, promptMessage(window))
	if err != nil {
		return Outcome{}, fmt.Errorf("post treasure prompt: %w", err)
	}
	h := &hunt{activityID: activityID, prompt: prompt, collector: NewCollector()}
	o.mu.Lock()
	if previous, ok := o.hunts[guildID]; ok {
		previous.collector.Stop()
	}
	o.hunts[guildID] = h
	o.mu.Unlock()

	if err := o.notifier.React(prompt, Emoji); err != nil {
		log.Warn().Err(err).Msg("Could not add the treasure reaction")
	}
	o.scheduling.AttachNotification(guildID, activityID, prompt)
	log.Info().Msg(fmt.Sprintf("Treasure hunt started in guild %s for %v", guildID, window))

	participants := h.collector.Wait(ctx, window)

	o.mu.Lock()
	if o.hunts[guildID] == h {
		delete(o.hunts, guildID)
	}
	o.mu.Unlock()

	return o.resolve(ctx, guildID, participants), nil
}

func (o *Orchestrator) resolve(ctx context.Context, guildID string, participants []string) Outcome {
	if len(participants) == 0 {
		log.Info().Msg(fmt.Sprintf("Treasure hunt expired in guild %s", guildID))
		o.journal.Record(journal.Entry{Event: journal.EventExpired, GuildID: guildID})
		o.announce(guildID, "🪦 Nobody showed up, the treasure sank back to the bottom of the sea.")
		return Outcome{}
	}

	reward := Reward(len(participants))
	for _, userID := range participants {
		if err := o.economy.AddToBalance(ctx, guildID, userID, reward); err != nil {
			log.Error().Err(err).Msg(fmt.Sprintf("Could not reward user %s in guild %s", userID, guildID))
			continue
		}
		o.journal.Record(journal.Entry{Event: journal.EventReward, GuildID: guildID, UserID: userID, Amount: reward})
	}
	log.Info().Msg(fmt.Sprintf("Treasure hunt in guild %s resolved: %d participants got %d coins", guildID, len(participants), reward))

	mentions := make([]string, 0, len(participants))
	for _, userID := range participants {
		mentions = append(mentions, fmt.Sprintf("<@%s>", userID))
	}
	o.announce(guildID, fmt.Sprintf("🏴‍☠️ The chest is open! %s each get **%d** coins.", strings.Join(mentions, ", "), reward))
	return Outcome{Participants: participants, Reward: reward}
}

func (o *Orchestrator) announce(guildID string, content string) {
	if _, err := o.notifier.Send(guildID, content); err != nil {
		log.Warn().Err(err).Msg(fmt.Sprintf("Could not announce the treasure result in guild %s", guildID))
	}
}

// React registers a reaction to a message. Returns true if it joined the running hunt
func (o *Orchestrator) React(guildID string, messageID string, userID string, bot bool, emoji string) bool {
	if emoji != Emoji {
		return false
	}
	o.mu.Lock()
	h, ok := o.hunts[guildID]
	o.mu.Unlock()
	if !ok || h.prompt.MessageID != messageID {
		return false
	}
	joined := h.collector.Add(userID, bot)
	if joined {
		log.Debug().Msg(fmt.Sprintf("User %s joined the treasure hunt in guild %s", userID, guildID))
	}
	return joined
}

// Close the running hunt of the guild early
func (o *Orchestrator) StopHunt(guildID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	h, ok := o.hunts[guildID]
	if ok {
		h.collector.Stop()
	}
	return ok
}

func (o *Orchestrator) Running(guildID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.hunts[guildID]
	return ok
}

// The next hunt is queued once the activity is out of the queue
func (o *Orchestrator) End(ctx context.Context, activity scheduler.Activity) error {
	o.StopHunt(activity.GuildID)
	if !o.Request(activity.GuildID) {
		log.Info().Msg(fmt.Sprintf("Next treasure hunt not scheduled for guild %s", activity.GuildID))
	}
	return nil
}

// Queue the next hunt, unless hunts are disabled in the guild
func (o *Orchestrator) Request(guildID string) bool {
	if !o.settings.Enabled(context.Background(), guildID, settings.TreasureHunts) {
		return false
	}
	start := o.clock.Now().Add(o.config.Delay)
	return o.scheduling.AddActivity(scheduler.NewActivity(guildID, scheduler.KindTreasureHunt, start, o.config.Window))
}

func promptMessage(window time.Duration) string {
	return fmt.Sprintf("🗝️ A treasure chest washed ashore! React with %s in the next %d minutes to help open it.", Emoji, int(window.Round(time.Minute).Minutes()))
}

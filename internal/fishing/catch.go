package fishing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"reelbot/internal/common"
	"reelbot/internal/journal"
	"reelbot/internal/notify"
)

var (
	ErrNoFish         = errors.New("no fish in the guild")
	ErrNoAttemptsLeft = errors.New("no attempts left")
	ErrAlreadyFishing = errors.New("already fishing")
)

// Everything the catch pipeline reads and writes outside of memory
type Inventory interface {
	Equipment
	ConsumeBait(ctx context.Context, guildID string, userID string, bait string) error
	AddToInventory(ctx context.Context, guildID string, userID string, item string, quantity int) error
	// Records the catch and its experience. Returns the new level when the
	// experience made the player level up, zero otherwise
	LogCatch(ctx context.Context, guildID string, userID string, fish string, rarity string, xp int, at time.Time) (int, error)
	// Achievements unlocked by the latest catch
	CheckAchievements(ctx context.Context, guildID string, userID string) ([]string, error)
}

type Outcome int

const (
	OutcomeAlreadyFishing Outcome = iota
	OutcomeNoFish
	OutcomeNoAttempts
	OutcomeCaught
	OutcomeMissed
)

type Result struct {
	Outcome      Outcome
	Fish         Fish
	Rod          Rod
	Bait         string
	AttemptsLeft int
	NextAttempt  time.Duration
	XP           int
	LevelUp      int // New level reached with this catch, if any
	Achievements []string
	Message      notify.Handle // The message showing the result
}

// Orchestrator runs the "cast a line" pipeline
type Orchestrator struct {
	catalog   *Catalog
	spawner   *Spawner
	attempts  *AttemptTracker
	inventory Inventory
	notifier  notify.Notifier
	journal   journal.Recorder
	clock     common.Clock
	rnd       common.Random
	// Pacing between the cast and the result, replaced in tests
	Sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	fishers map[string]struct{} // guild:user keys with a cast in progress
}

func NewOrchestrator(catalog *Catalog, spawner *Spawner, attempts *AttemptTracker, inventory Inventory, notifier notify.Notifier, recorder journal.Recorder, clock common.Clock, rnd common.Random) *Orchestrator {
	if recorder == nil {
		recorder = journal.Discard
	}
	return &Orchestrator{
		catalog:   catalog,
		spawner:   spawner,
		attempts:  attempts,
		inventory: inventory,
		notifier:  notifier,
		journal:   recorder,
		clock:     clock,
		rnd:       rnd,
		Sleep:     sleep,
		fishers:   make(map[string]struct{}),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func fisherKey(guildID string, userID string) string {
	return guildID + ":" + userID
}

// Mark the player as fishing, false if they already are
func (o *Orchestrator) acquire(k string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.fishers[k]; ok {
		return false
	}
	o.fishers[k] = struct{}{}
	return true
}

func (o *Orchestrator) release(k string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.fishers, k)
}

func (o *Orchestrator) IsFishing(guildID string, userID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.fishers[fisherKey(guildID, userID)]
	return ok
}

// Cast a line for the player. Messages go to the channel the command came from.
// Only unexpected failures are returned as errors, the caller has to tell the player
func (o *Orchestrator) Cast(ctx context.Context, guildID string, channelID string, userID string) (Result, error) {
	k := fisherKey(guildID, userID)
	if !o.acquire(k) {
		log.Debug().Msg(fmt.Sprintf("User %s is already fishing in guild %s", userID, guildID))
		handle, _ := o.reply(channelID, alreadyFishingMessage(userID))
		return Result{Outcome: OutcomeAlreadyFishing, Message: handle}, nil
	}
	defer o.release(k)

	handle, _ := o.reply(channelID, fmt.Sprintf("🎣 <@%s> casts a line...", userID))

	result, err := o.cast(ctx, guildID, userID)
	result.Message = handle
	switch {
	case errors.Is(err, ErrNoFish):
		result.Outcome = OutcomeNoFish
	case errors.Is(err, ErrNoAttemptsLeft):
		result.Outcome = OutcomeNoAttempts
	case err != nil:
		log.Error().Err(err).Msg(fmt.Sprintf("Cast of user %s in guild %s failed", userID, guildID))
		return result, err
	}

	content := ResultMessage(userID, result)
	if handle.IsZero() {
		result.Message, _ = o.reply(channelID, content)
	} else if err := o.notifier.Edit(handle, content); err != nil {
		log.Warn().Err(err).Msg("Could not edit the cast message")
	}
	return result, nil
}

func (o *Orchestrator) reply(channelID string, content string) (notify.Handle, error) {
	handle, err := o.notifier.Reply(channelID, content)
	if err != nil {
		log.Warn().Err(err).Msg(fmt.Sprintf("Could not reply in channel %s", channelID))
	}
	return handle, err
}

func (o *Orchestrator) cast(ctx context.Context, guildID string, userID string) (Result, error) {
	var result Result

	// Validate
	if !o.spawner.HasFish(guildID) {
		return result, ErrNoFish
	}
	rodName, err := o.inventory.EquippedRod(ctx, guildID, userID)
	if err != nil {
		return result, fmt.Errorf("equipped rod: %w", err)
	}
	rod := o.catalog.RodOrDefault(rodName)
	result.Rod = rod
	if !o.attempts.HasRemaining(guildID, userID, rod) {
		result.NextAttempt = o.attempts.NextIn(guildID, userID, rod)
		return result, ErrNoAttemptsLeft
	}

	// Equipment
	baitName, err := o.inventory.EquippedBait(ctx, guildID, userID)
	if err != nil {
		return result, fmt.Errorf("equipped bait: %w", err)
	}
	var bait *Bait
	if b, ok := o.catalog.Bait(baitName); ok {
		bait = &b
		result.Bait = b.Name
	}

	// Attempt
	fish, ok := o.spawner.Draw(guildID)
	if !ok {
		return result, ErrNoFish
	}
	probability := o.catalog.CatchProbability(fish, rod, bait)
	if bait != nil {
		if err := o.inventory.ConsumeBait(ctx, guildID, userID, bait.Name); err != nil {
			return result, fmt.Errorf("consume bait: %w", err)
		}
	}
	if err := o.Sleep(ctx, rod.CastDelay); err != nil {
		return result, err
	}
	caught := o.rnd.Float64() < probability

	if !caught {
		result.Outcome = OutcomeMissed
		result.AttemptsLeft = o.attempts.Use(guildID, userID, rod)
		o.journal.Record(journal.Entry{Event: journal.EventMiss, GuildID: guildID, UserID: userID, Item: fish.Name})
		return result, nil
	}

	// Somebody else may have landed the last one of these meanwhile
	left, ok := o.spawner.Take(guildID, fish.Name)
	if !ok {
		result.Outcome = OutcomeMissed
		result.AttemptsLeft = o.attempts.Use(guildID, userID, rod)
		return result, nil
	}
	result.Outcome = OutcomeCaught
	result.Fish = fish
	if err := o.inventory.AddToInventory(ctx, guildID, userID, fish.Name, 1); err != nil {
		return result, fmt.Errorf("add %s to inventory: %w", fish.Name, err)
	}
	result.XP = o.catalog.XP(fish)
	levelUp, err := o.inventory.LogCatch(ctx, guildID, userID, fish.Name, fish.Rarity.String(), result.XP, o.clock.Now())
	if err != nil {
		return result, fmt.Errorf("log catch: %w", err)
	}
	result.LevelUp = levelUp
	o.journal.Record(journal.Entry{Event: journal.EventCatch, GuildID: guildID, UserID: userID, Item: fish.Name, Quantity: 1})
	result.AttemptsLeft = o.attempts.Use(guildID, userID, rod)

	achievements, err := o.inventory.CheckAchievements(ctx, guildID, userID)
	if err != nil {
		log.Warn().Err(err).Msg(fmt.Sprintf("Could not check achievements of user %s", userID))
	}
	result.Achievements = achievements

	if left == 0 {
		o.spawner.Despawn(ctx, guildID, DespawnCaught)
	}
	return result, nil
}

func alreadyFishingMessage(userID string) string {
	return fmt.Sprintf("<@%s>, you are already fishing! Wait for your line to come back.", userID)
}

// The text shown to the player once the cast is over
func ResultMessage(userID string, result Result) string {
	switch result.Outcome {
	case OutcomeAlreadyFishing:
		return alreadyFishingMessage(userID)
	case OutcomeNoFish:
		return "🌊 There are no fish around right now. Wait for the next spawn!"
	case OutcomeNoAttempts:
		return fmt.Sprintf("😴 <@%s>, you are out of casts. Next one in %s.", userID, formatWait(result.NextAttempt))
	case OutcomeMissed:
		return fmt.Sprintf("💨 Tough luck <@%s>, nothing bit. %d casts left.", userID, result.AttemptsLeft)
	case OutcomeCaught:
		var b strings.Builder
		fmt.Fprintf(&b, "🐟 <@%s> caught a **%s** (%s)! +%d XP, %d casts left.", userID, result.Fish.Name, result.Fish.Rarity, result.XP, result.AttemptsLeft)
		if result.LevelUp > 0 {
			fmt.Fprintf(&b, "\n⭐ Level up! You are now level **%d**.", result.LevelUp)
		}
		for _, achievement := range result.Achievements {
			fmt.Fprintf(&b, "\n🏆 Achievement unlocked: **%s**", achievement)
		}
		return b.String()
	default:
		return ""
	}
}

func formatWait(d time.Duration) string {
	if d <= time.Minute {
		return "less than a minute"
	}
	return fmt.Sprintf("%d minutes", int(d.Round(time.Minute).Minutes()))
}

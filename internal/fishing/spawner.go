package fishing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"reelbot/internal/common"
	"reelbot/internal/journal"
	"reelbot/internal/notify"
	"reelbot/internal/scheduler"
	"reelbot/internal/settings"
)

// Users that sent a message or an interaction recently
type ActiveUsers interface {
	ActiveUserIDs(guildID string) []string
}

// Names of the items a player has equipped, empty when nothing is
type Equipment interface {
	EquippedRod(ctx context.Context, guildID string, userID string) (string, error)
	EquippedBait(ctx context.Context, guildID string, userID string) (string, error)
}

type Scheduling interface {
	AddActivity(activity scheduler.Activity) bool
}

type DespawnReason int

const (
	DespawnExpired DespawnReason = iota
	DespawnCaught
)

type SpawnerConfig struct {
	Delay         time.Duration // From the request to the spawn
	Window        time.Duration // How long the fish stay
	FishPerPlayer int
}

func DefaultSpawnerConfig() SpawnerConfig {
	return SpawnerConfig{Delay: 3 * time.Hour, Window: 30 * time.Minute, FishPerPlayer: 5}
}

type population struct {
	stock        map[string]Stock
	lastSpawn    time.Time
	expiresAt    time.Time // Zero when the population never expires on its own
	announcement notify.Handle
}

// Spawner owns the fish population of every guild
type Spawner struct {
	catalog    *Catalog
	active     ActiveUsers
	equipment  Equipment
	notifier   notify.Notifier
	settings   settings.Source
	scheduling Scheduling
	journal    journal.Recorder
	clock      common.Clock
	rnd        common.Random
	config     SpawnerConfig

	mu          sync.Mutex
	populations map[string]*population
}

func NewSpawner(catalog *Catalog, active ActiveUsers, equipment Equipment, notifier notify.Notifier, settingsSource settings.Source, scheduling Scheduling, recorder journal.Recorder, clock common.Clock, rnd common.Random, config SpawnerConfig) *Spawner {
	if recorder == nil {
		recorder = journal.Discard
	}
	return &Spawner{
		catalog:     catalog,
		active:      active,
		equipment:   equipment,
		notifier:    notifier,
		settings:    settingsSource,
		scheduling:  scheduling,
		journal:     recorder,
		clock:       clock,
		rnd:         rnd,
		config:      config,
		populations: make(map[string]*population),
	}
}

// Spawn a new population in the guild, sized after the number of active players.
// Returns the number of fish spawned
func (s *Spawner) Spawn(ctx context.Context, guildID string) (int, error) {
	active := s.active.ActiveUserIDs(guildID)
	rod := s.bestRod(ctx, guildID, active)
	stock := s.catalog.Generate(len(active)*s.config.FishPerPlayer, rod, s.rnd)
	total := count(stock)
	if total == 0 {
		log.Info().Msg(fmt.Sprintf("Nobody is around in guild %s, no fish spawned", guildID))
		return 0, nil
	}

	pop := &population{stock: stock, lastSpawn: s.clock.Now()}
	if s.config.Window > 0 {
		pop.expiresAt = pop.lastSpawn.Add(s.config.Window)
	}
	s.mu.Lock()
	previous := s.populations[guildID]
	s.populations[guildID] = pop
	s.mu.Unlock()

	if previous != nil {
		s.retire(previous)
	}
	log.Info().Msg(fmt.Sprintf("Spawned %d fish in guild %s for %d active players (best rod %s)", total, guildID, len(active), rod.Name))
	s.journal.Record(journal.Entry{Event: journal.EventSpawn, GuildID: guildID, Quantity: total})

	if !s.settings.Enabled(ctx, guildID, settings.FishingAnnouncements) {
		return total, nil
	}
	handle, err := s.notifier.Send(guildID, spawnAnnouncement(stock))
	if err != nil {
		log.Warn().Err(err).Msg(fmt.Sprintf("Could not announce the spawn in guild %s", guildID))
		return total, nil
	}
	s.mu.Lock()
	if s.populations[guildID] == pop {
		pop.announcement = handle
		handle = notify.Handle{}
	}
	s.mu.Unlock()
	// The population went away while announcing
	if !handle.IsZero() {
		s.deleteMessage(handle)
	}
	return total, nil
}

// The best rod equipped among the active players, the default one if nobody has one
func (s *Spawner) bestRod(ctx context.Context, guildID string, userIds []string) Rod {
	best := s.catalog.DefaultRod()
	for _, userID := range userIds {
		name, err := s.equipment.EquippedRod(ctx, guildID, userID)
		if err != nil {
			log.Warn().Err(err).Msg(fmt.Sprintf("Could not get the rod of user %s", userID))
			continue
		}
		if rod, ok := s.catalog.Rod(name); ok && rod.Tier > best.Tier {
			best = rod
		}
	}
	return best
}

func (s *Spawner) Despawn(ctx context.Context, guildID string, reason DespawnReason) {
	s.mu.Lock()
	pop := s.populations[guildID]
	s.mu.Unlock()
	if pop == nil {
		return
	}
	s.despawnPopulation(ctx, guildID, pop, reason)
}

// Despawn only if the population is still the current one, so
// that a late sweep does not wipe a newer spawn
func (s *Spawner) despawnPopulation(ctx context.Context, guildID string, pop *population, reason DespawnReason) {
	s.mu.Lock()
	if s.populations[guildID] != pop {
		s.mu.Unlock()
		return
	}
	delete(s.populations, guildID)
	left := count(pop.stock)
	s.mu.Unlock()

	s.retire(pop)
	log.Info().Msg(fmt.Sprintf("Despawned fish in guild %s, %d left uncaught", guildID, left))
	s.journal.Record(journal.Entry{Event: journal.EventDespawn, GuildID: guildID, Quantity: left})

	if !s.settings.Enabled(ctx, guildID, settings.FishingAnnouncements) {
		return
	}
	content := "🎉 Every last fish has been caught! The waters are quiet again."
	if reason == DespawnExpired && left > 0 {
		content = fmt.Sprintf("🌊 The fish swam away, %d of them were never caught.", left)
	}
	if _, err := s.notifier.Send(guildID, content); err != nil {
		log.Warn().Err(err).Msg(fmt.Sprintf("Could not announce the despawn in guild %s", guildID))
	}
}

// Remove the announcement of a population that is gone
func (s *Spawner) retire(pop *population) {
	s.mu.Lock()
	handle := pop.announcement
	pop.announcement = notify.Handle{}
	s.mu.Unlock()
	if !handle.IsZero() {
		s.deleteMessage(handle)
	}
}

// Despawn every population whose window is over. The scheduler normally
// does it when the spawn activity ends, this catches the ones it missed.
// Returns how many were despawned
func (s *Spawner) Sweep(ctx context.Context) int {
	now := s.clock.Now()
	expired := make(map[string]*population)
	s.mu.Lock()
	for guildID, pop := range s.populations {
		if !pop.live(now) {
			expired[guildID] = pop
		}
	}
	s.mu.Unlock()
	for guildID, pop := range expired {
		s.despawnPopulation(ctx, guildID, pop, DespawnExpired)
	}
	return len(expired)
}

// Must be called with the lock held. Expired populations count as gone
func (s *Spawner) current(guildID string) *population {
	pop := s.populations[guildID]
	if pop == nil || !pop.live(s.clock.Now()) {
		return nil
	}
	return pop
}

func (s *Spawner) deleteMessage(handle notify.Handle) {
	if err := s.notifier.Delete(handle); err != nil {
		log.Warn().Err(err).Msg("Could not delete the spawn announcement")
	}
}

func (s *Spawner) HasFish(guildID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pop := s.current(guildID)
	return pop != nil && count(pop.stock) > 0
}

// A copy of the population of the guild
func (s *Spawner) Fish(guildID string) map[string]Stock {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make(map[string]Stock)
	if pop := s.current(guildID); pop != nil {
		for name, stock := range pop.stock {
			result[name] = stock
		}
	}
	return result
}

func (s *Spawner) LastSpawn(guildID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pop := s.populations[guildID]; pop != nil {
		return pop.lastSpawn, true
	}
	return time.Time{}, false
}

// Pick a fish from the guild without removing it
func (s *Spawner) Draw(guildID string) (Fish, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pop := s.current(guildID)
	if pop == nil {
		return Fish{}, false
	}
	return draw(pop.stock, s.rnd)
}

// Remove one fish from the guild. Returns how many fish are left in
// total, and false if that fish was not there anymore
func (s *Spawner) Take(guildID string, name string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pop := s.current(guildID)
	if pop == nil {
		return 0, false
	}
	stock, ok := pop.stock[name]
	if !ok || stock.Quantity <= 0 {
		return count(pop.stock), false
	}
	stock.Quantity--
	if stock.Quantity == 0 {
		delete(pop.stock, name)
	} else {
		pop.stock[name] = stock
	}
	return count(pop.stock), true
}

// Queue the next spawn of the guild
func (s *Spawner) RequestSpawn(guildID string) bool {
	start := s.clock.Now().Add(s.config.Delay)
	return s.scheduling.AddActivity(scheduler.NewActivity(guildID, scheduler.KindFishSpawn, start, s.config.Window))
}

func (s *Spawner) Start(ctx context.Context, activity scheduler.Activity) error {
	_, err := s.Spawn(ctx, activity.GuildID)
	return err
}

func (s *Spawner) End(ctx context.Context, activity scheduler.Activity) error {
	s.Despawn(ctx, activity.GuildID, DespawnExpired)
	if !s.RequestSpawn(activity.GuildID) {
		log.Info().Msg(fmt.Sprintf("Next fish spawn not scheduled for guild %s", activity.GuildID))
	}
	return nil
}

func (s *Spawner) Request(guildID string) bool {
	return s.RequestSpawn(guildID)
}

func spawnAnnouncement(stock map[string]Stock) string {
	byRarity := make(map[Rarity]int)
	for _, st := range stock {
		byRarity[st.Fish.Rarity] += st.Quantity
	}
	rarities := make([]Rarity, 0, len(byRarity))
	for rarity := range byRarity {
		rarities = append(rarities, rarity)
	}
	sort.Slice(rarities, func(i, j int) bool { return rarities[i] < rarities[j] })
	parts := make([]string, 0, len(rarities))
	for _, rarity := range rarities {
		parts = append(parts, fmt.Sprintf("%d %s", byRarity[rarity], rarity))
	}
	return fmt.Sprintf("🐟 %d fish are biting (%s)! Cast a line before they swim away.", count(stock), strings.Join(parts, ", "))
}

package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"reelbot/internal/common"
	"reelbot/internal/notify"
)

// Manager owns one scheduler per guild
type Manager struct {
	notifier notify.Notifier
	clock    common.Clock
	tick     time.Duration

	mu         sync.Mutex
	handlers   Handlers
	schedulers map[string]*Scheduler
}

func NewManager(notifier notify.Notifier, clock common.Clock, tick time.Duration) *Manager {
	return &Manager{
		notifier:   notifier,
		clock:      clock,
		tick:       tick,
		schedulers: make(map[string]*Scheduler),
	}
}

// Handlers need the manager to queue their own activities, so they
// are registered after construction and before the first Start
func (m *Manager) SetHandlers(handlers Handlers) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = handlers
}

// Start the scheduler of a guild and queue one activity of each kind.
// Starting a guild twice returns the running scheduler
func (m *Manager) Start(ctx context.Context, guildID string) *Scheduler {
	m.mu.Lock()
	if s, ok := m.schedulers[guildID]; ok {
		m.mu.Unlock()
		return s
	}
	s := New(guildID, m.handlers, m.notifier, m.clock, m.tick)
	m.schedulers[guildID] = s
	handlers := m.handlers
	m.mu.Unlock()

	for range cycle {
		kind := s.DecideNextActivity()
		if requester, ok := handlers.For(kind).(Requester); ok {
			if !requester.Request(guildID) {
				log.Info().Msg(fmt.Sprintf("Initial %s not scheduled for guild %s", kind, guildID))
			}
		}
	}
	s.Start(ctx)
	return s
}

func (m *Manager) Stop(guildID string) {
	m.mu.Lock()
	s, ok := m.schedulers[guildID]
	delete(m.schedulers, guildID)
	m.mu.Unlock()
	if ok {
		s.Stop()
	}
}

func (m *Manager) StopAll() {
	m.mu.Lock()
	schedulers := m.schedulers
	m.schedulers = make(map[string]*Scheduler)
	m.mu.Unlock()
	for _, s := range schedulers {
		s.Stop()
	}
}

func (m *Manager) Get(guildID string) (*Scheduler, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedulers[guildID]
	return s, ok
}

func (m *Manager) Guilds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	guildIds := make([]string, 0, len(m.schedulers))
	for guildID := range m.schedulers {
		guildIds = append(guildIds, guildID)
	}
	sort.Strings(guildIds)
	return guildIds
}

// Route an activity to the scheduler of its guild
func (m *Manager) AddActivity(activity Activity) bool {
	s, ok := m.Get(activity.GuildID)
	if !ok {
		log.Warn().Msg(fmt.Sprintf("No scheduler running for guild %s, dropping %s", activity.GuildID, activity.Kind))
		return false
	}
	return s.AddActivity(activity)
}

func (m *Manager) AttachNotification(guildID string, id uuid.UUID, handle notify.Handle) bool {
	s, ok := m.Get(guildID)
	if !ok {
		return false
	}
	return s.AttachNotification(id, handle)
}

func (m *Manager) Now() time.Time {
	return m.clock.Now()
}

package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"reelbot/internal/common"
	"reelbot/internal/notify"
)

const (
	// Minimum gap between two activities of the same guild
	Buffer = time.Hour
	// Number of times a conflicting activity is moved before giving up
	MaxResolutionPasses = 5
	DefaultTick         = time.Second
	// How often kinds missing from the queue are requested again
	RetryInterval = 10 * time.Minute
)

// Order in which activities are picked when the caller does not care
var cycle = []Kind{KindTreasureHunt, KindFishSpawn, KindHungerAnnouncement}

// Scheduler keeps the queue of activities of one guild and drives it
type Scheduler struct {
	guildID  string
	handlers Handlers
	notifier notify.Notifier
	clock    common.Clock
	tick     time.Duration

	mu        sync.Mutex
	queue     []Activity // Sorted by start time
	next      int        // Position in the cycle
	ending    map[Kind]bool
	lastRetry time.Time

	running  atomic.Bool
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(guildID string, handlers Handlers, notifier notify.Notifier, clock common.Clock, tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Scheduler{
		guildID:  guildID,
		handlers: handlers,
		notifier: notifier,
		clock:    clock,
		tick:     tick,
		ending:   make(map[Kind]bool),
		stopChan: make(chan struct{}),
	}
}

func (s *Scheduler) GuildID() string {
	return s.guildID
}

// Add an activity to the queue, moving it around if it is too close
// to the ones already there. Returns false if it could not be placed
func (s *Scheduler) AddActivity(activity Activity) bool {
	if activity.GuildID != s.guildID {
		log.Error().Msg(fmt.Sprintf("Activity for guild %s offered to the scheduler of guild %s", activity.GuildID, s.guildID))
		return false
	}
	if !activity.End.After(activity.Start) {
		log.Error().Msg(fmt.Sprintf("Rejecting activity with an empty window: %s", activity))
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, queued := range s.queue {
		if queued.Kind == activity.Kind {
			log.Debug().Msg(fmt.Sprintf("An activity of kind %s is already queued in guild %s", activity.Kind, s.guildID))
			return false
		}
	}

	resolved, ok := s.resolve(activity)
	if !ok {
		log.Warn().Msg(fmt.Sprintf("Could not find a free slot for %s after %d passes", activity, MaxResolutionPasses))
		return false
	}
	if !resolved.Start.Equal(activity.Start) {
		log.Info().Msg(fmt.Sprintf("Moved %s to start at %s", activity.Kind, resolved.Start.Format(time.RFC3339)))
	}

	s.queue = append(s.queue, resolved)
	sort.SliceStable(s.queue, func(i, j int) bool {
		return s.queue[i].Start.Before(s.queue[j].Start)
	})
	log.Info().Msg(fmt.Sprintf("Scheduled %s", resolved))
	return true
}

// Move the candidate away from the activities it conflicts with, keeping
// its duration. Works on a copy so the queue is left untouched
func (s *Scheduler) resolve(candidate Activity) (Activity, bool) {
	duration := candidate.Duration()
	now := s.clock.Now()
	for pass := 0; ; pass++ {
		conflict, found := s.firstConflict(candidate)
		if !found {
			return candidate, true
		}
		if pass == MaxResolutionPasses {
			return candidate, false
		}
		if !conflict.Start.After(candidate.Start) {
			// The conflicting activity comes first, go after it
			candidate.Start = conflict.End.Add(Buffer)
			candidate.End = candidate.Start.Add(duration)
			continue
		}
		// The conflicting activity comes later, try to finish before it.
		// Going back into the past is pointless, so go after it instead
		end := conflict.Start.Add(-Buffer)
		if end.Add(-duration).Before(now) {
			candidate.Start = conflict.End.Add(Buffer)
			candidate.End = candidate.Start.Add(duration)
		} else {
			candidate.End = end
			candidate.Start = end.Add(-duration)
		}
	}
}

func (s *Scheduler) firstConflict(candidate Activity) (Activity, bool) {
	for _, queued := range s.queue {
		if candidate.conflicts(queued, Buffer) {
			return queued, true
		}
	}
	return Activity{}, false
}

// Remove the first queued activity of the same kind
func (s *Scheduler) RemoveActivity(activity Activity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, queued := range s.queue {
		if queued.GuildID == activity.GuildID && queued.Kind == activity.Kind {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Scheduler) CurrentRunningActivity() (Activity, bool) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, queued := range s.queue {
		if queued.Contains(now) {
			return queued, true
		}
	}
	return Activity{}, false
}

func (s *Scheduler) UpcomingActivityByKind(kind Kind) (Activity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, queued := range s.queue {
		if queued.Kind == kind {
			return queued, true
		}
	}
	return Activity{}, false
}

// Activities returns a copy of the queue
func (s *Scheduler) Activities() []Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Activity(nil), s.queue...)
}

// Remember a message to delete once the activity ends
func (s *Scheduler) AttachNotification(id uuid.UUID, handle notify.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.queue {
		if s.queue[i].ID == id {
			s.queue[i].Notification = handle
			return true
		}
	}
	return false
}

func (s *Scheduler) DecideNextActivity() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kind := cycle[s.next]
	s.next = (s.next + 1) % len(cycle)
	return kind
}

// Start the driver loop. Stop must be called to release it
func (s *Scheduler) Start(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
	log.Info().Msg(fmt.Sprintf("Scheduler started for guild %s", s.guildID))
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
		log.Info().Msg(fmt.Sprintf("Scheduler stopped for guild %s", s.guildID))
	})
}

// Tick progresses the head of the queue, and only the head.
// Handlers are launched in their own goroutines
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.clock.Now()

	s.mu.Lock()
	if len(s.queue) > 0 {
		head := &s.queue[0]
		switch {
		case !head.Started && !now.Before(head.Start):
			head.Started = true
			activity := *head
			s.mu.Unlock()
			s.start(ctx, activity)
			return
		case !now.Before(head.End):
			activity := *head
			s.queue = s.queue[1:]
			s.ending[activity.Kind] = true
			s.mu.Unlock()
			s.end(ctx, activity)
			return
		}
	}
	missing := s.missingKinds(now)
	s.mu.Unlock()

	for _, kind := range missing {
		requester, ok := s.handlers.For(kind).(Requester)
		if !ok {
			continue
		}
		if requester.Request(s.guildID) {
			log.Info().Msg(fmt.Sprintf("Requested the missing %s again in guild %s", kind, s.guildID))
		} else {
			log.Debug().Msg(fmt.Sprintf("Could not request the missing %s in guild %s", kind, s.guildID))
		}
	}
}

// Kinds with a handler that are neither queued nor ending, at most once
// per retry interval. Must be called with the lock held
func (s *Scheduler) missingKinds(now time.Time) []Kind {
	if !s.lastRetry.IsZero() && now.Sub(s.lastRetry) < RetryInterval {
		return nil
	}
	s.lastRetry = now
	present := make(map[Kind]bool, len(s.queue))
	for _, queued := range s.queue {
		present[queued.Kind] = true
	}
	var missing []Kind
	for _, kind := range cycle {
		if !present[kind] && !s.ending[kind] && s.handlers.For(kind) != nil {
			missing = append(missing, kind)
		}
	}
	return missing
}

func (s *Scheduler) start(ctx context.Context, activity Activity) {
	handler := s.handlers.For(activity.Kind)
	if handler == nil {
		log.Error().Msg(fmt.Sprintf("No handler registered for %s", activity.Kind))
		return
	}
	log.Info().Msg(fmt.Sprintf("Starting %s", activity))
	common.Go(fmt.Sprintf("start %s/%s", activity.GuildID, activity.Kind), func() error {
		return handler.Start(ctx, activity)
	})
}

func (s *Scheduler) end(ctx context.Context, activity Activity) {
	log.Info().Msg(fmt.Sprintf("Ending %s", activity))
	ender, hasEnd := s.handlers.For(activity.Kind).(Ender)
	common.Go(fmt.Sprintf("end %s/%s", activity.GuildID, activity.Kind), func() error {
		defer func() {
			s.mu.Lock()
			delete(s.ending, activity.Kind)
			s.mu.Unlock()
		}()
		if !activity.Notification.IsZero() {
			if err := s.notifier.Delete(activity.Notification); err != nil {
				log.Warn().Err(err).Msg(fmt.Sprintf("Could not delete the notification of %s", activity.Kind))
			}
		}
		if !hasEnd {
			return nil
		}
		return ender.End(ctx, activity)
	})
}

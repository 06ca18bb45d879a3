package hunger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"reelbot/internal/common"
	"reelbot/internal/fishing"
	"reelbot/internal/notify"
	"reelbot/internal/notify/notifytest"
	"reelbot/internal/scheduler"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixedRandom struct {
	roll float64
}

func (r fixedRandom) Float64() float64 { return r.roll }
func (r fixedRandom) IntN(n int) int   { return 0 }

type fakeScheduling struct {
	mu       sync.Mutex
	added    []scheduler.Activity
	attached map[uuid.UUID]notify.Handle
}

func (f *fakeScheduling) AddActivity(activity scheduler.Activity) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, activity)
	return true
}

func (f *fakeScheduling) AttachNotification(guildID string, id uuid.UUID, handle notify.Handle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attached == nil {
		f.attached = make(map[uuid.UUID]notify.Handle)
	}
	f.attached[id] = handle
	return true
}

func newTestTracker(roll float64) (*Tracker, *common.MockClock, *notifytest.Memory, *fakeScheduling) {
	clock := common.NewMockClock(epoch)
	notifier := notifytest.NewMemory()
	scheduling := &fakeScheduling{}
	return NewTracker(notifier, scheduling, nil, clock, fixedRandom{roll}, DefaultConfig()), clock, notifier, scheduling
}

func TestUpdate_DecaysAndClamps(t *testing.T) {
	tracker, clock, _, _ := newTestTracker(1)

	if got := tracker.Level("g1"); got != Full {
		t.Fatalf("level=%v want=%v", got, Full)
	}
	clock.Advance(100 * time.Minute)
	if got := tracker.Update("g1"); got != 95 {
		t.Fatalf("level=%v want=95", got)
	}
	// Other guilds have their own mascot
	if got := tracker.Level("g2"); got != Full {
		t.Fatalf("level=%v want=%v", got, Full)
	}
	clock.Advance(1000 * time.Hour)
	if got := tracker.Level("g1"); got != 0 {
		t.Fatalf("level=%v want=0", got)
	}
}

func TestFeed(t *testing.T) {
	tracker, clock, _, _ := newTestTracker(1)
	catalog := fishing.DefaultCatalog()
	cod, _ := catalog.Fish("Cod")
	koi, _ := catalog.Fish("Golden Koi")

	if _, err := tracker.Feed("g1", cod, 1); !errors.Is(err, ErrTooFull) {
		t.Fatalf("err=%v want=%v", err, ErrTooFull)
	}
	if got := tracker.Level("g1"); got != Full {
		t.Fatalf("overfeeding changed the level: %v", got)
	}

	clock.Advance(200 * time.Minute) // Down to 90
	level, err := tracker.Feed("g1", cod, 3)
	if err != nil || level != 96 {
		t.Fatalf("level=%v err=%v", level, err)
	}
	if _, err := tracker.Feed("g1", koi, 1); !errors.Is(err, ErrTooFull) {
		t.Fatalf("err=%v want=%v", err, ErrTooFull)
	}
	if got := tracker.Level("g1"); got != 96 {
		t.Fatalf("level=%v want=96", got)
	}
	if _, err := tracker.Feed("g1", cod, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("err=%v", err)
	}
}

func TestTierOf(t *testing.T) {
	for level, want := range map[float64]Tier{100: Satisfied, 50: Satisfied, 49.9: Mild, 25: Mild, 24: Very, 10: Very, 9.5: Starving, 0: Starving} {
		if got := TierOf(level); got != want {
			t.Fatalf("tier of %v=%s want=%s", level, got, want)
		}
	}
}

func TestAnnounce_OnlyWhenHungryAndRateLimited(t *testing.T) {
	tracker, clock, notifier, _ := newTestTracker(0)
	ctx := context.Background()

	if tracker.MaybeAnnounce(ctx, "g1") {
		t.Fatalf("announced while full")
	}

	clock.Advance(1200 * time.Minute) // Down to 40
	if !tracker.MaybeAnnounce(ctx, "g1") {
		t.Fatalf("expected an announcement")
	}
	msgs := notifier.Messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].Content, "peckish") {
		t.Fatalf("messages=%+v", msgs)
	}

	clock.Advance(30 * time.Minute)
	if tracker.MaybeAnnounce(ctx, "g1") {
		t.Fatalf("announced twice within the interval")
	}
	clock.Advance(30 * time.Minute)
	if !tracker.MaybeAnnounce(ctx, "g1") {
		t.Fatalf("expected a second announcement after the interval")
	}
}

func TestAnnounce_DroppedSendDoesNotStartTheInterval(t *testing.T) {
	tracker, clock, notifier, _ := newTestTracker(0)
	ctx := context.Background()
	clock.Advance(1200 * time.Minute)

	notifier.Fail = errors.New("announcement dropped by the rate limiter")
	if _, ok := tracker.Announce(ctx, "g1"); ok {
		t.Fatalf("announced although the send failed")
	}
	notifier.Fail = nil
	clock.Advance(time.Minute)
	if _, ok := tracker.Announce(ctx, "g1"); !ok {
		t.Fatalf("a failed send suppressed the next announcement")
	}
	clock.Advance(time.Minute)
	if _, ok := tracker.Announce(ctx, "g1"); ok {
		t.Fatalf("announced twice within the interval")
	}
	if got := len(notifier.Messages()); got != 1 {
		t.Fatalf("messages=%d want=1", got)
	}
}

func TestMaybeAnnounce_IsProbabilistic(t *testing.T) {
	tracker, clock, notifier, _ := newTestTracker(0.5)
	clock.Advance(1800 * time.Minute)
	for i := 0; i < 10; i++ {
		if tracker.MaybeAnnounce(context.Background(), "g1") {
			t.Fatalf("announced above the chance")
		}
	}
	if len(notifier.Messages()) != 0 {
		t.Fatalf("messages=%+v", notifier.Messages())
	}
}

func TestMessage_Tiers(t *testing.T) {
	if !strings.Contains(Message(5), "STARVING") || !strings.Contains(Message(20), "very hungry") || !strings.Contains(Message(40), "peckish") {
		t.Fatalf("wrong tier messages")
	}
}

func TestHandler_StartAttachesAndEndRequests(t *testing.T) {
	tracker, clock, notifier, scheduling := newTestTracker(1)
	ctx := context.Background()
	clock.Advance(1800 * time.Minute) // Down to 10

	if !tracker.Request("g1") {
		t.Fatalf("request not accepted")
	}
	activity := scheduling.added[0]
	if activity.Kind != scheduler.KindHungerAnnouncement || !activity.Start.Equal(clock.Now().Add(2*time.Hour)) {
		t.Fatalf("activity=%s", activity)
	}

	if err := tracker.Start(ctx, activity); err != nil {
		t.Fatalf("start: %v", err)
	}
	handle, ok := scheduling.attached[activity.ID]
	if !ok {
		t.Fatalf("notification not attached")
	}
	if msg, _ := notifier.Get(handle); !strings.Contains(msg.Content, "very hungry") {
		t.Fatalf("message=%q", msg.Content)
	}

	if err := tracker.End(ctx, activity); err != nil {
		t.Fatalf("end: %v", err)
	}
	if len(scheduling.added) != 2 {
		t.Fatalf("next announcement not requested")
	}
}

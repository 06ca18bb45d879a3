package treasure

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"reelbot/internal/common"
	"reelbot/internal/journal"
	"reelbot/internal/notify"
	"reelbot/internal/notify/notifytest"
	"reelbot/internal/scheduler"
	"reelbot/internal/settings"
	"reelbot/internal/settings/settingstest"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type balances struct {
	mu     sync.Mutex
	amount map[string]int
	fail   map[string]bool
}

func (b *balances) AddToBalance(ctx context.Context, guildID string, userID string, amount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail[userID] {
		return errors.New("balance unavailable")
	}
	b.amount[guildID+"/"+userID] += amount
	return nil
}

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
	f.attached[id] = handle
	return true
}

type entries struct {
	mu   sync.Mutex
	list []journal.Entry
}

func (e *entries) Record(entry journal.Entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.list = append(e.list, entry)
}

type fixture struct {
	orchestrator *Orchestrator
	economy      *balances
	notifier     *notifytest.Memory
	settings     *settingstest.Memory
	scheduling   *fakeScheduling
	journal      *entries
}

func newFixture() fixture {
	f := fixture{
		economy:    &balances{amount: make(map[string]int), fail: make(map[string]bool)},
		notifier:   notifytest.NewMemory(),
		settings:   settingstest.NewMemory(),
		scheduling: &fakeScheduling{attached: make(map[uuid.UUID]notify.Handle)},
		journal:    &entries{},
	}
	f.orchestrator = NewOrchestrator(f.economy, f.notifier, f.settings, f.scheduling, f.journal, common.NewMockClock(epoch), DefaultConfig())
	return f
}

// Start a hunt in the background and wait for the prompt to be up
func (f fixture) startHunt(t *testing.T, guildID string, window time.Duration) (notify.Handle, <-chan Outcome) {
	t.Helper()
	done := make(chan Outcome, 1)
	go func() {
		outcome, err := f.orchestrator.Run(context.Background(), guildID, uuid.New(), window)
		if err != nil {
			t.Errorf("run: %v", err)
		}
		done <- outcome
	}()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if f.orchestrator.Running(guildID) {
			return f.notifier.Messages()[0].Handle, done
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("hunt never started")
	return notify.Handle{}, nil
}

func TestReward(t *testing.T) {
	for participants, want := range map[int]int{0: 0, 1: 60, 3: 80, 5: 100, 12: 100} {
		if got := Reward(participants); got != want {
			t.Fatalf("reward for %d=%d want=%d", participants, got, want)
		}
	}
}

func TestHunt_ThreeParticipants(t *testing.T) {
	f := newFixture()
	prompt, done := f.startHunt(t, "g1", time.Minute)

	f.orchestrator.React("g1", prompt.MessageID, "u1", false, Emoji)
	f.orchestrator.React("g1", prompt.MessageID, "u2", false, Emoji)
	f.orchestrator.React("g1", prompt.MessageID, "u1", false, Emoji)
	f.orchestrator.React("g1", prompt.MessageID, "bot", true, Emoji)
	f.orchestrator.React("g1", prompt.MessageID, "u4", false, "👍")
	f.orchestrator.React("g1", "another message", "u5", false, Emoji)
	f.orchestrator.React("g2", prompt.MessageID, "u6", false, Emoji)
	f.orchestrator.React("g1", prompt.MessageID, "u3", false, Emoji)
	f.orchestrator.StopHunt("g1")

	outcome := <-done
	if len(outcome.Participants) != 3 || outcome.Reward != 80 {
		t.Fatalf("outcome=%+v", outcome)
	}
	for _, userID := range []string{"u1", "u2", "u3"} {
		if got := f.economy.amount["g1/"+userID]; got != 80 {
			t.Fatalf("balance of %s=%d want=80", userID, got)
		}
	}
	if len(f.economy.amount) != 3 {
		t.Fatalf("balances=%v", f.economy.amount)
	}
	if len(f.journal.list) != 3 || f.journal.list[0].Event != journal.EventReward {
		t.Fatalf("journal=%+v", f.journal.list)
	}
	msgs := f.notifier.Messages()
	if !strings.Contains(msgs[len(msgs)-1].Content, "**80** coins") {
		t.Fatalf("messages=%+v", msgs)
	}
	if got := f.notifier.Messages()[0].Reactions; len(got) != 1 || got[0] != Emoji {
		t.Fatalf("reactions=%v", got)
	}
	if f.orchestrator.Running("g1") {
		t.Fatalf("hunt still registered")
	}
}

func TestHunt_Expired(t *testing.T) {
	f := newFixture()
	_, done := f.startHunt(t, "g1", 20*time.Millisecond)

	outcome := <-done
	if len(outcome.Participants) != 0 || outcome.Reward != 0 {
		t.Fatalf("outcome=%+v", outcome)
	}
	if len(f.economy.amount) != 0 {
		t.Fatalf("balances=%v", f.economy.amount)
	}
	if len(f.journal.list) != 1 || f.journal.list[0].Event != journal.EventExpired {
		t.Fatalf("journal=%+v", f.journal.list)
	}
	msgs := f.notifier.Messages()
	if !strings.Contains(msgs[len(msgs)-1].Content, "Nobody showed up") {
		t.Fatalf("messages=%+v", msgs)
	}
}

func TestHunt_FailedRewardDoesNotStopTheOthers(t *testing.T) {
	f := newFixture()
	f.economy.fail["u1"] = true
	prompt, done := f.startHunt(t, "g1", time.Minute)
	f.orchestrator.React("g1", prompt.MessageID, "u1", false, Emoji)
	f.orchestrator.React("g1", prompt.MessageID, "u2", false, Emoji)
	f.orchestrator.StopHunt("g1")

	outcome := <-done
	if outcome.Reward != 70 || f.economy.amount["g1/u2"] != 70 {
		t.Fatalf("outcome=%+v balances=%v", outcome, f.economy.amount)
	}
}

func TestStart_AttachesPromptAndHonoursSettings(t *testing.T) {
	f := newFixture()
	activity := scheduler.NewActivity("g1", scheduler.KindTreasureHunt, epoch, 20*time.Millisecond)

	if err := f.orchestrator.Start(context.Background(), activity); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, ok := f.scheduling.attached[activity.ID]; !ok {
		t.Fatalf("prompt not attached to the activity")
	}

	f.settings.Set("g2", settings.TreasureHunts, false)
	disabled := scheduler.NewActivity("g2", scheduler.KindTreasureHunt, epoch, time.Hour)
	if err := f.orchestrator.Start(context.Background(), disabled); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, msg := range f.notifier.Messages() {
		if msg.GuildID == "g2" {
			t.Fatalf("hunt ran in a guild with hunts disabled")
		}
	}
}

func TestEnd_RequestsTheNextHunt(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	activity := scheduler.NewActivity("g1", scheduler.KindTreasureHunt, epoch, time.Minute)

	if err := f.orchestrator.End(ctx, activity); err != nil {
		t.Fatalf("end: %v", err)
	}
	if len(f.scheduling.added) != 1 {
		t.Fatalf("added=%v", f.scheduling.added)
	}
	next := f.scheduling.added[0]
	if next.Kind != scheduler.KindTreasureHunt || !next.Start.Equal(epoch.Add(3*time.Hour)) || next.Duration() != 15*time.Minute {
		t.Fatalf("next=%s", next)
	}

	f.settings.Set("g1", settings.TreasureHunts, false)
	f.orchestrator.End(ctx, activity)
	if len(f.scheduling.added) != 1 {
		t.Fatalf("requested a hunt while hunts are disabled")
	}
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	if !c.Add("u1", false) || c.Add("u1", false) || c.Add("b", true) || c.Add("", false) {
		t.Fatalf("collector accepted the wrong reactors")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := c.Wait(ctx, time.Hour); len(got) != 1 || got[0] != "u1" {
		t.Fatalf("participants=%v", got)
	}
	if c.Add("u2", false) {
		t.Fatalf("joined after the collection was over")
	}
}

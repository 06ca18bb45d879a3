package fishing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// Always rolls the same
type fixedRandom struct {
	roll float64
}

func (r fixedRandom) Float64() float64 { return r.roll }
func (r fixedRandom) IntN(n int) int   { return 0 }

type catchFixture struct {
	spawnerFixture
	attempts     *AttemptTracker
	orchestrator *Orchestrator
	slept        []time.Duration
}

func newCatchFixture(roll float64) *catchFixture {
	f := &catchFixture{spawnerFixture: newSpawnerFixture(activeUsers{})}
	f.attempts = NewAttemptTracker(f.clock, DefaultRegenInterval)
	f.orchestrator = NewOrchestrator(DefaultCatalog(), f.spawner, f.attempts, f.inventory, f.notifier, nil, f.clock, fixedRandom{roll})
	f.orchestrator.Sleep = func(ctx context.Context, d time.Duration) error {
		f.slept = append(f.slept, d)
		return nil
	}
	return f
}

func (f *catchFixture) plantCod(quantity int) {
	cod, _ := DefaultCatalog().Fish("Cod")
	f.spawner.plant("g1", map[string]Stock{"Cod": {Fish: cod, Quantity: quantity}})
}

// Leave the player with a single cast
func (f *catchFixture) lastAttempt() {
	rod := DefaultCatalog().DefaultRod()
	for i := 0; i < rod.Casts-1; i++ {
		f.attempts.Use("g1", "u1", rod)
	}
}

func TestCast_CodScenario_Caught(t *testing.T) {
	f := newCatchFixture(0)
	f.plantCod(3)
	f.lastAttempt()

	result, err := f.orchestrator.Cast(context.Background(), "g1", "c1", "u1")
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	if result.Outcome != OutcomeCaught || result.Fish.Name != "Cod" {
		t.Fatalf("result=%+v", result)
	}
	if got := f.spawner.Fish("g1")["Cod"].Quantity; got != 2 {
		t.Fatalf("cod left=%d want=2", got)
	}
	if got := f.attempts.Remaining("g1", "u1", DefaultCatalog().DefaultRod()); got != 0 || result.AttemptsLeft != 0 {
		t.Fatalf("attempts=%d result=%d", got, result.AttemptsLeft)
	}
	if f.inventory.item("u1", "Cod") != 1 || len(f.inventory.catches) != 1 {
		t.Fatalf("catch not recorded: items=%v catches=%v", f.inventory.items, f.inventory.catches)
	}
	if len(f.slept) != 1 || f.slept[0] != 3*time.Second {
		t.Fatalf("slept=%v", f.slept)
	}
	msg, _ := f.notifier.Get(result.Message)
	if msg.Handle.ChannelID != "c1" || !strings.Contains(msg.Content, "caught a **Cod**") || !strings.Contains(msg.Content, "+10 XP") {
		t.Fatalf("message=%+v", msg)
	}
	if result.XP != 10 || f.inventory.xp != 10 || strings.Contains(msg.Content, "Level up") {
		t.Fatalf("xp=%d logged=%d message=%q", result.XP, f.inventory.xp, msg.Content)
	}
	if f.orchestrator.IsFishing("g1", "u1") {
		t.Fatalf("guard not released")
	}
}

func TestCast_CodScenario_Missed(t *testing.T) {
	f := newCatchFixture(0.99)
	f.plantCod(3)
	f.lastAttempt()

	result, err := f.orchestrator.Cast(context.Background(), "g1", "c1", "u1")
	if err != nil || result.Outcome != OutcomeMissed {
		t.Fatalf("result=%+v err=%v", result, err)
	}
	if got := f.spawner.Fish("g1")["Cod"].Quantity; got != 3 {
		t.Fatalf("cod left=%d want=3", got)
	}
	if got := f.attempts.Remaining("g1", "u1", DefaultCatalog().DefaultRod()); got != 0 {
		t.Fatalf("attempts=%d want=0", got)
	}
	if f.inventory.item("u1", "Cod") != 0 {
		t.Fatalf("missed fish ended up in the inventory")
	}
	if msg, _ := f.notifier.Get(result.Message); !strings.Contains(msg.Content, "Tough luck") {
		t.Fatalf("message=%q", msg.Content)
	}
}

func TestCast_LastFishDespawns(t *testing.T) {
	f := newCatchFixture(0)
	f.plantCod(1)
	f.inventory.achievements = []string{"First catch"}
	f.inventory.levelUp = 2

	result, err := f.orchestrator.Cast(context.Background(), "g1", "c1", "u1")
	if err != nil || result.Outcome != OutcomeCaught {
		t.Fatalf("result=%+v err=%v", result, err)
	}
	if f.spawner.HasFish("g1") {
		t.Fatalf("population not despawned")
	}
	msg, _ := f.notifier.Get(result.Message)
	if !strings.Contains(msg.Content, "First catch") || !strings.Contains(msg.Content, "now level **2**") {
		t.Fatalf("achievement or level not shown: %q", msg.Content)
	}
	found := false
	for _, msg := range f.notifier.Messages() {
		if strings.Contains(msg.Content, "Every last fish") {
			found = true
		}
	}
	if !found {
		t.Fatalf("no despawn announcement: %+v", f.notifier.Messages())
	}
}

func TestCast_ConsumesBait(t *testing.T) {
	f := newCatchFixture(0)
	f.plantCod(2)
	f.inventory.baits["u1"] = "Worm"
	f.inventory.items["u1/Worm"] = 3

	result, _ := f.orchestrator.Cast(context.Background(), "g1", "c1", "u1")
	if result.Bait != "Worm" || f.inventory.item("u1", "Worm") != 2 {
		t.Fatalf("bait=%q worms=%d", result.Bait, f.inventory.item("u1", "Worm"))
	}
}

func TestCast_NoFish(t *testing.T) {
	f := newCatchFixture(0)
	result, err := f.orchestrator.Cast(context.Background(), "g1", "c1", "u1")
	if err != nil || result.Outcome != OutcomeNoFish {
		t.Fatalf("result=%+v err=%v", result, err)
	}
	if got := f.attempts.Remaining("g1", "u1", DefaultCatalog().DefaultRod()); got != 5 {
		t.Fatalf("attempt spent without fish: %d", got)
	}
	if msg, _ := f.notifier.Get(result.Message); !strings.Contains(msg.Content, "no fish") {
		t.Fatalf("message=%q", msg.Content)
	}
}

func TestCast_NoAttemptsLeft(t *testing.T) {
	f := newCatchFixture(0)
	f.plantCod(3)
	rod := DefaultCatalog().DefaultRod()
	for i := 0; i < rod.Casts; i++ {
		f.attempts.Use("g1", "u1", rod)
	}

	result, err := f.orchestrator.Cast(context.Background(), "g1", "c1", "u1")
	if err != nil || result.Outcome != OutcomeNoAttempts {
		t.Fatalf("result=%+v err=%v", result, err)
	}
	if result.NextAttempt != DefaultRegenInterval {
		t.Fatalf("next attempt=%v", result.NextAttempt)
	}
	if got := f.spawner.Fish("g1")["Cod"].Quantity; got != 3 {
		t.Fatalf("cod left=%d want=3", got)
	}
}

func TestCast_AlreadyFishing(t *testing.T) {
	f := newCatchFixture(0)
	f.plantCod(3)
	f.inventory.block = make(chan struct{})
	f.inventory.entered = make(chan struct{}, 1)
	ctx := context.Background()

	done := make(chan Result)
	go func() {
		result, _ := f.orchestrator.Cast(ctx, "g1", "c1", "u1")
		done <- result
	}()
	select {
	case <-f.inventory.entered:
	case <-time.After(time.Second):
		t.Fatalf("first cast never reached the inventory")
	}
	if !f.orchestrator.IsFishing("g1", "u1") {
		t.Fatalf("guard not held during the cast")
	}

	second, err := f.orchestrator.Cast(ctx, "g1", "c1", "u1")
	if err != nil || second.Outcome != OutcomeAlreadyFishing {
		t.Fatalf("second=%+v err=%v", second, err)
	}
	if msg, _ := f.notifier.Get(second.Message); !strings.Contains(msg.Content, "already fishing") {
		t.Fatalf("message=%q", msg.Content)
	}

	close(f.inventory.block)
	first := <-done
	if first.Outcome != OutcomeCaught {
		t.Fatalf("first=%+v", first)
	}
	if got := f.spawner.Fish("g1")["Cod"].Quantity; got != 2 {
		t.Fatalf("cod left=%d want=2, second cast entered the pipeline", got)
	}
}

func TestCast_UnexpectedErrorReleasesTheGuard(t *testing.T) {
	f := newCatchFixture(0)
	f.plantCod(3)
	boom := errors.New("database is down")
	f.inventory.err = boom

	result, err := f.orchestrator.Cast(context.Background(), "g1", "c1", "u1")
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if result.Message.IsZero() {
		t.Fatalf("in progress message handle not returned")
	}
	if f.orchestrator.IsFishing("g1", "u1") {
		t.Fatalf("guard not released")
	}
}

func TestCast_WorksWithoutMessages(t *testing.T) {
	f := newCatchFixture(0)
	f.plantCod(3)
	f.notifier.Fail = errors.New("discord is down")

	result, err := f.orchestrator.Cast(context.Background(), "g1", "c1", "u1")
	if err != nil || result.Outcome != OutcomeCaught {
		t.Fatalf("result=%+v err=%v", result, err)
	}
	if !result.Message.IsZero() {
		t.Fatalf("message=%+v", result.Message)
	}
}

func TestResultMessage_Wait(t *testing.T) {
	if got := ResultMessage("u1", Result{Outcome: OutcomeNoAttempts, NextAttempt: 30 * time.Second}); !strings.Contains(got, "less than a minute") {
		t.Fatalf("message=%q", got)
	}
	if got := ResultMessage("u1", Result{Outcome: OutcomeNoAttempts, NextAttempt: 14*time.Minute + 20*time.Second}); !strings.Contains(got, "14 minutes") {
		t.Fatalf("message=%q", got)
	}
}

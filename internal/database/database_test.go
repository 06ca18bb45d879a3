package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"reelbot/internal/settings"
)

func openTest(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "db", "reelbot.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestGuilds(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	if added, err := db.AddGuild(ctx, "g1", "c1"); err != nil || !added {
		t.Fatalf("added=%v err=%v", added, err)
	}
	if added, _ := db.AddGuild(ctx, "g1", "c2"); added {
		t.Fatalf("a known guild was added again")
	}
	if channel, ok, _ := db.Channel(ctx, "g1"); !ok || channel != "c1" {
		t.Fatalf("channel=%s ok=%v", channel, ok)
	}
	if err := db.SetChannel(ctx, "g1", "c3"); err != nil {
		t.Fatalf("set channel: %v", err)
	}
	db.SetChannel(ctx, "g2", "c4")
	guilds, err := db.GetGuilds(ctx)
	if err != nil || len(guilds) != 2 || guilds["g1"] != "c3" || guilds["g2"] != "c4" {
		t.Fatalf("guilds=%v err=%v", guilds, err)
	}
	db.RemoveGuild(ctx, "g2")
	if _, ok, _ := db.Channel(ctx, "g2"); ok {
		t.Fatalf("guild not removed")
	}
}

func TestSettings(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	var _ settings.Source = db

	if !db.Enabled(ctx, "g1", settings.TreasureHunts) {
		t.Fatalf("unset toggles must be on")
	}
	db.SetEnabled(ctx, "g1", settings.TreasureHunts, false)
	if db.Enabled(ctx, "g1", settings.TreasureHunts) {
		t.Fatalf("toggle still on")
	}
	if !db.Enabled(ctx, "g2", settings.TreasureHunts) || !db.Enabled(ctx, "g1", settings.FishingAnnouncements) {
		t.Fatalf("toggle leaked")
	}
	db.SetEnabled(ctx, "g1", settings.TreasureHunts, true)
	if !db.Enabled(ctx, "g1", settings.TreasureHunts) {
		t.Fatalf("toggle still off")
	}
}

func TestEnsurePlayer_StarterKit(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	if created, err := db.EnsurePlayer(ctx, "g1", "u1", "Basic Rod"); err != nil || !created {
		t.Fatalf("created=%v err=%v", created, err)
	}
	if created, _ := db.EnsurePlayer(ctx, "g1", "u1", "Basic Rod"); created {
		t.Fatalf("player created twice")
	}
	if rod, _ := db.EquippedRod(ctx, "g1", "u1"); rod != "Basic Rod" {
		t.Fatalf("rod=%q", rod)
	}
	if n, _ := db.Quantity(ctx, "g1", "u1", "Basic Rod"); n != 1 {
		t.Fatalf("starter rods=%d", n)
	}
	if rod, _ := db.EquippedRod(ctx, "g2", "u1"); rod != "" {
		t.Fatalf("rod leaked to another guild: %q", rod)
	}
}

func TestInventory_AndBait(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	if err := db.Equip(ctx, "g1", "u1", SlotBait, "Worm"); !errors.Is(err, ErrNotOwned) {
		t.Fatalf("equipped a bait not owned: %v", err)
	}
	db.AddToInventory(ctx, "g1", "u1", "Worm", 2)
	db.AddToInventory(ctx, "g1", "u1", "Cod", 3)
	if err := db.Equip(ctx, "g1", "u1", SlotBait, "Worm"); err != nil {
		t.Fatalf("equip: %v", err)
	}
	if bait, _ := db.EquippedBait(ctx, "g1", "u1"); bait != "Worm" {
		t.Fatalf("bait=%q", bait)
	}

	items, err := db.Inventory(ctx, "g1", "u1")
	if err != nil || len(items) != 2 || items[0] != (Item{"Cod", 3}) || items[1] != (Item{"Worm", 2}) {
		t.Fatalf("items=%v err=%v", items, err)
	}

	if err := db.RemoveFromInventory(ctx, "g1", "u1", "Cod", 4); !errors.Is(err, ErrNotEnough) {
		t.Fatalf("err=%v", err)
	}
	if err := db.RemoveFromInventory(ctx, "g1", "u1", "Cod", 3); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if n, _ := db.Quantity(ctx, "g1", "u1", "Cod"); n != 0 {
		t.Fatalf("cod=%d", n)
	}

	db.ConsumeBait(ctx, "g1", "u1", "Worm")
	db.ConsumeBait(ctx, "g1", "u1", "Worm")
	if bait, _ := db.EquippedBait(ctx, "g1", "u1"); bait != "" {
		t.Fatalf("bait still equipped after running out: %q", bait)
	}
	if err := db.ConsumeBait(ctx, "g1", "u1", "Worm"); !errors.Is(err, ErrNotOwned) {
		t.Fatalf("err=%v", err)
	}
	if err := db.AddToInventory(ctx, "g1", "u1", "Cod", 0); err == nil {
		t.Fatalf("added zero items")
	}
}

func TestBalance(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	if b, _ := db.Balance(ctx, "g1", "u1"); b != 0 {
		t.Fatalf("balance=%d", b)
	}
	db.AddToBalance(ctx, "g1", "u1", 80)
	db.AddToBalance(ctx, "g1", "u1", 60)
	if b, _ := db.Balance(ctx, "g1", "u1"); b != 140 {
		t.Fatalf("balance=%d want=140", b)
	}
	if b, _ := db.Balance(ctx, "g2", "u1"); b != 0 {
		t.Fatalf("balance leaked to another guild: %d", b)
	}
}

func TestBuyAndSell(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	db.AddToBalance(ctx, "g1", "u1", 40)

	if _, err := db.Buy(ctx, "g1", "u1", "Glow Lure", 15, 3); !errors.Is(err, ErrNoCoins) {
		t.Fatalf("err=%v", err)
	}
	if n, _ := db.Quantity(ctx, "g1", "u1", "Glow Lure"); n != 0 {
		t.Fatalf("failed purchase left %d lures", n)
	}
	left, err := db.Buy(ctx, "g1", "u1", "Glow Lure", 15, 2)
	if err != nil || left != 10 {
		t.Fatalf("left=%d err=%v", left, err)
	}
	if n, _ := db.Quantity(ctx, "g1", "u1", "Glow Lure"); n != 2 {
		t.Fatalf("lures=%d want=2", n)
	}
	if b, _ := db.Balance(ctx, "g1", "u1"); b != 10 {
		t.Fatalf("balance=%d want=10", b)
	}

	if _, err := db.Sell(ctx, "g1", "u1", "Cod", 5, 1); !errors.Is(err, ErrNotOwned) {
		t.Fatalf("err=%v", err)
	}
	db.AddToInventory(ctx, "g1", "u1", "Cod", 3)
	if _, err := db.Sell(ctx, "g1", "u1", "Cod", 5, 4); !errors.Is(err, ErrNotEnough) {
		t.Fatalf("err=%v", err)
	}
	coins, err := db.Sell(ctx, "g1", "u1", "Cod", 5, 3)
	if err != nil || coins != 25 {
		t.Fatalf("coins=%d err=%v", coins, err)
	}
	if n, _ := db.Quantity(ctx, "g1", "u1", "Cod"); n != 0 {
		t.Fatalf("cod=%d after selling all of them", n)
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{299, 2},
		{300, 3},
		{600, 4},
	}
	for _, test := range tests {
		if got := LevelFor(test.xp); got != test.want {
			t.Fatalf("xp=%d level=%d want=%d", test.xp, got, test.want)
		}
	}
}

func TestLogCatch_Experience(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if xp, level, err := db.Progress(ctx, "g1", "u1"); err != nil || xp != 0 || level != 1 {
		t.Fatalf("xp=%d level=%d err=%v", xp, level, err)
	}
	if levelUp, err := db.LogCatch(ctx, "g1", "u1", "Salmon", "rare", 40, at); err != nil || levelUp != 0 {
		t.Fatalf("levelUp=%d err=%v", levelUp, err)
	}
	db.LogCatch(ctx, "g1", "u1", "Salmon", "rare", 40, at)
	if levelUp, _ := db.LogCatch(ctx, "g1", "u1", "Salmon", "rare", 40, at); levelUp != 2 {
		t.Fatalf("levelUp=%d want=2 at 120 xp", levelUp)
	}
	if levelUp, _ := db.LogCatch(ctx, "g1", "u1", "Cod", "common", 10, at); levelUp != 0 {
		t.Fatalf("levelUp=%d without a new level", levelUp)
	}
	if xp, level, _ := db.Progress(ctx, "g1", "u1"); xp != 130 || level != 2 {
		t.Fatalf("xp=%d level=%d", xp, level)
	}
	if xp, _, _ := db.Progress(ctx, "g2", "u1"); xp != 0 {
		t.Fatalf("xp leaked to another guild: %d", xp)
	}
}

func TestCheckAchievements(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if got, _ := db.CheckAchievements(ctx, "g1", "u1"); len(got) != 0 {
		t.Fatalf("achievements without catches: %v", got)
	}
	db.LogCatch(ctx, "g1", "u1", "Cod", "common", 10, at)
	got, err := db.CheckAchievements(ctx, "g1", "u1")
	if err != nil || len(got) != 1 || got[0] != "First Catch" {
		t.Fatalf("got=%v err=%v", got, err)
	}
	if got, _ := db.CheckAchievements(ctx, "g1", "u1"); len(got) != 0 {
		t.Fatalf("achievement unlocked twice: %v", got)
	}

	db.LogCatch(ctx, "g1", "u1", "Golden Koi", "legendary", 150, at)
	got, _ = db.CheckAchievements(ctx, "g1", "u1")
	if len(got) != 2 || got[0] != "Rare Find" || got[1] != "Legend of the Deep" {
		t.Fatalf("got=%v", got)
	}
	for i := 0; i < 8; i++ {
		db.LogCatch(ctx, "g1", "u1", "Sardine", "common", 10, at)
	}
	got, _ = db.CheckAchievements(ctx, "g1", "u1")
	if len(got) != 1 || got[0] != "Ten Catches" {
		t.Fatalf("got=%v", got)
	}
	if n, _ := db.CatchCount(ctx, "g1", "u1"); n != 10 {
		t.Fatalf("catches=%d", n)
	}
	if all, _ := db.Achievements(ctx, "g1", "u1"); len(all) != 4 {
		t.Fatalf("achievements=%v", all)
	}
}

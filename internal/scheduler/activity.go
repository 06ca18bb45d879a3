package scheduler

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"reelbot/internal/notify"
)

type Kind int

const (
	KindFishSpawn Kind = iota
	KindHungerAnnouncement
	KindTreasureHunt
)

var kindNames = map[Kind]string{
	KindFishSpawn:          "fish-spawn",
	KindHungerAnnouncement: "hunger-announcement",
	KindTreasureHunt:       "treasure-hunt",
}

func (kind Kind) String() string {
	if name, ok := kindNames[kind]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(kind))
}

// An activity is a time boxed game event for one guild
type Activity struct {
	ID           uuid.UUID
	Kind         Kind
	GuildID      string
	Start        time.Time
	End          time.Time
	Started      bool
	Notification notify.Handle // Deleted when the activity ends, if set
}

func NewActivity(guildID string, kind Kind, start time.Time, duration time.Duration) Activity {
	return Activity{
		ID:      uuid.New(),
		Kind:    kind,
		GuildID: guildID,
		Start:   start,
		End:     start.Add(duration),
	}
}

func (a Activity) Duration() time.Duration {
	return a.End.Sub(a.Start)
}

func (a Activity) Contains(t time.Time) bool {
	return !t.Before(a.Start) && t.Before(a.End)
}

// Two activities conflict when they are closer than the buffer
func (a Activity) conflicts(other Activity, buffer time.Duration) bool {
	return other.End.After(a.Start.Add(-buffer)) && other.Start.Before(a.End.Add(buffer))
}

func (a Activity) String() string {
	return fmt.Sprintf("%s in guild %s [%s, %s]", a.Kind, a.GuildID, a.Start.Format(time.RFC3339), a.End.Format(time.RFC3339))
}

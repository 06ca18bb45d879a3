// Package journal keeps an append only record of what happened in the game:
// spawns, catches, rewards. One zstd compressed JSONL file per hour.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"reelbot/internal/common"
)

const (
	EventSpawn   = "spawn"
	EventDespawn = "despawn"
	EventCatch   = "catch"
	EventMiss    = "miss"
	EventReward  = "reward"
	EventExpired = "hunt_expired"
	EventFeed    = "feed"
)

type Entry struct {
	Time     time.Time `json:"time"`
	Event    string    `json:"event"`
	GuildID  string    `json:"guild_id"`
	UserID   string    `json:"user_id,omitempty"`
	Item     string    `json:"item,omitempty"`
	Quantity int       `json:"quantity,omitempty"`
	Amount   int       `json:"amount,omitempty"`
}

// Recorder is what the game needs from a journal
type Recorder interface {
	Record(entry Entry)
}

type discard struct{}

func (discard) Record(Entry) {}

// Discard drops every entry
var Discard Recorder = discard{}

type Writer struct {
	baseDir string
	prefix  string
	clock   common.Clock

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewWriter(baseDir string, prefix string, clock common.Clock) *Writer {
	return &Writer{
		baseDir: baseDir,
		prefix:  prefix,
		clock:   clock,
	}
}

// Record writes the entry and logs failures, the game never waits on the journal
func (w *Writer) Record(entry Entry) {
	if entry.Time.IsZero() {
		entry.Time = w.clock.Now()
	}
	if err := w.Write(entry); err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Could not write %s entry to the journal", entry.Event))
	}
}

func (w *Writer) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.clock.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.PathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 32*1024)
	w.curHour = hour
	return nil
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err
}

func (w *Writer) PathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// ReadFile decodes every entry of one journal file
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var entries []Entry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var entry Entry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		entries = append(entries, entry)
	}
	return entries, sc.Err()
}

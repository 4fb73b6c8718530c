// Package leaderboard keeps the ranked top scores of the defense challenge.
// The board is persisted as one snapshot; every change rewrites it whole.
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
)

const (
	MaxEntries  = 10
	DefaultName = "Anonymous"
	SnapshotKey = "leaderboard"
)

type Entry struct {
	Name  string `json:"name"`
	Score int64  `json:"score"`
}

// NameSource asks the player for the name to record next to a score. An
// empty name or an error means the player gave none.
type NameSource interface {
	RequestName(ctx context.Context, score int64) (string, error)
}

type NameFunc func(ctx context.Context, score int64) (string, error)

func (f NameFunc) RequestName(ctx context.Context, score int64) (string, error) { return f(ctx, score) }

// Anonymous never prompts.
var Anonymous NameSource = NameFunc(func(context.Context, int64) (string, error) { return "", nil })

type Board struct {
	mu    sync.Mutex
	store Store
	key   string
}

func New(store Store) *Board {
	return &Board{store: store, key: SnapshotKey}
}

// Load returns the persisted snapshot. A missing or unreadable snapshot is
// an empty board.
func (b *Board) Load() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load()
}

func (b *Board) load() []Entry {
	raw, err := b.store.Get(b.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("LEADERBOARD: read snapshot: %v", err)
		}
		return []Entry{}
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Printf("LEADERBOARD: corrupt snapshot ignored: %v", err)
		return []Entry{}
	}
	return normalize(entries)
}

// Record adds score to the board if it is positive. The name is requested
// before the board is locked so a slow player does not hold up others. It
// returns the resulting snapshot and whether anything changed.
func (b *Board) Record(ctx context.Context, names NameSource, score int64) ([]Entry, bool, error) {
	if score <= 0 {
		return b.Load(), false, nil
	}

	name := DefaultName
	if names != nil {
		got, err := names.RequestName(ctx, score)
		if err != nil {
			log.Printf("LEADERBOARD: name entry failed, using %s: %v", DefaultName, err)
		} else if got != "" {
			name = got
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	entries := append(b.load(), Entry{Name: name, Score: score})
	entries = normalize(entries)
	if err := b.save(entries); err != nil {
		return nil, false, err
	}
	log.Printf("LEADERBOARD: recorded %s with %d", name, score)
	return entries, true, nil
}

// Reset replaces the snapshot with an empty board.
func (b *Board) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.save([]Entry{})
}

func (b *Board) save(entries []Entry) error {
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := b.store.Put(b.key, raw); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

// normalize drops non-positive scores, orders by score descending keeping
// insertion order for ties, and truncates to MaxEntries.
func normalize(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Score > 0 {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > MaxEntries {
		out = out[:MaxEntries]
	}
	return out
}

// Package pool provides access to candidate practice items for session
// selection. The engine treats the pool as an external collaborator: it
// only reads candidates and reports answer results back.
package pool

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/studyloop/engine/internal/item"
)

// Filter narrows the candidate set for a session.
type Filter struct {
	CourseID   string
	Weeks      []string        // empty = all weeks
	Difficulty item.Difficulty // empty = any difficulty
}

// Provider supplies candidate items matching a filter.
type Provider interface {
	FetchItems(ctx context.Context, f Filter) ([]item.Item, error)
}

// Recorder receives answer results so historical item stats stay current.
// Providers that persist stats implement this in addition to Provider.
type Recorder interface {
	RecordAnswer(itemID string, score float64, wordCount int, responseTime time.Duration)
}

// Memory is an in-memory Provider holding a single course's items, so the
// filter's CourseID is ignored. It backs tests and the CLI practice
// command; a production deployment substitutes a backend provider behind
// the same interface.
type Memory struct {
	mu    sync.Mutex
	items []item.Item
}

// NewMemory creates a Memory pool seeded with the given items.
func NewMemory(items ...item.Item) *Memory {
	m := &Memory{items: make([]item.Item, len(items))}
	copy(m.items, items)
	return m
}

// Add appends items to the pool.
func (m *Memory) Add(items ...item.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, items...)
}

// FetchItems returns copies of all items matching the filter.
func (m *Memory) FetchItems(_ context.Context, f Filter) ([]item.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []item.Item
	for _, it := range m.items {
		if !matches(it, f) {
			continue
		}
		cp := it
		cp.Keywords = slices.Clone(it.Keywords)
		out = append(out, cp)
	}
	return out, nil
}

// RecordAnswer folds an answer result into the matching item's stats.
// Unknown item IDs are ignored.
func (m *Memory) RecordAnswer(itemID string, score float64, wordCount int, responseTime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.items {
		if m.items[i].ID == itemID {
			m.items[i].Stats.RecordResult(score, wordCount, responseTime.Seconds())
			return
		}
	}
}

// Item returns a copy of the item with the given ID, if present.
func (m *Memory) Item(itemID string) (item.Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, it := range m.items {
		if it.ID == itemID {
			return it, true
		}
	}
	return item.Item{}, false
}

func matches(it item.Item, f Filter) bool {
	if f.Difficulty != "" && it.Difficulty != f.Difficulty {
		return false
	}
	if len(f.Weeks) > 0 && !slices.Contains(f.Weeks, it.Week) {
		return false
	}
	return true
}

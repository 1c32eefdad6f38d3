package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/spikewatch/spikewatch/pkg/scan"
)

// Scan record statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusCanceled  = "canceled"
	StatusFailed    = "failed"
)

// Record is the persisted state of one scan invocation.
type Record struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	Request     scan.Request `json:"request"`
	Result      scan.Result  `json:"result,omitempty"`
	Error       string       `json:"error,omitempty"`
	FramesDone  int          `json:"frames_done"`
	TotalFrames int          `json:"total_frames"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty"`
}

// Entry is a record together with the time it was last updated.
type Entry struct {
	Record    *Record
	UpdatedAt time.Time
}

// Store is a thread-safe in-memory scan record store, keyed by scan ID.
// A background goroutine (Run) periodically evicts finished records that
// have not been updated within the configured TTL.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Put stores or replaces the record for rec.ID.
// Callers must not modify rec after calling Put.
func (s *Store) Put(rec *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rec.ID] = &Entry{
		Record:    rec,
		UpdatedAt: s.now(),
	}
}

// Get returns the Entry for the given scan ID and a boolean indicating
// whether an entry was found.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	return e, ok
}

// List returns all entries, newest started first.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Record.StartedAt.After(out[j].Record.StartedAt)
	})
	return out
}

// Latest returns the most recently started record, if any.
func (s *Store) Latest() (*Record, bool) {
	entries := s.List()
	if len(entries) == 0 {
		return nil, false
	}
	return entries[0].Record, true
}

// Count returns the total number of entries currently held.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// TTL returns the configured record TTL.
func (s *Store) TTL() time.Duration { return s.ttl }

// Evict removes finished entries whose UpdatedAt is older than now minus TTL.
// Running records are never evicted. It returns the number of entries removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for id, e := range s.data {
		if e.Record.Status == StatusRunning {
			continue
		}
		if !e.UpdatedAt.After(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// interval (minimum 1 second) so entries are evicted promptly. Run blocks
// until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted stale scan records", "count", n)
			}
		}
	}
}

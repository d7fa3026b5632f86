// Package logstore keeps the ordered, leveled log of the selected job and
// reconciles persisted history with entries arriving from the event stream.
package logstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/knx2openhab/dashboard/internal/models"
)

// FilterAll disables level filtering.
const FilterAll = "all"

// ErrUnknownLevel is returned by SetFilter for a level that is neither
// FilterAll nor a known log level.
var ErrUnknownLevel = errors.New("unknown log level")

// Persister receives a copy of the whole log after every append.
type Persister func(entries []models.LogEntry) error

// Store holds the log of one job. Entries are only ever appended; Load is the
// single operation that replaces them.
type Store struct {
	mu       sync.RWMutex
	entries  []models.LogEntry
	filter   string
	persist  Persister
	onChange func()
	pending  sync.WaitGroup
}

// New creates an empty store showing all levels.
func New() *Store {
	return &Store{filter: FilterAll}
}

// SetPersister installs the best-effort persistence callback.
func (s *Store) SetPersister(p Persister) {
	s.mu.Lock()
	s.persist = p
	s.mu.Unlock()
}

// OnChange installs the callback invoked after every mutation or filter
// change. It runs synchronously on the mutating goroutine.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Load replaces the log with normalized historical entries.
func (s *Store) Load(raw []any) {
	entries := NormalizeEntries(raw)
	s.mu.Lock()
	s.entries = entries
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// LoadJSON is Load for the raw `log` array of a job payload.
func (s *Store) LoadJSON(raw []json.RawMessage) {
	items := make([]any, 0, len(raw))
	for _, r := range raw {
		var v any
		if err := json.Unmarshal(r, &v); err != nil {
			v = string(r)
		}
		items = append(items, v)
	}
	s.Load(items)
}

// Append adds one entry, re-renders and mirrors the full log to the
// persister in the background. Persistence failures are dropped.
func (s *Store) Append(entry models.LogEntry) {
	if entry.Level == "" {
		entry.Level = models.LevelInfo
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	snapshot := s.snapshotLocked()
	persist := s.persist
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
	if persist != nil {
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			_ = persist(snapshot)
		}()
	}
}

// Persist pushes the current log to the persister synchronously.
func (s *Store) Persist() error {
	s.mu.RLock()
	snapshot := s.snapshotLocked()
	persist := s.persist
	s.mu.RUnlock()
	if persist == nil {
		return nil
	}
	return persist(snapshot)
}

// Flush waits for in-flight background persistence calls.
func (s *Store) Flush() {
	s.pending.Wait()
}

// SetFilter selects the level shown by Visible.
func (s *Store) SetFilter(level string) error {
	if level == "" {
		level = FilterAll
	}
	if level != FilterAll && !models.LogLevel(level).Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}

	s.mu.Lock()
	s.filter = level
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

// Filter returns the active filter.
func (s *Store) Filter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// Entries returns a copy of the full log.
func (s *Store) Entries() []models.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Visible returns the entries matching the active filter in original order.
func (s *Store) Visible() []models.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FilterEntries(s.entries, s.filter)
}

func (s *Store) snapshotLocked() []models.LogEntry {
	out := make([]models.LogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// FilterEntries returns the subsequence of entries whose level equals level.
// FilterAll returns a copy of every entry.
func FilterEntries(entries []models.LogEntry, level string) []models.LogEntry {
	out := make([]models.LogEntry, 0, len(entries))
	for _, e := range entries {
		if level == FilterAll || level == "" || string(e.Level) == level {
			out = append(out, e)
		}
	}
	return out
}

// Package ledger remembers which Redis keys each Deadline job owns, so the keys
// can still be released after the job itself has been purged from the farm.
package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// Entry is the set of Redis keys last seen on one job
type Entry struct {
	Instance  string    `json:"instance"`
	JobID     string    `json:"job_id"`
	JobName   string    `json:"job_name,omitempty"`
	Keys      []string  `json:"keys"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// Ledger tracks job keys with optional JSON persistence. Writers on other
// processes are kept out with a lock file next to the ledger.
type Ledger struct {
	entries     map[string]*Entry // key: instance/jobID
	mu          sync.RWMutex
	persistPath string
	lock        *flock.Flock
	logger      *slog.Logger
	tracked     int // count for current cycle
	released    int // count for current cycle
}

// New creates a ledger, loading persistPath if it exists
func New(persistPath string, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}

	l := &Ledger{
		entries:     make(map[string]*Entry),
		persistPath: persistPath,
		logger:      logger.With("component", "ledger"),
	}

	if persistPath != "" {
		l.lock = flock.New(persistPath + ".lock")
		if err := l.Load(); err != nil {
			l.logger.Warn("failed to load key ledger, starting fresh", "error", err)
		}
	}

	return l
}

func entryKey(instance, jobID string) string {
	return instance + "/" + jobID
}

// Track records the keys currently listed on a job. Empty key lists are
// ignored so a job that drops its keys keeps the last known set.
func (l *Ledger) Track(instance, jobID, jobName string, keys []string) {
	if len(keys) == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	id := entryKey(instance, jobID)
	if entry, exists := l.entries[id]; exists {
		entry.LastSeen = now
		entry.JobName = jobName
		entry.Keys = mergeKeys(entry.Keys, keys)
		return
	}

	l.entries[id] = &Entry{
		Instance:  instance,
		JobID:     jobID,
		JobName:   jobName,
		Keys:      mergeKeys(nil, keys),
		FirstSeen: now,
		LastSeen:  now,
	}
	l.tracked++
}

// Get returns a copy of the entry for a job
func (l *Ledger) Get(instance, jobID string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, exists := l.entries[entryKey(instance, jobID)]
	if !exists {
		return Entry{}, false
	}
	return copyEntry(entry), true
}

// Release forgets a job once its keys have been deleted
func (l *Ledger) Release(instance, jobID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := entryKey(instance, jobID)
	if _, exists := l.entries[id]; exists {
		delete(l.entries, id)
		l.released++
	}
}

// Entries returns copies of the entries for an instance, ordered by job ID
func (l *Ledger) Entries(instance string) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Entry
	for _, entry := range l.entries {
		if entry.Instance == instance {
			out = append(out, copyEntry(entry))
		}
	}
	slices.SortFunc(out, func(a, b Entry) int {
		switch {
		case a.JobID < b.JobID:
			return -1
		case a.JobID > b.JobID:
			return 1
		}
		return 0
	})
	return out
}

// Count returns the total number of tracked jobs
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// ResetCycleCounters resets the per-cycle counters and returns previous values
func (l *Ledger) ResetCycleCounters() (tracked, released int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tracked, released = l.tracked, l.released
	l.tracked = 0
	l.released = 0
	return tracked, released
}

// Save persists the ledger to disk
func (l *Ledger) Save() error {
	if l.persistPath == "" {
		return nil
	}

	l.mu.RLock()
	data, err := json.MarshalIndent(l.entries, "", "  ")
	count := len(l.entries)
	l.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.persistPath), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	if err := l.lock.Lock(); err != nil {
		return fmt.Errorf("lock ledger: %w", err)
	}
	defer func() { _ = l.lock.Unlock() }()

	// Write atomically via temp file
	tmpPath := l.persistPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, l.persistPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	l.logger.Debug("persisted key ledger", "path", l.persistPath, "count", count)
	return nil
}

// Load restores the ledger from disk
func (l *Ledger) Load() error {
	if l.persistPath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.persistPath), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	if err := l.lock.RLock(); err != nil {
		return fmt.Errorf("lock ledger: %w", err)
	}
	data, err := os.ReadFile(l.persistPath)
	_ = l.lock.Unlock()

	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read file: %w", err)
	}

	entries := make(map[string]*Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("unmarshal ledger: %w", err)
	}

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()

	l.logger.Debug("loaded key ledger", "path", l.persistPath, "count", len(entries))
	return nil
}

// Prune removes entries not seen in the given duration
func (l *Ledger) Prune(maxAge time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, entry := range l.entries {
		if entry.LastSeen.Before(cutoff) {
			delete(l.entries, id)
			removed++
		}
	}

	if removed > 0 {
		l.logger.Debug("pruned stale ledger entries", "removed", removed, "max_age", maxAge)
	}

	return removed
}

func copyEntry(e *Entry) Entry {
	c := *e
	c.Keys = slices.Clone(e.Keys)
	return c
}

// mergeKeys appends the keys not already present, keeping first-seen order
func mergeKeys(have, add []string) []string {
	out := slices.Clone(have)
	for _, k := range add {
		if !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}

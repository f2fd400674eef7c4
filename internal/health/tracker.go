// Package health tracks per-source crawl outcomes: rolling success/error
// counters and last-seen timestamps. No history is kept beyond the latest
// success, latest error, and running counts.
package health

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/openonco/scout/internal/types"
)

// Tracker records crawl outcomes per source and persists them to a JSON
// file keyed by source. Records are created lazily on first use and never
// deleted.
type Tracker struct {
	mu        sync.RWMutex
	records   map[types.Source]*types.HealthRecord
	statePath string

	now func() time.Time // test hook
}

// NewTracker creates a tracker backed by the state file at statePath,
// loading existing state when present.
func NewTracker(statePath string) (*Tracker, error) {
	if err := os.MkdirAll(filepath.Dir(statePath), 0755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	t := &Tracker{
		records:   make(map[types.Source]*types.HealthRecord),
		statePath: statePath,
		now:       time.Now,
	}

	if err := t.loadState(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading health state: %w", err)
		}
	}

	return t, nil
}

// RecordSuccess increments the source's success counter and stamps
// LastSuccess, then persists.
func (t *Tracker) RecordSuccess(source types.Source) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.recordLocked(source)
	now := t.now()
	rec.LastSuccess = &now
	rec.SuccessCount++

	return t.saveStateLocked()
}

// RecordError increments the source's error counter, stamps LastError, and
// keeps only the latest error message.
func (t *Tracker) RecordError(source types.Source, crawlErr error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.recordLocked(source)
	now := t.now()
	rec.LastError = &now
	rec.ErrorCount++
	if crawlErr != nil {
		rec.LastErrorMessage = crawlErr.Error()
	}

	return t.saveStateLocked()
}

// Get returns a copy of the source's record and whether one exists.
func (t *Tracker) Get(source types.Source) (types.HealthRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, exists := t.records[source]
	if !exists {
		return types.HealthRecord{}, false
	}
	return *rec, true
}

// Snapshot returns a copy of every record keyed by source.
func (t *Tracker) Snapshot() map[types.Source]types.HealthRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[types.Source]types.HealthRecord, len(t.records))
	for source, rec := range t.records {
		out[source] = *rec
	}
	return out
}

// recordLocked lazily initializes the record for a source. Caller holds the
// write lock.
func (t *Tracker) recordLocked(source types.Source) *types.HealthRecord {
	rec, exists := t.records[source]
	if !exists {
		rec = &types.HealthRecord{}
		t.records[source] = rec
	}
	return rec
}

func (t *Tracker) loadState() error {
	data, err := os.ReadFile(t.statePath)
	if err != nil {
		return err
	}

	var records map[types.Source]*types.HealthRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parsing state file: %w", err)
	}

	if records == nil {
		records = make(map[types.Source]*types.HealthRecord)
	}
	t.records = records
	return nil
}

func (t *Tracker) saveStateLocked() error {
	data, err := json.MarshalIndent(t.records, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing health state: %w", err)
	}

	// Write atomically using temp file + rename
	tmpPath := t.statePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing health state: %w", err)
	}

	if err := os.Rename(tmpPath, t.statePath); err != nil {
		_ = os.Remove(tmpPath) // Clean up on error (best effort)
		return fmt.Errorf("committing health state: %w", err)
	}

	return nil
}

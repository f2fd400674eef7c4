package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openonco/scout/internal/types"
)

// JSONStore keeps the full queue in memory and mirrors every mutation to a
// JSON file using a temp-file-then-rename write, so the on-disk file is never
// observed partially written.
type JSONStore struct {
	mu          sync.RWMutex
	path        string
	discoveries []types.Discovery

	now func() time.Time // test hook
}

var _ Store = (*JSONStore)(nil)

// OpenJSON opens (or creates) a JSON-backed store at path.
func OpenJSON(path string) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &JSONStore{
		path: path,
		now:  time.Now,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading discoveries file: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.discoveries); err != nil {
			return nil, fmt.Errorf("parsing discoveries file: %w", err)
		}
	}

	return s, nil
}

// AddDiscovery inserts a candidate as a pending discovery, or returns
// (nil, nil) when the (source, URL) pair is already present.
func (s *JSONStore) AddDiscovery(source types.Source, cand types.Candidate) (*types.Discovery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cand.URL != "" && s.findByURLLocked(source, cand.URL) >= 0 {
		return nil, nil
	}

	d := types.Discovery{
		ID:           uuid.NewString(),
		Source:       source,
		Type:         cand.Type,
		Title:        cand.Title,
		Summary:      cand.Summary,
		URL:          cand.URL,
		Relevance:    cand.Relevance,
		Metadata:     cand.Metadata,
		DiscoveredAt: s.now(),
		Status:       types.StatusPending,
	}

	s.discoveries = append(s.discoveries, d)
	if err := s.saveLocked(); err != nil {
		// Roll back the in-memory insert so a failed write leaves no
		// partial state.
		s.discoveries = s.discoveries[:len(s.discoveries)-1]
		return nil, err
	}

	return &d, nil
}

// AddDiscoveries inserts candidates in order, one outcome per input.
func (s *JSONStore) AddDiscoveries(source types.Source, cands []types.Candidate) ([]AddOutcome, error) {
	outcomes := make([]AddOutcome, 0, len(cands))
	for _, cand := range cands {
		d, err := s.AddDiscovery(source, cand)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, AddOutcome{Discovery: d, Duplicate: d == nil})
	}
	return outcomes, nil
}

// Get returns a copy of the discovery with the given ID.
func (s *JSONStore) Get(id string) (*types.Discovery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.discoveries {
		if s.discoveries[i].ID == id {
			d := s.discoveries[i]
			return &d, nil
		}
	}
	return nil, ErrNotFound
}

// All returns every discovery in insertion order.
func (s *JSONStore) All() ([]types.Discovery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Discovery, len(s.discoveries))
	copy(out, s.discoveries)
	return out, nil
}

// GetUnreviewed returns all pending discoveries in insertion order.
func (s *JSONStore) GetUnreviewed() ([]types.Discovery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Discovery
	for _, d := range s.discoveries {
		if d.Status == types.StatusPending {
			out = append(out, d)
		}
	}
	return out, nil
}

// MarkReviewed performs the one-way pending → reviewed transition.
func (s *JSONStore) MarkReviewed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.discoveries {
		if s.discoveries[i].ID != id {
			continue
		}
		if s.discoveries[i].Status == types.StatusReviewed {
			return ErrAlreadyReviewed
		}

		prev := s.discoveries[i]
		now := s.now()
		s.discoveries[i].Status = types.StatusReviewed
		s.discoveries[i].ReviewedAt = &now

		if err := s.saveLocked(); err != nil {
			s.discoveries[i] = prev
			return err
		}
		return nil
	}
	return ErrNotFound
}

// SetEnrichment stores the triage extraction under the discovery's metadata.
func (s *JSONStore) SetEnrichment(id string, e *types.Enrichment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.discoveries {
		if s.discoveries[i].ID != id {
			continue
		}

		prev := s.discoveries[i].Metadata
		md := make(map[string]any, len(prev)+1)
		for k, v := range prev {
			md[k] = v
		}
		md["enrichment"] = e
		s.discoveries[i].Metadata = md

		if err := s.saveLocked(); err != nil {
			s.discoveries[i].Metadata = prev
			return err
		}
		return nil
	}
	return ErrNotFound
}

// QueueStatus returns queue counts. Total == Pending + Reviewed.
func (s *JSONStore) QueueStatus() (QueueStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := QueueStatus{Total: len(s.discoveries)}
	for _, d := range s.discoveries {
		if d.Status == types.StatusReviewed {
			status.Reviewed++
		} else {
			status.Pending++
		}
	}
	return status, nil
}

// CleanupOld removes discoveries whose DiscoveredAt is older than maxAge.
// The filtered collection is written before memory is updated, so a write
// failure leaves both file and memory untouched.
func (s *JSONStore) CleanupOld(maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)

	kept := make([]types.Discovery, 0, len(s.discoveries))
	for _, d := range s.discoveries {
		if !d.DiscoveredAt.Before(cutoff) {
			kept = append(kept, d)
		}
	}

	removed := len(s.discoveries) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	if err := writeAtomic(s.path, kept); err != nil {
		return 0, err
	}
	s.discoveries = kept
	return removed, nil
}

// findByURLLocked returns the index of the discovery with the given
// (source, url) pair, or -1. Caller holds the lock.
func (s *JSONStore) findByURLLocked(source types.Source, url string) int {
	for i := range s.discoveries {
		if s.discoveries[i].Source == source && s.discoveries[i].URL == url {
			return i
		}
	}
	return -1
}

func (s *JSONStore) saveLocked() error {
	return writeAtomic(s.path, s.discoveries)
}

// writeAtomic serializes discoveries and commits them with a temp file and
// rename. The target is either fully replaced or left untouched.
func writeAtomic(path string, discoveries []types.Discovery) error {
	if discoveries == nil {
		discoveries = []types.Discovery{}
	}

	data, err := json.MarshalIndent(discoveries, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing discoveries: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing discoveries file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Clean up on error (best effort)
		return fmt.Errorf("committing discoveries file: %w", err)
	}

	return nil
}

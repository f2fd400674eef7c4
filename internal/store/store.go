// Package store persists the discovery queue. The canonical backend is a
// single JSON file written via atomic replace; the Store interface isolates
// callers from that choice so the backend can later move to an embedded
// database without touching them.
//
// Concurrent writers are unsupported: the files are assumed to be owned by
// exactly one daemon process. Two schedule ticks firing at once can race on
// the file; each write is internally consistent (temp file + rename) but the
// last rename wins.
package store

import (
	"errors"
	"time"

	"github.com/openonco/scout/internal/types"
)

var (
	// ErrNotFound is returned when no discovery has the requested ID.
	ErrNotFound = errors.New("discovery not found")

	// ErrAlreadyReviewed is returned when marking an already-reviewed
	// discovery. The pending → reviewed transition is one-way.
	ErrAlreadyReviewed = errors.New("discovery already reviewed")
)

// QueueStatus summarizes the queue. Total == Pending + Reviewed always holds.
type QueueStatus struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Reviewed int `json:"reviewed"`
}

// AddOutcome reports the result of inserting one candidate.
// Duplicate outcomes are not errors: they are the normal dedup signal and
// Discovery is nil for them.
type AddOutcome struct {
	Discovery *types.Discovery
	Duplicate bool
}

// Store is the durable collection of discoveries.
type Store interface {
	// AddDiscovery inserts a candidate as a pending discovery. If the
	// candidate has a URL and a discovery with the same (source, URL)
	// already exists, it returns (nil, nil) without mutating state.
	AddDiscovery(source types.Source, cand types.Candidate) (*types.Discovery, error)

	// AddDiscoveries applies AddDiscovery per item and returns per-item
	// outcomes in input order.
	AddDiscoveries(source types.Source, cands []types.Candidate) ([]AddOutcome, error)

	// Get returns the discovery with the given ID, or ErrNotFound.
	Get(id string) (*types.Discovery, error)

	// All returns every stored discovery in insertion order.
	All() ([]types.Discovery, error)

	// GetUnreviewed returns discoveries with status pending.
	GetUnreviewed() ([]types.Discovery, error)

	// MarkReviewed transitions a discovery from pending to reviewed and
	// stamps ReviewedAt. Reviewing twice returns ErrAlreadyReviewed.
	MarkReviewed(id string) error

	// SetEnrichment attaches a triage extraction to a discovery's metadata.
	SetEnrichment(id string, e *types.Enrichment) error

	// QueueStatus returns current queue counts.
	QueueStatus() (QueueStatus, error)

	// CleanupOld removes discoveries older than maxAge and returns how many
	// were removed. A failed write aborts without partial mutation.
	CleanupOld(maxAge time.Duration) (int, error)
}

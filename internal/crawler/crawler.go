// Package crawler fetches signals from the external sources, deduplicates
// them within a run, classifies relevance, and emits canonical candidates.
// The Runner wraps every crawl in a uniform result envelope so one source's
// failure can never block or crash another's run.
package crawler

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/openonco/scout/internal/types"
)

// Crawler is the capability interface each source implements.
type Crawler interface {
	// Name returns the crawler's unique identifier.
	Name() string

	// Source returns the source this crawler feeds.
	Source() types.Source

	// Enabled reports whether the scheduler should run this crawler.
	Enabled() bool

	// RateLimit returns the outbound request rate cap for this source.
	RateLimit() rate.Limit

	// Crawl fetches and maps raw items into candidates. Individual request
	// failures are recovered internally (partial-result policy); an error
	// return means the whole run failed.
	Crawl(ctx context.Context) ([]types.Candidate, error)
}

// Registry holds the configured crawlers in registration order. It is passed
// explicitly to every consumer; there is no process-wide registry.
type Registry struct {
	mu       sync.RWMutex
	crawlers map[types.Source]Crawler
	order    []types.Source
}

// NewRegistry creates an empty crawler registry.
func NewRegistry() *Registry {
	return &Registry{
		crawlers: make(map[types.Source]Crawler),
	}
}

// Register adds a crawler. Registering the same source twice is an error.
func (r *Registry) Register(c Crawler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	source := c.Source()
	if _, exists := r.crawlers[source]; exists {
		return fmt.Errorf("crawler for source %q already registered", source)
	}

	r.crawlers[source] = c
	r.order = append(r.order, source)
	return nil
}

// Get returns the crawler for a source.
func (r *Registry) Get(source types.Source) (Crawler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.crawlers[source]
	return c, exists
}

// List returns all crawlers in registration order.
func (r *Registry) List() []Crawler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Crawler, 0, len(r.order))
	for _, source := range r.order {
		out = append(out, r.crawlers[source])
	}
	return out
}

// Enabled returns the enabled crawlers in registration order.
func (r *Registry) Enabled() []Crawler {
	var out []Crawler
	for _, c := range r.List() {
		if c.Enabled() {
			out = append(out, c)
		}
	}
	return out
}

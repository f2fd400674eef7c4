package crawler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/openonco/scout/internal/health"
	"github.com/openonco/scout/internal/store"
	"github.com/openonco/scout/internal/types"
)

// Runner executes crawlers inside a failure boundary: it times the run,
// inserts the crawl's output into the store, records health, and converts
// every outcome, panics included, into a structured CrawlResult. Callers
// never observe an error or panic from Run.
type Runner struct {
	store  store.Store
	health *health.Tracker
	logger *zap.Logger
}

// NewRunner creates a runner over the given store and health tracker.
func NewRunner(s store.Store, h *health.Tracker, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{store: s, health: h, logger: logger}
}

// Run executes one crawl and returns its result envelope. The health tracker
// is invoked exactly once per run, success or failure.
func (r *Runner) Run(ctx context.Context, c Crawler) (result *types.CrawlResult) {
	source := c.Source()
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			result = r.fail(source, start, fmt.Errorf("crawler panicked: %v", rec))
		}
	}()

	r.logger.Info("crawl starting", zap.String("source", string(source)))

	cands, err := c.Crawl(ctx)
	if err != nil {
		return r.fail(source, start, err)
	}

	outcomes, err := r.store.AddDiscoveries(source, cands)
	if err != nil {
		return r.fail(source, start, fmt.Errorf("storing discoveries: %w", err))
	}

	added := 0
	for _, o := range outcomes {
		if !o.Duplicate {
			added++
		}
	}

	if err := r.health.RecordSuccess(source); err != nil {
		r.logger.Warn("recording health", zap.String("source", string(source)), zap.Error(err))
	}

	result = &types.CrawlResult{
		Source:   source,
		Success:  true,
		Found:    len(cands),
		Added:    added,
		Duration: time.Since(start),
	}

	r.logger.Info("crawl finished",
		zap.String("source", string(source)),
		zap.Int("found", result.Found),
		zap.Int("added", result.Added),
		zap.Duration("duration", result.Duration))

	return result
}

func (r *Runner) fail(source types.Source, start time.Time, err error) *types.CrawlResult {
	if herr := r.health.RecordError(source, err); herr != nil {
		r.logger.Warn("recording health", zap.String("source", string(source)), zap.Error(herr))
	}

	duration := time.Since(start)
	r.logger.Error("crawl failed",
		zap.String("source", string(source)),
		zap.Duration("duration", duration),
		zap.Error(err))

	return &types.CrawlResult{
		Source:   source,
		Success:  false,
		Duration: duration,
		Err:      err.Error(),
	}
}

package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/openonco/scout/internal/crawler"
	"github.com/openonco/scout/internal/digest"
	"github.com/openonco/scout/internal/store"
	"github.com/openonco/scout/internal/types"
)

// Job keys follow a fixed naming scheme so operators can read Status output:
// one "crawler:<source>" entry per enabled source, plus "digest" and
// "cleanup".
const (
	jobKeyDigest  = "digest"
	jobKeyCleanup = "cleanup"

	jobTimeout = 15 * time.Minute
)

func crawlerJobKey(source types.Source) string {
	return "crawler:" + string(source)
}

// Config holds the cron specs and retention for scheduled operation.
type Config struct {
	// CrawlerCrons maps each source to its cron spec. Sources without an
	// entry are not scheduled (they can still be triggered manually).
	CrawlerCrons map[types.Source]string

	DigestCron  string
	CleanupCron string

	// Retention is the cleanup cutoff age. Zero disables the cleanup job.
	Retention time.Duration
}

// Service wires the crawler registry, digest dispatcher, and store into
// scheduled jobs, and exposes manual triggers for the same operations.
type Service struct {
	sched      *Scheduler
	registry   *crawler.Registry
	runner     *crawler.Runner
	dispatcher *digest.Dispatcher
	store      store.Store
	cfg        Config
	logger     *zap.Logger
}

// NewService creates the scheduling service. The dispatcher may be nil when
// digest delivery is not configured.
func NewService(reg *crawler.Registry, runner *crawler.Runner, dispatcher *digest.Dispatcher, s store.Store, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sched:      New(logger),
		registry:   reg,
		runner:     runner,
		dispatcher: dispatcher,
		store:      s,
		cfg:        cfg,
		logger:     logger.Named("service"),
	}
}

// Schedule registers all configured jobs. It must be called before Start.
func (s *Service) Schedule() error {
	for _, c := range s.registry.Enabled() {
		spec, ok := s.cfg.CrawlerCrons[c.Source()]
		if !ok {
			continue
		}
		c := c
		err := s.sched.AddJob(crawlerJobKey(c.Source()), spec, func() {
			s.scheduledCrawl(c)
		})
		if err != nil {
			return err
		}
	}

	if s.cfg.DigestCron != "" && s.dispatcher != nil {
		err := s.sched.AddJob(jobKeyDigest, s.cfg.DigestCron, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if _, _, _, err := s.dispatcher.Dispatch(ctx); err != nil {
				s.logger.Error("scheduled digest failed", zap.Error(err))
			}
		})
		if err != nil {
			return err
		}
	}

	if s.cfg.CleanupCron != "" && s.cfg.Retention > 0 {
		err := s.sched.AddJob(jobKeyCleanup, s.cfg.CleanupCron, func() {
			removed, err := s.store.CleanupOld(s.cfg.Retention)
			if err != nil {
				s.logger.Error("scheduled cleanup failed", zap.Error(err))
				return
			}
			if removed > 0 {
				s.logger.Info("cleanup removed old discoveries", zap.Int("removed", removed))
			}
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// scheduledCrawl runs one crawler and follows every successful run with a
// digest dispatch, so fresh findings reach reviewers without waiting for the
// next digest tick and a previously failed delivery gets retried while items
// are still pending. The dispatcher's notify threshold does the suppression.
func (s *Service) scheduledCrawl(c crawler.Crawler) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	result := s.runner.Run(ctx, c)
	s.logger.Info("scheduled crawl finished", zap.String("summary", result.Summary()))

	if result.Success && s.dispatcher != nil {
		if _, _, _, err := s.dispatcher.Dispatch(ctx); err != nil {
			s.logger.Error("post-crawl digest failed", zap.Error(err))
		}
	}
}

// Start begins scheduled operation.
func (s *Service) Start() { s.sched.Start() }

// Stop halts scheduling and waits for running jobs.
func (s *Service) Stop() { s.sched.Stop() }

// Status reports the scheduler state.
func (s *Service) Status() Status { return s.sched.Status() }

// TriggerCrawler runs one source's crawler immediately, outside its
// schedule.
func (s *Service) TriggerCrawler(ctx context.Context, source types.Source) (*types.CrawlResult, error) {
	c, exists := s.registry.Get(source)
	if !exists {
		return nil, fmt.Errorf("no crawler registered for source %q", source)
	}
	return s.runner.Run(ctx, c), nil
}

// RunAllCrawlersNow runs every enabled crawler sequentially in registration
// order and returns per-crawler results. Failures are carried in the results
// rather than aborting the sweep.
func (s *Service) RunAllCrawlersNow(ctx context.Context) []*types.CrawlResult {
	var results []*types.CrawlResult
	for _, c := range s.registry.Enabled() {
		results = append(results, s.runner.Run(ctx, c))
	}
	return results
}

// TriggerDigest dispatches the digest immediately. The minimum-notify
// threshold still applies.
func (s *Service) TriggerDigest(ctx context.Context) (*digest.Digest, bool, error) {
	if s.dispatcher == nil {
		return nil, false, fmt.Errorf("digest delivery not configured")
	}
	d, _, sent, err := s.dispatcher.Dispatch(ctx)
	return d, sent, err
}

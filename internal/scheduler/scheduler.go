// Package scheduler drives the pipeline on cron schedules: per-source crawl
// jobs, the digest dispatch, and queue cleanup, each registered under a
// stable job key.
package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobInfo describes one registered job.
type JobInfo struct {
	Key  string
	Spec string
	Next time.Time // zero until the scheduler is started
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running    bool
	ActiveJobs []JobInfo
}

// Scheduler wraps a cron runner with keyed job registration.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	specs   map[string]string
	running bool
	logger  *zap.Logger
}

// New creates a stopped scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:    cron.New(),
		entries: make(map[string]cron.EntryID),
		specs:   make(map[string]string),
		logger:  logger.Named("scheduler"),
	}
}

// AddJob registers run under key on the given cron spec. Registering an
// existing key replaces the previous schedule.
func (s *Scheduler) AddJob(key, spec string, run func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, exists := s.entries[key]; exists {
		s.cron.Remove(old)
	}

	id, err := s.cron.AddFunc(spec, run)
	if err != nil {
		return fmt.Errorf("scheduling %s (%q): %w", key, spec, err)
	}
	s.entries[key] = id
	s.specs[key] = spec

	s.logger.Debug("job registered", zap.String("key", key), zap.String("spec", spec))
	return nil
}

// RemoveJob unregisters the job under key. Unknown keys are a no-op.
func (s *Scheduler) RemoveJob(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, exists := s.entries[key]; exists {
		s.cron.Remove(id)
		delete(s.entries, key)
		delete(s.specs, key)
	}
}

// Start begins firing jobs. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.entries)))
}

// Stop halts scheduling, unregisters every job, and blocks until in-flight
// jobs finish. After Stop returns there are zero active jobs; jobs must be
// re-registered before the next Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	for key, id := range s.entries {
		s.cron.Remove(id)
		delete(s.entries, key)
		delete(s.specs, key)
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Status reports whether the scheduler runs and its jobs sorted by key.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{Running: s.running}
	for key, id := range s.entries {
		info := JobInfo{Key: key, Spec: s.specs[key]}
		if s.running {
			info.Next = s.cron.Entry(id).Next
		}
		status.ActiveJobs = append(status.ActiveJobs, info)
	}
	sort.Slice(status.ActiveJobs, func(i, j int) bool {
		return status.ActiveJobs[i].Key < status.ActiveJobs[j].Key
	})
	return status
}

package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler manages periodic job execution using cron expressions.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   map[string]*jobEntry
	order  []string
	logger *slog.Logger
	cancel context.CancelFunc
}

// jobEntry pairs a job with its overlap guard. The guard uses TryLock,
// which is atomic, so there is no race between check and acquire.
type jobEntry struct {
	job     Job
	running sync.Mutex
}

// NewScheduler creates a scheduler. Jobs must be added before Start().
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		jobs:   make(map[string]*jobEntry),
		logger: logger,
	}
}

// AddJob registers a job. Returns an error on duplicate names.
func (s *Scheduler) AddJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}
	s.jobs[name] = &jobEntry{job: j}
	s.order = append(s.order, name)
	return nil
}

// Start begins executing registered jobs on their schedules. Returns
// an error if any job has an invalid schedule expression.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	s.cron = cron.New(cron.WithParser(parser))

	for _, name := range s.order {
		entry := s.jobs[name]
		if _, err := s.cron.AddFunc(entry.job.Schedule(), func() {
			s.runJob(ctx, entry)
		}); err != nil {
			cancel()
			return fmt.Errorf("cron: invalid schedule for job %q: %w", name, err)
		}
	}

	s.cron.Start()
	s.logger.Info("cron: scheduler started", "jobs", len(s.order))
	return nil
}

// runJob executes one tick of a job, skipping it when the previous
// tick is still running.
func (s *Scheduler) runJob(ctx context.Context, entry *jobEntry) {
	name := entry.job.Name()
	if !entry.running.TryLock() {
		s.logger.Warn("cron: job still running, skipping tick", "job", name)
		return
	}
	defer entry.running.Unlock()

	s.logger.Debug("cron: job started", "job", name)
	if err := entry.job.Run(ctx); err != nil {
		s.logger.Error("cron: job failed", "job", name, "error", err)
		return
	}
	s.logger.Debug("cron: job completed", "job", name)
}

// Stop gracefully shuts down the scheduler, waiting for in-flight jobs.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.logger.Info("cron: scheduler stopped")
	}
	return nil
}

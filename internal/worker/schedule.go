package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DukeRupert/datadeck/internal/repository"
	"github.com/robfig/cron/v3"
)

// ScheduleConfig controls the queue maintenance tasks.
type ScheduleConfig struct {
	// RecoverSpec is the cron expression for stale job recovery.
	RecoverSpec string
	// PurgeSpec is the cron expression for purging finished jobs.
	PurgeSpec string
	// Retention is how long completed and failed jobs are kept.
	Retention time.Duration
	// StaleJobThreshold is passed to stale job recovery.
	StaleJobThreshold time.Duration
	// TaskTimeout bounds a single maintenance run.
	TaskTimeout time.Duration
}

// DefaultScheduleConfig recovers every five minutes and purges nightly,
// keeping a week of finished jobs.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		RecoverSpec:       "*/5 * * * *",
		PurgeSpec:         "30 3 * * *",
		Retention:         7 * 24 * time.Hour,
		StaleJobThreshold: 10 * time.Minute,
		TaskTimeout:       time.Minute,
	}
}

// Scheduler runs periodic maintenance on the job queue.
type Scheduler struct {
	cron    *cron.Cron
	queries *repository.Queries
	config  ScheduleConfig
	logger  *slog.Logger
}

// NewScheduler registers the maintenance tasks. Invalid cron expressions are
// reported here rather than at Start.
func NewScheduler(queries *repository.Queries, config ScheduleConfig, logger *slog.Logger) (*Scheduler, error) {
	if config.TaskTimeout <= 0 {
		config.TaskTimeout = time.Minute
	}
	s := &Scheduler{
		cron:    cron.New(),
		queries: queries,
		config:  config,
		logger:  logger,
	}

	for _, task := range []struct {
		name string
		spec string
		run  func(context.Context) (int64, error)
	}{
		{"recover_stale_jobs", config.RecoverSpec, s.RecoverStale},
		{"purge_finished_jobs", config.PurgeSpec, s.PurgeFinished},
	} {
		if task.spec == "" {
			continue
		}
		if _, err := s.cron.AddFunc(task.spec, s.wrap(task.name, task.run)); err != nil {
			return nil, fmt.Errorf("schedule %s: %w", task.name, err)
		}
	}
	return s, nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Job maintenance scheduled",
		"tasks", len(s.cron.Entries()),
		"retention", s.config.Retention,
	)
}

// Stop stops scheduling and waits for running tasks, up to ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("Job maintenance did not finish before shutdown")
	}
}

// RecoverStale resets jobs stuck in running back to pending.
func (s *Scheduler) RecoverStale(ctx context.Context) (int64, error) {
	return s.queries.RecoverStaleJobs(ctx, s.config.StaleJobThreshold.Seconds())
}

// PurgeFinished deletes completed and failed jobs older than the retention.
func (s *Scheduler) PurgeFinished(ctx context.Context) (int64, error) {
	if s.config.Retention <= 0 {
		return 0, nil
	}
	return s.queries.PurgeFinishedJobs(ctx, s.config.Retention.Seconds())
}

func (s *Scheduler) wrap(name string, run func(context.Context) (int64, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.TaskTimeout)
		defer cancel()

		start := time.Now()
		n, err := run(ctx)
		if err != nil {
			s.logger.Error("Job maintenance failed", "task", name, "error", err)
			return
		}
		s.logger.Info("Job maintenance completed", "task", name, "rows", n, "duration", time.Since(start))
	}
}

package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/garnizeh/terapia/pkg/repository"
)

// Scheduler enqueues a job of one type on a fixed interval. A tick is skipped
// while an earlier job of that type is still queued, running or retrying.
type Scheduler struct {
	repo     repository.JobRepo
	jobType  string
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(repo repository.JobRepo, jobType string, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{repo: repo, jobType: jobType, interval: interval, logger: logger}
}

// Run enqueues once immediately and then on every tick until ctx ends.
func (s *Scheduler) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.enqueue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.enqueue(ctx)
		}
	}
}

func (s *Scheduler) enqueue(ctx context.Context) {
	pending, err := s.repo.CountPending(ctx, s.jobType)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("scheduler: pending check failed", "type", s.jobType, "err", err)
		}
		return
	}
	if pending > 0 {
		s.logger.Debug("scheduler: previous job pending, skipping", "type", s.jobType, "pending", pending)
		return
	}

	id, err := Enqueue(ctx, s.repo, s.jobType, struct{}{}, 10, 3)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("scheduler: enqueue failed", "type", s.jobType, "err", err)
		}
		return
	}
	s.logger.Debug("scheduler: enqueued", "type", s.jobType, "job_id", id)
}

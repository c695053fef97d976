package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/garnizeh/terapia/internal/metrics"
	"github.com/garnizeh/terapia/pkg/models"
	"github.com/garnizeh/terapia/pkg/repository"
)

type WorkerPool struct {
	repo        repository.JobRepo
	handlers    map[string]Handler
	logger      *slog.Logger
	workerCount int
	poll        time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewWorkerPool(repo repository.JobRepo, handlers map[string]Handler, logger *slog.Logger, workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{repo: repo, handlers: handlers, logger: logger, workerCount: workerCount, poll: 500 * time.Millisecond, stop: make(chan struct{})}
}

// SetPollInterval changes how long idle workers wait before looking again.
func (p *WorkerPool) SetPollInterval(d time.Duration) {
	if d > 0 {
		p.poll = d
	}
}

// Start launches the worker goroutines
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop signals workers to stop and waits for them. It is safe to call more
// than once.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			p.logger.Info("worker stopping", "id", id)
			return
		case <-ctx.Done():
			p.logger.Info("context canceled, worker exiting", "id", id)
			return
		default:
		}

		job, err := p.repo.FetchNext(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Error("fetch job", "err", err)
			}
			p.wait(ctx, 2*p.poll)
			continue
		}
		if job == nil {
			p.wait(ctx, p.poll)
			continue
		}
		p.process(ctx, job)
	}
}

// wait sleeps for d unless the pool is stopped first.
func (p *WorkerPool) wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-p.stop:
	case <-ctx.Done():
	}
}

func (p *WorkerPool) process(ctx context.Context, job *models.BackgroundJob) {
	h, ok := p.handlers[job.Type]
	if !ok {
		job.Status = StatusFailed
		job.LastError = "no handler"
		metrics.JobsProcessed.WithLabelValues(job.Type, "unhandled").Inc()
		if err := p.repo.MoveToDeadLetter(ctx, job); err != nil {
			p.logger.Error("move to dead letter", "job_id", job.ID, "err", err)
		}
		return
	}

	err := p.run(ctx, h, job)
	if err == nil {
		job.Status = StatusDone
		job.LastError = ""
		metrics.JobsProcessed.WithLabelValues(job.Type, "done").Inc()
		if upErr := p.repo.UpdateJob(ctx, job); upErr != nil {
			p.logger.Error("update finished job", "job_id", job.ID, "err", upErr)
		}
		return
	}

	job.Attempts++
	job.LastError = err.Error()
	if job.Attempts >= job.MaxAttempts {
		job.Status = StatusFailed
		metrics.JobsProcessed.WithLabelValues(job.Type, "dead_letter").Inc()
		p.logger.Error("job failed permanently", "job_id", job.ID, "type", job.Type, "attempts", job.Attempts, "err", err)
		if mvErr := p.repo.MoveToDeadLetter(ctx, job); mvErr != nil {
			p.logger.Error("move to dead letter", "job_id", job.ID, "err", mvErr)
		}
		return
	}

	t := time.Now().Add(BackoffDuration(job.Attempts))
	job.NextTryAt = &t
	job.Status = StatusRetry
	metrics.JobsProcessed.WithLabelValues(job.Type, "retry").Inc()
	p.logger.Warn("job failed, retrying", "job_id", job.ID, "type", job.Type, "attempt", job.Attempts, "next_try_at", t, "err", err)
	if upErr := p.repo.UpdateJob(ctx, job); upErr != nil {
		p.logger.Error("update job for retry", "job_id", job.ID, "err", upErr)
	}
}

// run calls h, turning a panic into an error.
func (p *WorkerPool) run(ctx context.Context, h Handler, job *models.BackgroundJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, job)
}

// Enqueue convenience helper that creates a job and persists it
func (p *WorkerPool) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (string, error) {
	return Enqueue(ctx, p.repo, typ, payload, priority, maxAttempts)
}

// Enqueue persists a new job of typ for immediate execution.
func Enqueue(ctx context.Context, repo repository.JobRepo, typ string, payload any, priority int, maxAttempts int) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	j := &models.BackgroundJob{Type: typ, Payload: b, Priority: priority, MaxAttempts: maxAttempts, ScheduledAt: time.Now()}
	return repo.Enqueue(ctx, j)
}

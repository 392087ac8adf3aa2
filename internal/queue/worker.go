package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/applypilot/applypilot/internal/models"
)

// Handler executes one claimed job. Returning an error consumes an attempt.
type Handler func(ctx context.Context, job *models.QueueJob) error

// Worker polls the queue on a fixed interval and dispatches claimed rows to
// the handler registered for their type.
type Worker struct {
	queue    *Queue
	handlers map[string]Handler
	log      *zap.SugaredLogger

	pollInterval time.Duration
	batchSize    int
	jobTimeout   time.Duration
}

func NewWorker(q *Queue, log *zap.Logger) *Worker {
	return &Worker{
		queue:        q,
		handlers:     make(map[string]Handler),
		log:          log.Sugar(),
		pollInterval: q.cfg.PollInterval,
		batchSize:    q.cfg.BatchSize,
		jobTimeout:   5 * time.Minute,
	}
}

func (w *Worker) Register(jobType string, h Handler) {
	w.handlers[jobType] = h
}

// Run blocks until the context is canceled, processing one batch per tick.
// The first tick runs immediately on startup.
func (w *Worker) Run(ctx context.Context) {
	w.log.Infow("worker.start", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker.stop")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	jobs, err := w.queue.Claim(ctx, w.batchSize)
	if err != nil {
		w.log.Errorw("worker.claim.error", "error", err)
		return
	}
	for i := range jobs {
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, &jobs[i])
	}
}

// process runs a single job with a per-job timeout and records the outcome.
func (w *Worker) process(ctx context.Context, job *models.QueueJob) {
	handler, ok := w.handlers[job.Type]
	if !ok {
		// Unknown types are terminal immediately; retrying can't help.
		job.Attempts = job.MaxAttempts - 1
		if err := w.queue.MarkFailed(ctx, job, fmt.Errorf("no handler registered for type %s", job.Type)); err != nil {
			w.log.Errorw("worker.mark_failed.error", "job_id", job.ID, "error", err)
		}
		return
	}

	start := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	err := handler(jobCtx, job)
	cancel()

	if err != nil {
		if mErr := w.queue.MarkFailed(ctx, job, err); mErr != nil {
			w.log.Errorw("worker.mark_failed.error", "job_id", job.ID, "error", mErr)
		}
		return
	}
	if err := w.queue.MarkCompleted(ctx, job); err != nil {
		w.log.Errorw("worker.mark_completed.error", "job_id", job.ID, "error", err)
		return
	}
	w.log.Infow("worker.job.done", "job_id", job.ID, "type", job.Type,
		"elapsed_ms", time.Since(start).Milliseconds())
}

package queue

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/applypilot/applypilot/internal/models"
	"github.com/applypilot/applypilot/internal/services"
)

// HandlerSet binds the queue job types to the services that execute them.
type HandlerSet struct {
	Queue   *Queue
	Scan    *services.ScanService
	Matcher *services.MatcherService
	Resume  *services.ResumeService
	Notify  *services.NotificationService

	log *zap.SugaredLogger
}

func NewHandlerSet(q *Queue, scan *services.ScanService, matcher *services.MatcherService,
	resume *services.ResumeService, notify *services.NotificationService, log *zap.Logger) *HandlerSet {
	return &HandlerSet{
		Queue:   q,
		Scan:    scan,
		Matcher: matcher,
		Resume:  resume,
		Notify:  notify,
		log:     log.Sugar(),
	}
}

// Register wires every job type into the worker.
func (h *HandlerSet) Register(w *Worker) {
	w.Register(models.JobTypeScan, h.handleScan)
	w.Register(models.JobTypeMatchJobs, h.handleMatch)
	w.Register(models.JobTypeCustomizeResume, h.handleCustomize)
	w.Register(models.JobTypeSendNotification, h.handleNotify)
	w.Register(models.JobTypeCleanup, h.handleCleanup)
}

func (h *HandlerSet) handleScan(ctx context.Context, job *models.QueueJob) error {
	if job.UserID == nil {
		return fmt.Errorf("scan job %d has no user", job.ID)
	}
	matches, err := h.Scan.Run(ctx, *job.UserID)
	if err != nil {
		return err
	}
	// New matches mean a digest is due.
	if matches > 0 {
		if _, _, err := h.Queue.EnqueueUnique(ctx, models.JobTypeSendNotification, nil, nil, 1); err != nil {
			h.log.Errorw("queue.scan.enqueue_notify.error", "error", err)
		}
	}
	return nil
}

func (h *HandlerSet) handleMatch(ctx context.Context, job *models.QueueJob) error {
	if job.UserID != nil {
		_, err := h.Matcher.MatchForUser(ctx, *job.UserID)
		return err
	}
	return h.Matcher.MatchAll(ctx)
}

func (h *HandlerSet) handleCustomize(ctx context.Context, job *models.QueueJob) error {
	if job.UserID == nil {
		return fmt.Errorf("customize job %d has no user", job.ID)
	}
	jobID, err := payloadUint(job, "job_id")
	if err != nil {
		return err
	}
	_, err = h.Resume.Customize(ctx, *job.UserID, jobID)
	return err
}

func (h *HandlerSet) handleNotify(ctx context.Context, _ *models.QueueJob) error {
	_, err := h.Notify.SendDigests(ctx)
	return err
}

func (h *HandlerSet) handleCleanup(ctx context.Context, _ *models.QueueJob) error {
	_, err := h.Queue.Cleanup(ctx)
	return err
}

// payloadUint reads a numeric payload field. JSON numbers decode as float64.
func payloadUint(job *models.QueueJob, key string) (uint, error) {
	v, ok := job.Payload[key]
	if !ok {
		return 0, fmt.Errorf("job %d payload missing %q", job.ID, key)
	}
	switch n := v.(type) {
	case float64:
		return uint(n), nil
	case int:
		return uint(n), nil
	default:
		return 0, fmt.Errorf("job %d payload field %q is not a number", job.ID, key)
	}
}

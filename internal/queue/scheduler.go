package queue

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/applypilot/applypilot/internal/models"
)

// Scheduler enqueues the periodic work: a SCAN per auto-apply user, a global
// MATCH_JOBS pass, and queue CLEANUP. All enqueues are deduplicated against
// still-active rows, so a slow cycle never piles up duplicates.
type Scheduler struct {
	db    *gorm.DB
	queue *Queue
	log   *zap.SugaredLogger

	scanInterval  time.Duration
	matchInterval time.Duration
}

func NewScheduler(db *gorm.DB, q *Queue, log *zap.Logger) *Scheduler {
	return &Scheduler{
		db:            db,
		queue:         q,
		log:           log.Sugar(),
		scanInterval:  q.cfg.ScanInterval,
		matchInterval: q.cfg.MatchInterval,
	}
}

// Run blocks until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Infow("scheduler.start", "scan_interval", s.scanInterval, "match_interval", s.matchInterval)

	scanTicker := time.NewTicker(s.scanInterval)
	matchTicker := time.NewTicker(s.matchInterval)
	// Cleanup cadence is not configurable; hourly is frequent enough for a
	// retention window measured in days.
	cleanupTicker := time.NewTicker(time.Hour)
	defer scanTicker.Stop()
	defer matchTicker.Stop()
	defer cleanupTicker.Stop()

	s.EnqueueScans(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler.stop")
			return
		case <-scanTicker.C:
			s.EnqueueScans(ctx)
		case <-matchTicker.C:
			s.EnqueueMatch(ctx)
		case <-cleanupTicker.C:
			s.EnqueueCleanup(ctx)
		}
	}
}

// EnqueueScans queues one SCAN per user with auto-apply enabled.
func (s *Scheduler) EnqueueScans(ctx context.Context) {
	var users []models.User
	if err := s.db.WithContext(ctx).Where("auto_apply_enabled = ?", true).Find(&users).Error; err != nil {
		s.log.Errorw("scheduler.scan.list_users.error", "error", err)
		return
	}
	queued := 0
	for i := range users {
		uid := users[i].ID
		_, created, err := s.queue.EnqueueUnique(ctx, models.JobTypeScan, &uid, nil, 5)
		if err != nil {
			s.log.Errorw("scheduler.scan.enqueue.error", "user_id", uid, "error", err)
			continue
		}
		if created {
			queued++
		}
	}
	s.log.Infow("scheduler.scan.cycle", "users", len(users), "queued", queued)
}

// EnqueueMatch queues a global matching pass.
func (s *Scheduler) EnqueueMatch(ctx context.Context) {
	if _, _, err := s.queue.EnqueueUnique(ctx, models.JobTypeMatchJobs, nil, nil, 3); err != nil {
		s.log.Errorw("scheduler.match.enqueue.error", "error", err)
	}
}

// EnqueueCleanup queues a retention sweep.
func (s *Scheduler) EnqueueCleanup(ctx context.Context) {
	if _, _, err := s.queue.EnqueueUnique(ctx, models.JobTypeCleanup, nil, nil, 0); err != nil {
		s.log.Errorw("scheduler.cleanup.enqueue.error", "error", err)
	}
}

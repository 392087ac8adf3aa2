// Package queue implements the database-backed task queue: rows with a
// lifecycle status (PENDING → PROCESSING → COMPLETED/FAILED) claimed by a
// polling worker via a compare-and-swap status transition.
package queue

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/config"
	"github.com/applypilot/applypilot/internal/models"
)

type Queue struct {
	db  *gorm.DB
	cfg config.QueueConfig
	log *zap.SugaredLogger
}

var activeStatuses = []string{models.QueueStatusPending, models.QueueStatusProcessing}

func New(db *gorm.DB, cfg config.QueueConfig, log *zap.Logger) *Queue {
	return &Queue{db: db, cfg: cfg, log: log.Sugar()}
}

// Enqueue creates a PENDING row scheduled for immediate pickup.
func (q *Queue) Enqueue(ctx context.Context, jobType string, userID *uint, payload map[string]any, priority int) (*models.QueueJob, error) {
	job := &models.QueueJob{
		Type:        jobType,
		Status:      models.QueueStatusPending,
		Priority:    priority,
		MaxAttempts: q.cfg.MaxAttempts,
		UserID:      userID,
		Payload:     datatypes.JSONMap(payload),
		ScheduledAt: time.Now(),
	}
	if err := q.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, common.WrapError(err, "enqueue "+jobType)
	}
	q.log.Infow("queue.enqueue", "job_id", job.ID, "type", jobType, "priority", priority)
	return job, nil
}

// EnqueueUnique enqueues unless an active (PENDING or PROCESSING) row of the
// same type already exists for the same user. Returns the existing row and
// false when deduplicated.
func (q *Queue) EnqueueUnique(ctx context.Context, jobType string, userID *uint, payload map[string]any, priority int) (*models.QueueJob, bool, error) {
	var existing models.QueueJob
	err := q.scopeActive(ctx, jobType, userID).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, false, common.WrapError(err, "check active "+jobType)
	}
	job, err := q.Enqueue(ctx, jobType, userID, payload, priority)
	if err != nil {
		return nil, false, err
	}
	return q.keepOldestActive(ctx, job, jobType, userID)
}

// keepOldestActive closes the check-then-insert window: two concurrent callers
// can both miss the pre-check and insert. Both re-check after inserting and
// agree on the lowest-id active row; the loser removes its own row.
func (q *Queue) keepOldestActive(ctx context.Context, job *models.QueueJob, jobType string, userID *uint) (*models.QueueJob, bool, error) {
	var oldest models.QueueJob
	if err := q.scopeActive(ctx, jobType, userID).Order("id ASC").First(&oldest).Error; err != nil {
		// Row already claimed and finished, or the lookup failed; the insert
		// itself succeeded either way.
		return job, true, nil
	}
	if oldest.ID == job.ID {
		return job, true, nil
	}
	if err := q.db.WithContext(ctx).Delete(&models.QueueJob{}, job.ID).Error; err != nil {
		return nil, false, common.WrapError(err, "resolve duplicate "+jobType)
	}
	q.log.Infow("queue.dedupe", "job_id", job.ID, "kept_job_id", oldest.ID, "type", jobType)
	return &oldest, false, nil
}

func (q *Queue) scopeActive(ctx context.Context, jobType string, userID *uint) *gorm.DB {
	tx := q.db.WithContext(ctx).Model(&models.QueueJob{}).
		Where("type = ? AND status IN ?", jobType, activeStatuses)
	if userID != nil {
		return tx.Where("user_id = ?", *userID)
	}
	return tx.Where("user_id IS NULL")
}

// HasActive reports whether a PENDING/PROCESSING row of the type exists for the user.
func (q *Queue) HasActive(ctx context.Context, jobType string, userID uint) (bool, error) {
	var count int64
	err := q.scopeActive(ctx, jobType, &userID).Count(&count).Error
	return count > 0, err
}

// Claim selects up to batch due PENDING rows (priority desc, then FIFO) and
// transitions each to PROCESSING. The transition is a conditional UPDATE on
// (id, status=PENDING), so two workers can never claim the same row.
func (q *Queue) Claim(ctx context.Context, batch int) ([]models.QueueJob, error) {
	now := time.Now()
	var candidates []models.QueueJob
	err := q.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", models.QueueStatusPending, now).
		Order("priority DESC, created_at ASC").
		Limit(batch).
		Find(&candidates).Error
	if err != nil {
		return nil, common.WrapError(err, "select pending jobs")
	}

	claimed := make([]models.QueueJob, 0, len(candidates))
	for i := range candidates {
		job := &candidates[i]
		res := q.db.WithContext(ctx).Model(&models.QueueJob{}).
			Where("id = ? AND status = ?", job.ID, models.QueueStatusPending).
			Updates(map[string]any{
				"status":     models.QueueStatusProcessing,
				"started_at": now,
			})
		if res.Error != nil {
			return claimed, common.WrapError(res.Error, "claim job")
		}
		if res.RowsAffected == 0 {
			// Another worker won the row.
			continue
		}
		job.Status = models.QueueStatusProcessing
		job.StartedAt = &now
		claimed = append(claimed, *job)
	}
	return claimed, nil
}

// MarkCompleted finishes a job successfully.
func (q *Queue) MarkCompleted(ctx context.Context, job *models.QueueJob) error {
	now := time.Now()
	err := q.db.WithContext(ctx).Model(&models.QueueJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"status":      models.QueueStatusCompleted,
			"finished_at": now,
		}).Error
	if err != nil {
		return common.WrapError(err, "mark completed")
	}
	q.log.Infow("queue.completed", "job_id", job.ID, "type", job.Type, "attempts", job.Attempts)
	return nil
}

// MarkFailed records a handler failure: the attempt counter increments and the
// row either goes back to PENDING with a linear backoff delay or, once
// attempts reach max_attempts, terminates as FAILED.
func (q *Queue) MarkFailed(ctx context.Context, job *models.QueueJob, cause error) error {
	attempts := job.Attempts + 1
	updates := map[string]any{
		"attempts":      attempts,
		"error_message": cause.Error(),
	}
	terminal := attempts >= job.MaxAttempts
	if terminal {
		updates["status"] = models.QueueStatusFailed
		updates["finished_at"] = time.Now()
	} else {
		updates["status"] = models.QueueStatusPending
		updates["started_at"] = nil
		updates["scheduled_at"] = time.Now().Add(q.cfg.RetryBackoff * time.Duration(attempts))
	}
	err := q.db.WithContext(ctx).Model(&models.QueueJob{}).
		Where("id = ?", job.ID).
		Updates(updates).Error
	if err != nil {
		return common.WrapError(err, "mark failed")
	}
	if terminal {
		q.log.Warnw("queue.failed", "job_id", job.ID, "type", job.Type, "attempts", attempts, "error", cause)
	} else {
		q.log.Infow("queue.retry", "job_id", job.ID, "type", job.Type, "attempts", attempts, "error", cause)
	}
	return nil
}

// Retry puts a FAILED row owned by the user back to PENDING with a fresh
// attempt budget.
func (q *Queue) Retry(ctx context.Context, jobID, userID uint) (*models.QueueJob, error) {
	res := q.db.WithContext(ctx).Model(&models.QueueJob{}).
		Where("id = ? AND user_id = ? AND status = ?", jobID, userID, models.QueueStatusFailed).
		Updates(map[string]any{
			"status":        models.QueueStatusPending,
			"attempts":      0,
			"error_message": "",
			"started_at":    nil,
			"finished_at":   nil,
			"scheduled_at":  time.Now(),
		})
	if res.Error != nil {
		return nil, common.WrapError(res.Error, "retry job")
	}
	if res.RowsAffected == 0 {
		return nil, common.NotFoundError("no failed job with that id")
	}
	var job models.QueueJob
	if err := q.db.WithContext(ctx).First(&job, jobID).Error; err != nil {
		return nil, err
	}
	q.log.Infow("queue.requeued", "job_id", jobID)
	return &job, nil
}

// Cancel marks a still-PENDING row owned by the user as FAILED so cleanup
// reaps it. Rows already claimed cannot be canceled.
func (q *Queue) Cancel(ctx context.Context, jobID, userID uint) (*models.QueueJob, error) {
	res := q.db.WithContext(ctx).Model(&models.QueueJob{}).
		Where("id = ? AND user_id = ? AND status = ?", jobID, userID, models.QueueStatusPending).
		Updates(map[string]any{
			"status":        models.QueueStatusFailed,
			"error_message": "canceled by user",
			"finished_at":   time.Now(),
		})
	if res.Error != nil {
		return nil, common.WrapError(res.Error, "cancel job")
	}
	if res.RowsAffected == 0 {
		// Unknown ids (including someone else's jobs) are a 404; an existing
		// row in the wrong state is a 409.
		var n int64
		err := q.db.WithContext(ctx).Model(&models.QueueJob{}).
			Where("id = ? AND user_id = ?", jobID, userID).
			Count(&n).Error
		if err != nil {
			return nil, common.WrapError(err, "cancel job")
		}
		if n == 0 {
			return nil, common.NotFoundError("no job with that id")
		}
		return nil, common.ConflictError("job is not pending")
	}
	var job models.QueueJob
	if err := q.db.WithContext(ctx).First(&job, jobID).Error; err != nil {
		return nil, err
	}
	q.log.Infow("queue.canceled", "job_id", jobID)
	return &job, nil
}

// Cleanup deletes terminal rows older than the retention window and returns
// how many were removed.
func (q *Queue) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-q.cfg.Retention)
	res := q.db.WithContext(ctx).
		Where("status IN ? AND finished_at < ?",
			[]string{models.QueueStatusCompleted, models.QueueStatusFailed}, cutoff).
		Delete(&models.QueueJob{})
	if res.Error != nil {
		return 0, common.WrapError(res.Error, "cleanup queue")
	}
	if res.RowsAffected > 0 {
		q.log.Infow("queue.cleanup", "deleted", res.RowsAffected, "cutoff", cutoff)
	}
	return res.RowsAffected, nil
}

// StatusCounts returns row counts per status, optionally scoped to one user.
func (q *Queue) StatusCounts(ctx context.Context, userID *uint) (map[string]int64, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	tx := q.db.WithContext(ctx).Model(&models.QueueJob{}).
		Select("status, count(*) as n").
		Group("status")
	if userID != nil {
		tx = tx.Where("user_id = ?", *userID)
	}
	if err := tx.Scan(&rows).Error; err != nil {
		return nil, common.WrapError(err, "count queue status")
	}
	counts := map[string]int64{
		models.QueueStatusPending:    0,
		models.QueueStatusProcessing: 0,
		models.QueueStatusCompleted:  0,
		models.QueueStatusFailed:     0,
	}
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}

// Recent returns the newest rows for a user.
func (q *Queue) Recent(ctx context.Context, userID uint, limit int) ([]models.QueueJob, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	var jobs []models.QueueJob
	err := q.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

package queue

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/config"
	"github.com/applypilot/applypilot/internal/database"
	"github.com/applypilot/applypilot/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "queue.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func testQueueConfig() config.QueueConfig {
	return config.QueueConfig{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    10,
		MaxAttempts:  3,
		RetryBackoff: time.Minute,
		Retention:    7 * 24 * time.Hour,
	}
}

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	return New(newTestDB(t), testQueueConfig(), zap.NewNop())
}

func TestEnqueueCreatesPendingRow(t *testing.T) {
	q := newTestQueue(t)
	uid := uint(1)

	job, err := q.Enqueue(context.Background(), models.JobTypeScan, &uid, map[string]any{"k": "v"}, 5)
	require.NoError(t, err)

	assert.Equal(t, models.QueueStatusPending, job.Status)
	assert.Equal(t, 5, job.Priority)
	assert.Equal(t, 3, job.MaxAttempts)
	assert.Equal(t, 0, job.Attempts)
	require.NotNil(t, job.UserID)
	assert.Equal(t, uid, *job.UserID)
}

func TestClaimOrdersByPriorityThenFIFO(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	low, err := q.Enqueue(ctx, models.JobTypeCleanup, nil, nil, 0)
	require.NoError(t, err)
	firstMid, err := q.Enqueue(ctx, models.JobTypeMatchJobs, nil, nil, 3)
	require.NoError(t, err)
	secondMid, err := q.Enqueue(ctx, models.JobTypeMatchJobs, nil, nil, 3)
	require.NoError(t, err)
	high, err := q.Enqueue(ctx, models.JobTypeScan, nil, nil, 9)
	require.NoError(t, err)

	claimed, err := q.Claim(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 4)

	assert.Equal(t, high.ID, claimed[0].ID)
	assert.Equal(t, firstMid.ID, claimed[1].ID)
	assert.Equal(t, secondMid.ID, claimed[2].ID)
	assert.Equal(t, low.ID, claimed[3].ID)
	for _, j := range claimed {
		assert.Equal(t, models.QueueStatusProcessing, j.Status)
		assert.NotNil(t, j.StartedAt)
	}
}

func TestClaimSkipsFutureScheduledRows(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	future := models.QueueJob{
		Type:        models.JobTypeScan,
		Status:      models.QueueStatusPending,
		MaxAttempts: 3,
		ScheduledAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, q.db.Create(&future).Error)

	claimed, err := q.Claim(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestClaimIsExclusive(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, models.JobTypeScan, nil, nil, 0)
	require.NoError(t, err)

	first, err := q.Claim(ctx, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := q.Claim(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestMarkFailedRetriesWithBackoffThenTerminates(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, models.JobTypeScan, nil, nil, 0)
	require.NoError(t, err)

	// First failure: back to PENDING, delayed by one backoff unit.
	require.NoError(t, q.MarkFailed(ctx, job, errors.New("boom")))
	var row models.QueueJob
	require.NoError(t, q.db.First(&row, job.ID).Error)
	assert.Equal(t, models.QueueStatusPending, row.Status)
	assert.Equal(t, 1, row.Attempts)
	assert.Equal(t, "boom", row.ErrorMessage)
	assert.True(t, row.ScheduledAt.After(time.Now().Add(30*time.Second)))

	// Second failure: still retrying, longer delay.
	require.NoError(t, q.MarkFailed(ctx, &row, errors.New("boom again")))
	require.NoError(t, q.db.First(&row, job.ID).Error)
	assert.Equal(t, models.QueueStatusPending, row.Status)
	assert.Equal(t, 2, row.Attempts)

	// Third failure exhausts the attempt budget.
	require.NoError(t, q.MarkFailed(ctx, &row, errors.New("final")))
	require.NoError(t, q.db.First(&row, job.ID).Error)
	assert.Equal(t, models.QueueStatusFailed, row.Status)
	assert.Equal(t, 3, row.Attempts)
	assert.NotNil(t, row.FinishedAt)
}

func TestMarkCompleted(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, models.JobTypeScan, nil, nil, 0)
	require.NoError(t, err)
	require.NoError(t, q.MarkCompleted(ctx, job))

	var row models.QueueJob
	require.NoError(t, q.db.First(&row, job.ID).Error)
	assert.Equal(t, models.QueueStatusCompleted, row.Status)
	assert.NotNil(t, row.FinishedAt)
}

func TestEnqueueUniqueDeduplicatesActiveRows(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	uid := uint(7)

	first, created, err := q.EnqueueUnique(ctx, models.JobTypeScan, &uid, nil, 5)
	require.NoError(t, err)
	assert.True(t, created)

	dup, created, err := q.EnqueueUnique(ctx, models.JobTypeScan, &uid, nil, 5)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, dup.ID)

	// A different user is not deduplicated against.
	other := uint(8)
	_, created, err = q.EnqueueUnique(ctx, models.JobTypeScan, &other, nil, 5)
	require.NoError(t, err)
	assert.True(t, created)

	// Once the row is terminal a new one can be enqueued.
	require.NoError(t, q.MarkCompleted(ctx, first))
	fresh, created, err := q.EnqueueUnique(ctx, models.JobTypeScan, &uid, nil, 5)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, fresh.ID)
}

func TestKeepOldestActiveResolvesConcurrentInserts(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	uid := uint(7)

	// Two callers that both passed the pre-check end up with two active rows;
	// the post-insert re-check keeps the oldest and removes the newer one.
	first, err := q.Enqueue(ctx, models.JobTypeScan, &uid, nil, 5)
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, models.JobTypeScan, &uid, nil, 5)
	require.NoError(t, err)

	kept, created, err := q.keepOldestActive(ctx, second, models.JobTypeScan, &uid)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, kept.ID)

	var count int64
	require.NoError(t, q.db.Model(&models.QueueJob{}).
		Where("type = ? AND user_id = ?", models.JobTypeScan, uid).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// The surviving row resolves to itself.
	kept, created, err = q.keepOldestActive(ctx, first, models.JobTypeScan, &uid)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, first.ID, kept.ID)
}

func TestRetryResetsFailedJob(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	uid := uint(1)

	job, err := q.Enqueue(ctx, models.JobTypeCustomizeResume, &uid, map[string]any{"job_id": 4}, 5)
	require.NoError(t, err)

	// Retry on a non-failed row is a 404.
	_, err = q.Retry(ctx, job.ID, uid)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeNotFound, appErr.Code)

	job.Attempts = job.MaxAttempts - 1
	require.NoError(t, q.MarkFailed(ctx, job, errors.New("llm down")))

	retried, err := q.Retry(ctx, job.ID, uid)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusPending, retried.Status)
	assert.Equal(t, 0, retried.Attempts)
	assert.Empty(t, retried.ErrorMessage)
	assert.Nil(t, retried.FinishedAt)
}

func TestCancelOnlyPendingRows(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	uid := uint(1)

	job, err := q.Enqueue(ctx, models.JobTypeScan, &uid, nil, 5)
	require.NoError(t, err)

	canceled, err := q.Cancel(ctx, job.ID, uid)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusFailed, canceled.Status)
	assert.Equal(t, "canceled by user", canceled.ErrorMessage)

	// Canceling again conflicts: the row exists but is no longer pending.
	_, err = q.Cancel(ctx, job.ID, uid)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeConflict, appErr.Code)

	// An id that was never enqueued is a 404, not a conflict.
	_, err = q.Cancel(ctx, job.ID+100, uid)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeNotFound, appErr.Code)
}

func TestCancelRequiresOwnership(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	owner := uint(1)

	job, err := q.Enqueue(ctx, models.JobTypeScan, &owner, nil, 5)
	require.NoError(t, err)

	// To another user the job does not exist at all.
	_, err = q.Cancel(ctx, job.ID, uint(2))
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeNotFound, appErr.Code)

	var row models.QueueJob
	require.NoError(t, q.db.First(&row, job.ID).Error)
	assert.Equal(t, models.QueueStatusPending, row.Status)
}

func TestCleanupRemovesOldTerminalRows(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	old := time.Now().Add(-8 * 24 * time.Hour)
	recent := time.Now().Add(-time.Hour)
	rows := []models.QueueJob{
		{Type: models.JobTypeScan, Status: models.QueueStatusCompleted, FinishedAt: &old, ScheduledAt: old},
		{Type: models.JobTypeScan, Status: models.QueueStatusFailed, FinishedAt: &old, ScheduledAt: old},
		{Type: models.JobTypeScan, Status: models.QueueStatusCompleted, FinishedAt: &recent, ScheduledAt: recent},
		{Type: models.JobTypeScan, Status: models.QueueStatusPending, ScheduledAt: old},
	}
	for i := range rows {
		require.NoError(t, q.db.Create(&rows[i]).Error)
	}

	deleted, err := q.Cleanup(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	var remaining int64
	require.NoError(t, q.db.Model(&models.QueueJob{}).Count(&remaining).Error)
	assert.EqualValues(t, 2, remaining)
}

func TestStatusCountsZeroFillsAndScopes(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	uid := uint(1)

	_, err := q.Enqueue(ctx, models.JobTypeScan, &uid, nil, 0)
	require.NoError(t, err)
	other := uint(2)
	_, err = q.Enqueue(ctx, models.JobTypeScan, &other, nil, 0)
	require.NoError(t, err)

	counts, err := q.StatusCounts(ctx, &uid)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[models.QueueStatusPending])
	assert.EqualValues(t, 0, counts[models.QueueStatusProcessing])
	assert.EqualValues(t, 0, counts[models.QueueStatusCompleted])
	assert.EqualValues(t, 0, counts[models.QueueStatusFailed])

	global, err := q.StatusCounts(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, global[models.QueueStatusPending])
}

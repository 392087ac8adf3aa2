package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/models"
)

func TestCheckAndConsumeEnforcesMonthlyLimit(t *testing.T) {
	db := newTestDB(t)
	s := NewBillingService(db, zap.NewNop())
	ctx := context.Background()

	user := createTestUser(t, db, "free@example.com")
	limit := QuotaFor(models.PlanFree, models.FeatureResumeCustomize)
	require.Greater(t, limit, 0)

	for i := 0; i < limit; i++ {
		require.NoError(t, s.CheckAndConsume(ctx, user, models.FeatureResumeCustomize))
	}

	err := s.CheckAndConsume(ctx, user, models.FeatureResumeCustomize)
	require.Error(t, err)
	assert.Equal(t, http.StatusPaymentRequired, common.HTTPStatus(err))
	assert.Equal(t, common.CodeQuotaExceeded, common.ErrorCode(err))

	var rec models.UsageRecord
	require.NoError(t, db.Where("user_id = ? AND feature = ?", user.ID, models.FeatureResumeCustomize).First(&rec).Error)
	assert.Equal(t, limit, rec.Count)
}

func TestCheckAndConsumeUnmeteredFeature(t *testing.T) {
	db := newTestDB(t)
	s := NewBillingService(db, zap.NewNop())
	ctx := context.Background()

	user := createTestUser(t, db, "pro@example.com")
	user.Plan = models.PlanPro
	require.NoError(t, db.Save(user).Error)

	// PRO scans are unmetered: no counter row is even created.
	for i := 0; i < 20; i++ {
		require.NoError(t, s.CheckAndConsume(ctx, user, models.FeatureScan))
	}
	var count int64
	require.NoError(t, db.Model(&models.UsageRecord{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCheckAndConsumeTracksFeaturesSeparately(t *testing.T) {
	db := newTestDB(t)
	s := NewBillingService(db, zap.NewNop())
	ctx := context.Background()

	user := createTestUser(t, db, "multi@example.com")
	require.NoError(t, s.CheckAndConsume(ctx, user, models.FeatureCoverLetter))
	require.NoError(t, s.CheckAndConsume(ctx, user, models.FeatureInterviewSession))

	usage, err := s.Usage(ctx, user)
	require.NoError(t, err)

	byFeature := make(map[string]FeatureUsage, len(usage))
	for _, u := range usage {
		byFeature[u.Feature] = u
	}
	assert.Equal(t, 1, byFeature[models.FeatureCoverLetter].Used)
	assert.Equal(t, 1, byFeature[models.FeatureInterviewSession].Used)
	assert.Equal(t, 0, byFeature[models.FeatureScan].Used)
	assert.Equal(t, QuotaFor(models.PlanFree, models.FeatureCoverLetter), byFeature[models.FeatureCoverLetter].Limit)
}

func TestQuotaForUnknownPlanFallsBackToFree(t *testing.T) {
	assert.Equal(t,
		QuotaFor(models.PlanFree, models.FeatureCoverLetter),
		QuotaFor("ENTERPRISE", models.FeatureCoverLetter))
	assert.Equal(t, 0, QuotaFor(models.PlanFree, "no_such_feature"))
}

package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/models"
)

// Monthly quotas per plan. A limit of -1 means unmetered.
var planQuotas = map[string]map[string]int{
	models.PlanFree: {
		models.FeatureCoverLetter:       5,
		models.FeatureResumeCustomize:   3,
		models.FeatureInterviewSession:  2,
		models.FeatureScan:              10,
		models.FeatureApplicationReview: 5,
	},
	models.PlanPro: {
		models.FeatureCoverLetter:       200,
		models.FeatureResumeCustomize:   100,
		models.FeatureInterviewSession:  50,
		models.FeatureScan:              -1,
		models.FeatureApplicationReview: 200,
	},
}

// BillingService enforces usage quotas. There is no payment-processor
// integration here: the plan is a column on the user and enforcement is a
// counter check, per product scope.
type BillingService struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewBillingService(db *gorm.DB, log *zap.Logger) *BillingService {
	return &BillingService{db: db, log: log.Sugar()}
}

func currentPeriod() string {
	return time.Now().UTC().Format("2006-01")
}

// QuotaFor returns the monthly limit for a plan/feature pair.
func QuotaFor(plan, feature string) int {
	quotas, ok := planQuotas[plan]
	if !ok {
		quotas = planQuotas[models.PlanFree]
	}
	limit, ok := quotas[feature]
	if !ok {
		return 0
	}
	return limit
}

// CheckAndConsume increments the user's counter for the feature, returning a
// 402-mapped error when the plan's monthly limit is already reached.
func (s *BillingService) CheckAndConsume(ctx context.Context, user *models.User, feature string) error {
	limit := QuotaFor(user.Plan, feature)
	if limit < 0 {
		return nil
	}
	period := currentPeriod()

	var rec models.UsageRecord
	err := s.db.WithContext(ctx).
		Where(models.UsageRecord{UserID: user.ID, Feature: feature, Period: period}).
		FirstOrCreate(&rec).Error
	if err != nil {
		return common.WrapError(err, "load usage record")
	}
	if rec.Count >= limit {
		s.log.Infow("billing.quota_exceeded", "user_id", user.ID, "feature", feature, "limit", limit)
		return common.QuotaError(fmt.Sprintf("monthly limit of %d reached for %s on plan %s", limit, feature, user.Plan))
	}

	// Guarded increment so two concurrent requests can't both pass at the edge.
	res := s.db.WithContext(ctx).Model(&models.UsageRecord{}).
		Where("id = ? AND count < ?", rec.ID, limit).
		Update("count", gorm.Expr("count + 1"))
	if res.Error != nil {
		return common.WrapError(res.Error, "consume quota")
	}
	if res.RowsAffected == 0 {
		return common.QuotaError(fmt.Sprintf("monthly limit of %d reached for %s on plan %s", limit, feature, user.Plan))
	}
	return nil
}

// FeatureUsage is one line of the usage report.
type FeatureUsage struct {
	Feature string `json:"feature"`
	Used    int    `json:"used"`
	Limit   int    `json:"limit"`
}

// Usage reports the current period's consumption against every metered feature.
func (s *BillingService) Usage(ctx context.Context, user *models.User) ([]FeatureUsage, error) {
	period := currentPeriod()
	var records []models.UsageRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND period = ?", user.ID, period).
		Find(&records).Error
	if err != nil {
		return nil, common.WrapError(err, "load usage")
	}
	used := make(map[string]int, len(records))
	for _, r := range records {
		used[r.Feature] = r.Count
	}

	features := []string{
		models.FeatureCoverLetter,
		models.FeatureResumeCustomize,
		models.FeatureInterviewSession,
		models.FeatureScan,
		models.FeatureApplicationReview,
	}
	out := make([]FeatureUsage, 0, len(features))
	for _, f := range features {
		out = append(out, FeatureUsage{
			Feature: f,
			Used:    used[f],
			Limit:   QuotaFor(user.Plan, f),
		})
	}
	return out, nil
}

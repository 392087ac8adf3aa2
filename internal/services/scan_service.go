package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/jobsearch"
	"github.com/applypilot/applypilot/internal/models"
)

// ScanService runs the auto-apply scan: pull fresh listings matching the
// user's profile from the aggregator, persist them, and record match
// notifications. Executed by the SCAN queue handler, never inline in a request.
type ScanService struct {
	DB      *gorm.DB
	Jobs    *JobService
	Matcher *MatcherService
	log     *zap.SugaredLogger
}

func NewScanService(db *gorm.DB, jobs *JobService, matcher *MatcherService, log *zap.Logger) *ScanService {
	return &ScanService{DB: db, Jobs: jobs, Matcher: matcher, log: log.Sugar()}
}

// Run executes one scan for the user and returns the number of new matches.
func (s *ScanService) Run(ctx context.Context, userID uint) (int, error) {
	var profile models.Profile
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, common.NotFoundError("profile required before scanning")
		}
		return 0, common.WrapError(err, "load profile")
	}

	query := queryFromProfile(&profile)
	if query.Keywords == "" {
		return 0, common.ValidationError("profile has no skills or desired roles to search with")
	}

	jobs, err := s.Jobs.SearchAndStore(ctx, query)
	if err != nil {
		return 0, err
	}

	matches, err := s.Matcher.MatchForUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_scan_at", now).Error; err != nil {
		return matches, common.WrapError(err, "record scan time")
	}

	s.log.Infow("scan.done", "user_id", userID, "jobs_fetched", len(jobs), "new_matches", matches)
	return matches, nil
}

// queryFromProfile derives the aggregator query: desired roles are the
// keywords (falling back to skills), plus location and salary preferences.
func queryFromProfile(p *models.Profile) jobsearch.Query {
	keywords := strings.Join(p.DesiredRoles, " ")
	if keywords == "" {
		keywords = strings.Join(p.Skills, " ")
	}
	return jobsearch.Query{
		Keywords:  keywords,
		Locations: p.Locations,
		Remote:    p.RemoteOnly,
		MinSalary: p.MinSalary,
		Limit:     50,
	}
}

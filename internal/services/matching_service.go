package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/models"
)

// Notifications are only created for matches at or above this score.
const matchThreshold = 0.45

// MatcherService scores jobs against a profile and records the good matches
// as JobNotification rows.
type MatcherService struct {
	DB  *gorm.DB
	log *zap.SugaredLogger
}

func NewMatcherService(db *gorm.DB, log *zap.Logger) *MatcherService {
	return &MatcherService{DB: db, log: log.Sugar()}
}

// ScoreJob rates a job 0..1 for a profile and explains the score.
// Weights: skills 0.5, desired role 0.25, location 0.15, salary 0.1.
func (s *MatcherService) ScoreJob(profile *models.Profile, job *models.Job) (float64, string) {
	var score float64
	var reasons []string

	haystack := strings.ToLower(job.Title + " " + job.Description + " " + strings.Join(job.Tags, " "))

	// Skill overlap.
	if len(profile.Skills) > 0 {
		hits := 0
		var matched []string
		for _, skill := range profile.Skills {
			sk := strings.ToLower(strings.TrimSpace(skill))
			// Very short skill names ("C", "Go") match everything; skip them.
			if len(sk) < 2 {
				continue
			}
			if strings.Contains(haystack, sk) {
				hits++
				matched = append(matched, skill)
			}
		}
		frac := float64(hits) / float64(len(profile.Skills))
		score += 0.5 * frac
		if hits > 0 {
			reasons = append(reasons, "skills: "+strings.Join(matched, ", "))
		}
	}

	// Desired role against the title.
	titleLower := strings.ToLower(job.Title)
	for _, role := range profile.DesiredRoles {
		r := strings.ToLower(strings.TrimSpace(role))
		if len(r) >= 3 && strings.Contains(titleLower, r) {
			score += 0.25
			reasons = append(reasons, "role match: "+role)
			break
		}
	}

	// Location / remote preference.
	switch {
	case profile.RemoteOnly && job.Remote:
		score += 0.15
		reasons = append(reasons, "remote")
	case profile.RemoteOnly && !job.Remote:
		// Hard mismatch against a remote-only preference.
	case len(profile.Locations) == 0:
		score += 0.15
	default:
		jobLoc := strings.ToLower(job.Location)
		for _, loc := range profile.Locations {
			l := strings.ToLower(strings.TrimSpace(loc))
			if l != "" && (strings.Contains(jobLoc, l) || job.Remote) {
				score += 0.15
				reasons = append(reasons, "location: "+loc)
				break
			}
		}
	}

	// Salary floor.
	if profile.MinSalary <= 0 || job.SalaryMax == 0 || job.SalaryMax >= profile.MinSalary {
		score += 0.1
	}

	return score, strings.Join(reasons, "; ")
}

// MatchForUser scores every non-deleted job for the user and inserts a
// notification for each new match above threshold. Returns how many
// notifications were created.
func (s *MatcherService) MatchForUser(ctx context.Context, userID uint) (int, error) {
	var profile models.Profile
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, common.NotFoundError("profile not found; create one before matching")
		}
		return 0, common.WrapError(err, "load profile")
	}

	var jobs []models.Job
	if err := s.DB.WithContext(ctx).Find(&jobs).Error; err != nil {
		return 0, common.WrapError(err, "load jobs")
	}

	created := 0
	for i := range jobs {
		job := &jobs[i]
		score, reason := s.ScoreJob(&profile, job)
		if score < matchThreshold {
			continue
		}
		notif := models.JobNotification{
			UserID: userID,
			JobID:  job.ID,
			Score:  score,
			Reason: reason,
		}
		// The (user_id, job_id) unique index makes re-matching idempotent.
		res := s.DB.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&notif)
		if res.Error != nil {
			return created, common.WrapError(res.Error, "create notification")
		}
		if res.RowsAffected > 0 {
			created++
		}
	}
	s.log.Infow("match.user.done", "user_id", userID, "jobs", len(jobs), "new_matches", created)
	return created, nil
}

// MatchAll runs matching for every user that has a profile.
func (s *MatcherService) MatchAll(ctx context.Context) error {
	var profiles []models.Profile
	if err := s.DB.WithContext(ctx).Find(&profiles).Error; err != nil {
		return common.WrapError(err, "list profiles")
	}
	var failed int
	for _, p := range profiles {
		if _, err := s.MatchForUser(ctx, p.UserID); err != nil {
			s.log.Errorw("match.user.error", "user_id", p.UserID, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("matching failed for %d of %d users", failed, len(profiles))
	}
	return nil
}

package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/models"
)

type ProfileService struct {
	DB  *gorm.DB
	log *zap.SugaredLogger
}

func NewProfileService(db *gorm.DB, log *zap.Logger) *ProfileService {
	return &ProfileService{DB: db, log: log.Sugar()}
}

func (s *ProfileService) Get(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NotFoundError("profile not found")
		}
		return nil, common.WrapError(err, "load profile")
	}
	return &profile, nil
}

// Upsert creates the user's profile on first write, updates it afterwards.
// One profile per user, enforced by the unique index on user_id.
func (s *ProfileService) Upsert(ctx context.Context, userID uint, in *models.Profile) (*models.Profile, error) {
	var profile models.Profile
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		in.UserID = userID
		if err := s.DB.WithContext(ctx).Create(in).Error; err != nil {
			return nil, common.WrapError(err, "create profile")
		}
		s.log.Infow("profile.created", "user_id", userID)
		return in, nil
	case err != nil:
		return nil, common.WrapError(err, "load profile")
	}

	profile.FullName = in.FullName
	profile.Headline = in.Headline
	profile.Summary = in.Summary
	profile.Skills = in.Skills
	profile.Locations = in.Locations
	profile.RemoteOnly = in.RemoteOnly
	profile.MinSalary = in.MinSalary
	profile.YearsOfExp = in.YearsOfExp
	profile.DesiredRoles = in.DesiredRoles
	if err := s.DB.WithContext(ctx).Save(&profile).Error; err != nil {
		return nil, common.WrapError(err, "update profile")
	}
	s.log.Infow("profile.updated", "user_id", userID)
	return &profile, nil
}

// SetAutoApply toggles background scanning for the user.
func (s *ProfileService) SetAutoApply(ctx context.Context, userID uint, enabled bool) error {
	err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("auto_apply_enabled", enabled).Error
	if err != nil {
		return common.WrapError(err, "update auto-apply setting")
	}
	s.log.Infow("profile.auto_apply", "user_id", userID, "enabled", enabled)
	return nil
}

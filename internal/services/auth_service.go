package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/email"
	"github.com/applypilot/applypilot/internal/models"
)

const resetTokenTTL = 30 * time.Minute

// AuthService issues API tokens and handles password resets. Deliberately
// minimal: no sessions or OAuth, just a single opaque bearer token per user.
type AuthService struct {
	DB     *gorm.DB
	Sender *email.Sender
	log    *zap.SugaredLogger
}

func NewAuthService(db *gorm.DB, sender *email.Sender, log *zap.Logger) *AuthService {
	return &AuthService{DB: db, Sender: sender, log: log.Sugar()}
}

func (s *AuthService) Register(ctx context.Context, emailAddr, password string) (*models.User, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))

	var existing models.User
	err := s.DB.WithContext(ctx).Where("email = ?", emailAddr).First(&existing).Error
	if err == nil {
		return nil, common.ConflictError("email already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.WrapError(err, "check existing user")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.WrapError(err, "hash password")
	}
	user := &models.User{
		Email:        emailAddr,
		PasswordHash: string(hash),
		APIToken:     uuid.New().String(),
		Plan:         models.PlanFree,
	}
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		return nil, common.WrapError(err, "create user")
	}
	s.log.Infow("auth.registered", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and rotates the API token.
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (*models.User, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))

	var user models.User
	err := s.DB.WithContext(ctx).Where("email = ?", emailAddr).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.UnauthorizedError("invalid credentials")
		}
		return nil, common.WrapError(err, "load user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, common.UnauthorizedError("invalid credentials")
	}

	user.APIToken = uuid.New().String()
	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("api_token", user.APIToken).Error; err != nil {
		return nil, common.WrapError(err, "rotate token")
	}
	s.log.Infow("auth.login", "user_id", user.ID)
	return &user, nil
}

// UserByToken resolves a bearer token to its user.
func (s *AuthService) UserByToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.UnauthorizedError("missing bearer token")
	}
	var user models.User
	err := s.DB.WithContext(ctx).Where("api_token = ?", token).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.UnauthorizedError("invalid bearer token")
		}
		return nil, common.WrapError(err, "load user by token")
	}
	return &user, nil
}

// RequestPasswordReset creates a single-use token and mails it. Always
// succeeds from the caller's perspective so the endpoint can't be used to
// probe which emails exist.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))

	var user models.User
	err := s.DB.WithContext(ctx).Where("email = ?", emailAddr).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return common.WrapError(err, "load user")
	}

	token := &models.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.New().String(),
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := s.DB.WithContext(ctx).Create(token).Error; err != nil {
		return common.WrapError(err, "create reset token")
	}

	body := "Use this code to reset your password (valid for 30 minutes):\n\n" + token.Token
	if err := s.Sender.Send(ctx, user.Email, "Password reset", body); err != nil {
		s.log.Errorw("auth.reset.send_error", "user_id", user.ID, "error", err)
	}
	return nil
}

// ConfirmPasswordReset consumes the token, sets the new password, and revokes
// the current API token.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	var token models.PasswordResetToken
	err := s.DB.WithContext(ctx).Where("token = ?", tokenStr).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.ValidationError("invalid reset token")
		}
		return common.WrapError(err, "load reset token")
	}
	if token.Used || time.Now().After(token.ExpiresAt) {
		return common.ValidationError("reset token expired or already used")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return common.WrapError(err, "hash password")
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).
			Where("id = ?", token.UserID).
			Updates(map[string]any{
				"password_hash": string(hash),
				"api_token":     uuid.New().String(),
			}).Error; err != nil {
			return common.WrapError(err, "update password")
		}
		if err := tx.Model(&models.PasswordResetToken{}).
			Where("id = ?", token.ID).
			Update("used", true).Error; err != nil {
			return common.WrapError(err, "consume reset token")
		}
		return nil
	})
}

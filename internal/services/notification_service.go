package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/applypilot/applypilot/internal/common"
	"github.com/applypilot/applypilot/internal/email"
	"github.com/applypilot/applypilot/internal/models"
)

type NotificationService struct {
	DB     *gorm.DB
	Sender *email.Sender
	log    *zap.SugaredLogger
}

func NewNotificationService(db *gorm.DB, sender *email.Sender, log *zap.Logger) *NotificationService {
	return &NotificationService{DB: db, Sender: sender, log: log.Sugar()}
}

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool) ([]models.JobNotification, error) {
	tx := s.DB.WithContext(ctx).Preload("Job").Where("user_id = ?", userID)
	if unreadOnly {
		tx = tx.Where("read = ?", false)
	}
	var notifs []models.JobNotification
	if err := tx.Order("score DESC, created_at DESC").Find(&notifs).Error; err != nil {
		return nil, common.WrapError(err, "list notifications")
	}
	return notifs, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notifID uint) (*models.JobNotification, error) {
	res := s.DB.WithContext(ctx).Model(&models.JobNotification{}).
		Where("id = ? AND user_id = ?", notifID, userID).
		Update("read", true)
	if res.Error != nil {
		return nil, common.WrapError(res.Error, "mark notification read")
	}
	if res.RowsAffected == 0 {
		return nil, common.NotFoundError("notification not found")
	}
	var notif models.JobNotification
	if err := s.DB.WithContext(ctx).Preload("Job").First(&notif, notifID).Error; err != nil {
		return nil, common.WrapError(err, "reload notification")
	}
	return &notif, nil
}

// SendDigests emails each user their not-yet-emailed matches and flags the
// rows as emailed. Users without an address or with no new matches are skipped.
// Runs inside the SEND_NOTIFICATIONS queue handler and the cron endpoint.
func (s *NotificationService) SendDigests(ctx context.Context) (int, error) {
	if s.Sender == nil {
		s.log.Debug("notifications.digest.skipped: email disabled")
		return 0, nil
	}

	var pending []models.JobNotification
	err := s.DB.WithContext(ctx).Preload("Job").
		Where("emailed = ?", false).
		Order("user_id, score DESC").
		Find(&pending).Error
	if err != nil {
		return 0, common.WrapError(err, "load pending notifications")
	}
	if len(pending) == 0 {
		return 0, nil
	}

	byUser := make(map[uint][]models.JobNotification)
	for _, n := range pending {
		byUser[n.UserID] = append(byUser[n.UserID], n)
	}

	sent := 0
	for userID, notifs := range byUser {
		var user models.User
		if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return sent, common.WrapError(err, "load user")
		}

		body := digestBody(notifs)
		subject := fmt.Sprintf("%d new job matches for you", len(notifs))
		if err := s.Sender.Send(ctx, user.Email, subject, body); err != nil {
			s.log.Errorw("notifications.digest.send_error", "user_id", userID, "error", err)
			continue
		}

		ids := make([]uint, len(notifs))
		for i, n := range notifs {
			ids[i] = n.ID
		}
		if err := s.DB.WithContext(ctx).Model(&models.JobNotification{}).
			Where("id IN ?", ids).
			Update("emailed", true).Error; err != nil {
			return sent, common.WrapError(err, "mark notifications emailed")
		}
		sent++
	}
	s.log.Infow("notifications.digest.done", "users_emailed", sent, "notifications", len(pending))
	return sent, nil
}

func digestBody(notifs []models.JobNotification) string {
	var b strings.Builder
	b.WriteString("New job matches based on your profile:\n\n")
	for _, n := range notifs {
		fmt.Fprintf(&b, "- %s at %s (match %.0f%%)\n", n.Job.Title, n.Job.Company, n.Score*100)
		if n.Reason != "" {
			fmt.Fprintf(&b, "  why: %s\n", n.Reason)
		}
		if n.Job.URL != "" {
			fmt.Fprintf(&b, "  %s\n", n.Job.URL)
		}
	}
	b.WriteString("\nOpen the app to review and apply.\n")
	return b.String()
}

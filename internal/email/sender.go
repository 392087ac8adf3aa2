// Package email sends transactional mail (job-match digests, password resets)
// through the gmail API. The sender is nil-safe: without credentials every
// send becomes a logged no-op so mail never blocks a feature.
package email

import (
	"context"
	"encoding/base64"
	"fmt"

	"go.uber.org/zap"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/applypilot/applypilot/internal/config"
)

type Sender struct {
	svc  *gmail.Service
	from string
	log  *zap.SugaredLogger
}

// NewSender returns nil when gmail is not configured; callers must treat a nil
// *Sender as "email disabled" (Send on a nil receiver is safe).
func NewSender(ctx context.Context, cfg config.EmailConfig, log *zap.Logger) (*Sender, error) {
	if cfg.FromAddress == "" {
		log.Warn("EMAIL_FROM not set; outbound email disabled")
		return nil, nil
	}
	httpClient, err := gmailHTTPClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Sender{svc: svc, from: cfg.FromAddress, log: log.Sugar()}, nil
}

// Send delivers a plain-text message. No-op when the sender is nil.
func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	if s == nil {
		return nil
	}
	raw := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s",
		s.from, to, subject, body)

	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString([]byte(raw))}
	if _, err := s.svc.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		s.log.Errorw("email.send.error", "to", to, "subject", subject, "error", err)
		return fmt.Errorf("gmail send: %w", err)
	}
	s.log.Infow("email.send.ok", "to", to, "subject", subject)
	return nil
}

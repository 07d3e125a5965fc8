// Package mail sends transactional email through Resend.
package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/natours/auth-api/internal/core/domain"
)

const sendTimeout = 10 * time.Second

var ErrNotConfigured = errors.New("email service not configured (missing RESEND_API_KEY)")

// sender is the part of the Resend client used here.
type sender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type Config struct {
	APIKey   string
	From     string
	AppName  string
	ResetTTL time.Duration
	// Dev logs emails instead of sending them.
	Dev bool
}

// Mailer implements ports.Mailer.
type Mailer struct {
	emails   sender
	from     string
	appName  string
	resetTTL time.Duration
	dev      bool
	logger   zerolog.Logger
}

func NewMailer(cfg Config, logger zerolog.Logger) *Mailer {
	m := &Mailer{
		from:     cfg.From,
		appName:  cfg.AppName,
		resetTTL: cfg.ResetTTL,
		dev:      cfg.Dev,
		logger:   logger,
	}
	if cfg.APIKey != "" && !cfg.Dev {
		m.emails = resend.NewClient(cfg.APIKey).Emails
	}
	return m
}

func (m *Mailer) SendWelcome(ctx context.Context, user *domain.User, url string) error {
	subject, body := welcomeTemplate(user.Name, url, m.appName)
	return m.send(ctx, "welcome", user.Email, subject, body, url)
}

func (m *Mailer) SendPasswordReset(ctx context.Context, user *domain.User, resetURL string) error {
	subject, body := passwordResetTemplate(user.Name, resetURL, formatTTL(m.resetTTL))
	return m.send(ctx, "password_reset", user.Email, subject, body, resetURL)
}

func (m *Mailer) send(ctx context.Context, kind, to, subject, body, url string) error {
	if m.dev {
		m.logger.Info().Str("type", kind).Str("to", to).Str("subject", subject).Str("url", url).Msg("email sent (dev mode)")
		return nil
	}
	if m.emails == nil {
		return ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := m.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	})
	if err != nil {
		return fmt.Errorf("send %s email: %w", kind, err)
	}
	m.logger.Info().Str("type", kind).Str("to", to).Msg("email sent")
	return nil
}

func formatTTL(d time.Duration) string {
	if d <= 0 {
		d = 10 * time.Minute
	}
	if d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	}
	return fmt.Sprintf("%d minutes", int(d/time.Minute))
}

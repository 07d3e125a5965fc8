package ports

import (
	"context"

	"github.com/natours/auth-api/internal/core/domain"
)

// Mailer delivers transactional emails.
type Mailer interface {
	SendWelcome(ctx context.Context, user *domain.User, url string) error
	SendPasswordReset(ctx context.Context, user *domain.User, resetURL string) error
}

// WelcomeQueue accepts welcome emails for background delivery.
type WelcomeQueue interface {
	EnqueueWelcome(user *domain.User, url string)
}

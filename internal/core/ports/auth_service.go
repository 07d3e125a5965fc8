package ports

import (
	"context"

	"github.com/natours/auth-api/internal/core/domain"
)

// SignupInput is the DTO passed from the transport layer to AuthService.Signup.
type SignupInput struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
	// WelcomeURL is linked from the welcome email.
	WelcomeURL string
}

type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
}

// PasswordService covers the forgot/reset/update password flows.
type PasswordService interface {
	// RequestReset stores a hashed reset token for email and mails the raw
	// token appended to resetURLBase.
	RequestReset(ctx context.Context, email, resetURLBase string) error
	ConsumeReset(ctx context.Context, rawToken, password, passwordConfirm string) (*domain.User, error)
	UpdatePassword(ctx context.Context, userID, current, password, passwordConfirm string) (*domain.User, error)
}

// SessionResolver turns a bearer token into the user it was issued for.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*domain.User, error)
}

// TokenIssuer signs session tokens for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

package ports

import (
	"context"

	"github.com/natours/auth-api/internal/core/domain"
)

// OAuthService maps an external identity onto a local user.
type OAuthService interface {
	Resolve(ctx context.Context, profile domain.OAuthProfile) (*domain.User, error)
}

// OAuthProvider performs the authorization-code exchange with an identity
// provider.
type OAuthProvider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*domain.OAuthProfile, error)
}

// StateStore keeps OAuth state values so each can be redeemed once.
type StateStore interface {
	Save(ctx context.Context, state string) error
	Consume(ctx context.Context, state string) (bool, error)
}

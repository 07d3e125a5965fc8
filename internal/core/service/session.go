package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/natours/auth-api/internal/core/domain"
	"github.com/natours/auth-api/internal/core/ports"
)

const (
	msgUserGone        = "The user belonging to this token does no longer exist."
	msgPasswordChanged = "User recently changed password! Please log in again."
)

// SessionService resolves session tokens to users, rejecting tokens whose
// user has been removed or changed password after issuance.
type SessionService struct {
	tokens *TokenIssuer
	users  ports.UserRepository
	logger zerolog.Logger
}

func NewSessionService(tokens *TokenIssuer, users ports.UserRepository, logger zerolog.Logger) *SessionService {
	return &SessionService{tokens: tokens, users: users, logger: logger}
}

// Issue signs a session token for userID.
func (s *SessionService) Issue(userID string) (string, error) {
	return s.tokens.Issue(userID)
}

func (s *SessionService) Resolve(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NewAppError(domain.ErrUnauthenticated, msgUserGone)
		}
		return nil, fmt.Errorf("resolve session user: %w", err)
	}

	if user.ChangedPasswordAfter(claims.IssuedAt.Time) {
		s.logger.Debug().Str("user_id", user.ID).Msg("rejecting token issued before password change")
		return nil, domain.NewAppError(domain.ErrUnauthenticated, msgPasswordChanged)
	}
	return user, nil
}

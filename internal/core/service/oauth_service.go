package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/natours/auth-api/internal/core/domain"
	"github.com/natours/auth-api/internal/core/ports"
)

// OAuthService maps provider identities onto local users, creating an
// account on first sign-in.
type OAuthService struct {
	users  ports.UserRepository
	logger zerolog.Logger
	now    func() time.Time
}

func NewOAuthService(users ports.UserRepository, logger zerolog.Logger) *OAuthService {
	return &OAuthService{users: users, logger: logger, now: time.Now}
}

func (s *OAuthService) Resolve(ctx context.Context, profile domain.OAuthProfile) (*domain.User, error) {
	email := normalizeEmail(profile.Email)
	if email == "" {
		return nil, domain.NewAppError(domain.ErrBadInput, "provider did not return an email")
	}

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return s.link(ctx, user, profile)
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("find user: %w", err)
	}

	now := s.now().UTC()
	name := profile.Name
	if name == "" {
		name = email
	}
	user = &domain.User{
		Name:      name,
		Email:     email,
		Photo:     profile.Picture,
		Role:      domain.RoleUser,
		GoogleID:  profile.Subject,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// The account gets a random password nobody knows; the user can still set
	// one through the reset flow.
	if err := user.SetPassword(uuid.NewString(), now); err != nil {
		return nil, err
	}

	created, err := s.users.Create(ctx, user)
	if errors.Is(err, domain.ErrUserExists) {
		existing, findErr := s.users.FindByEmail(ctx, email)
		if findErr != nil {
			return nil, fmt.Errorf("find user after conflict: %w", findErr)
		}
		return s.link(ctx, existing, profile)
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info().Str("user_id", created.ID).Str("provider", profile.Provider).Msg("user created from oauth profile")
	return created, nil
}

func (s *OAuthService) link(ctx context.Context, user *domain.User, profile domain.OAuthProfile) (*domain.User, error) {
	if user.GoogleID != "" || profile.Subject == "" {
		return user, nil
	}
	user.GoogleID = profile.Subject
	if user.Photo == "" {
		user.Photo = profile.Picture
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("link oauth identity: %w", err)
	}
	return user, nil
}

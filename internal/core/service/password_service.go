package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/natours/auth-api/internal/core/domain"
	"github.com/natours/auth-api/internal/core/ports"
)

const (
	defaultResetTTL = 10 * time.Minute

	msgNoUserWithEmail = "There is no user with email address."
	msgDeliveryFailed  = "There was an error sending the email. Try again later!"
	msgResetInvalid    = "Token is invalid or has expired"
	msgCurrentWrong    = "Your current password is wrong."
)

// PasswordService implements the forgot/reset/update password flows.
type PasswordService struct {
	users    ports.UserRepository
	mailer   ports.Mailer
	resetTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

func NewPasswordService(users ports.UserRepository, mailer ports.Mailer, resetTTL time.Duration, logger zerolog.Logger) *PasswordService {
	if resetTTL <= 0 {
		resetTTL = defaultResetTTL
	}
	return &PasswordService{users: users, mailer: mailer, resetTTL: resetTTL, logger: logger, now: time.Now}
}

// RequestReset emails a single-use reset link. When delivery fails the stored
// token is cleared again so no usable token is left behind.
func (s *PasswordService) RequestReset(ctx context.Context, email, resetURLBase string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.NewAppError(domain.ErrUserNotFound, msgNoUserWithEmail)
		}
		return fmt.Errorf("find user: %w", err)
	}

	raw, err := user.CreatePasswordResetToken(s.now(), s.resetTTL)
	if err != nil {
		return err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return fmt.Errorf("save reset token: %w", err)
	}

	resetURL := strings.TrimRight(resetURLBase, "/") + "/" + raw
	if err := s.mailer.SendPasswordReset(ctx, user, resetURL); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("password reset email failed")
		user.ClearPasswordReset()
		if saveErr := s.users.Save(ctx, user); saveErr != nil {
			s.logger.Error().Err(saveErr).Str("user_id", user.ID).Msg("rollback reset token failed")
		}
		return domain.NewAppError(domain.ErrDeliveryFailed, msgDeliveryFailed)
	}
	return nil
}

// ConsumeReset sets a new password for the holder of a valid raw reset token.
func (s *PasswordService) ConsumeReset(ctx context.Context, rawToken, password, passwordConfirm string) (*domain.User, error) {
	if rawToken == "" {
		return nil, domain.NewAppError(domain.ErrInvalidOrExpiredToken, msgResetInvalid)
	}
	now := s.now()
	user, err := s.users.FindByResetToken(ctx, domain.HashResetToken(rawToken), now)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NewAppError(domain.ErrInvalidOrExpiredToken, msgResetInvalid)
		}
		return nil, fmt.Errorf("find reset token: %w", err)
	}
	if err := checkNewPassword(password, passwordConfirm); err != nil {
		return nil, err
	}

	change, err := domain.NewPasswordChange(password, now)
	if err != nil {
		return nil, err
	}
	user, err = s.users.ConsumeResetToken(ctx, user.PasswordResetToken, change)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NewAppError(domain.ErrInvalidOrExpiredToken, msgResetInvalid)
		}
		return nil, fmt.Errorf("consume reset token: %w", err)
	}
	s.logger.Info().Str("user_id", user.ID).Msg("password reset")
	return user, nil
}

// UpdatePassword changes the password of a logged-in user after checking the
// current one.
func (s *PasswordService) UpdatePassword(ctx context.Context, userID, current, password, passwordConfirm string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NewAppError(domain.ErrUnauthenticated, msgUserGone)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.CorrectPassword(current) {
		return nil, domain.NewAppError(domain.ErrInvalidCredentials, msgCurrentWrong)
	}
	if err := checkNewPassword(password, passwordConfirm); err != nil {
		return nil, err
	}

	now := s.now()
	if err := user.SetPassword(password, now); err != nil {
		return nil, err
	}
	user.UpdatedAt = now.UTC()
	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

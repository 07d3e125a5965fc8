package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/natours/auth-api/internal/core/domain"
	"github.com/natours/auth-api/internal/core/ports"
)

const (
	minPasswordLength = 8

	msgMissingCredentials = "Please provide email and password!"
	msgBadCredentials     = "Incorrect email or password"
	msgNameRequired       = "Please tell us your name!"
	msgEmailRequired      = "Please provide your email"
	msgEmailInvalid       = "Please provide a valid email"
	msgPasswordRequired   = "Please provide a password"
	msgPasswordTooShort   = "Password must be at least 8 characters"
	msgConfirmRequired    = "Please confirm your password"
	msgPasswordsDiffer    = "Passwords are not the same!"
	msgEmailTaken         = "An account with this email already exists"
)

// AuthService implements signup, login and user listing.
type AuthService struct {
	users    ports.UserRepository
	welcome  ports.WelcomeQueue
	validate *validator.Validate
	logger   zerolog.Logger
	now      func() time.Time
}

func NewAuthService(users ports.UserRepository, welcome ports.WelcomeQueue, logger zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		welcome:  welcome,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)

	switch {
	case name == "":
		return nil, domain.NewAppError(domain.ErrBadInput, msgNameRequired)
	case email == "":
		return nil, domain.NewAppError(domain.ErrBadInput, msgEmailRequired)
	case s.validate.Var(email, "email") != nil:
		return nil, domain.NewAppError(domain.ErrBadInput, msgEmailInvalid)
	}
	if err := checkNewPassword(in.Password, in.PasswordConfirm); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &domain.User{
		Name:      name,
		Email:     email,
		Role:      domain.RoleUser,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.SetPassword(in.Password, now); err != nil {
		return nil, err
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, domain.NewAppError(domain.ErrUserExists, msgEmailTaken)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.welcome != nil {
		s.welcome.EnqueueWelcome(created, in.WelcomeURL)
	}
	s.logger.Info().Str("user_id", created.ID).Msg("user signed up")
	return created, nil
}

// Login checks email and password. Unknown email and wrong password produce
// the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.NewAppError(domain.ErrBadInput, msgMissingCredentials)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NewAppError(domain.ErrInvalidCredentials, msgBadCredentials)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.CorrectPassword(password) {
		return nil, domain.NewAppError(domain.ErrInvalidCredentials, msgBadCredentials)
	}
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkNewPassword(password, confirm string) error {
	switch {
	case password == "":
		return domain.NewAppError(domain.ErrBadInput, msgPasswordRequired)
	case len(password) < minPasswordLength:
		return domain.NewAppError(domain.ErrBadInput, msgPasswordTooShort)
	case confirm == "":
		return domain.NewAppError(domain.ErrBadInput, msgConfirmRequired)
	case password != confirm:
		return domain.NewAppError(domain.ErrBadInput, msgPasswordsDiffer)
	}
	return nil
}

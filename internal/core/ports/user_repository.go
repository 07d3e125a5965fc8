package ports

import (
	"context"
	"time"

	"github.com/natours/auth-api/internal/core/domain"
)

// UserRepository defines persistence operations for user accounts.
// Lookups return domain.ErrUserNotFound when nothing matches and never return
// deactivated users.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByResetToken returns the user whose stored reset hash equals hash and
	// whose reset expiry is after now.
	FindByResetToken(ctx context.Context, hash string, now time.Time) (*domain.User, error)
	// ConsumeResetToken atomically matches a reset hash that is still valid at
	// change.At, applies change and
	// clears both reset fields. Only one caller can consume a given token; the
	// others get domain.ErrUserNotFound.
	ConsumeResetToken(ctx context.Context, hash string, change domain.PasswordChange) (*domain.User, error)
	// Create inserts user and returns it with its generated ID.
	// A duplicate email yields domain.ErrUserExists.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// Save replaces the stored record with user.
	Save(ctx context.Context, user *domain.User) error
	List(ctx context.Context) ([]*domain.User, error)
}

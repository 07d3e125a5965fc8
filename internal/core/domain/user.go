package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

// PasswordCost is the bcrypt cost used by SetPassword.
var PasswordCost = 12

const resetTokenBytes = 32

// User models an account that can sign in with a password or through an
// OAuth provider.
type User struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	Photo                string     `json:"photo,omitempty"`
	Role                 string     `json:"role"`
	GoogleID             string     `json:"google_id,omitempty"`
	PasswordHash         string     `json:"-"`
	PasswordChangedAt    *time.Time `json:"-"`
	PasswordResetToken   string     `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	Active               bool       `json:"-"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// PasswordChange is a hashed password and the moment it was set.
type PasswordChange struct {
	Hash string
	At   time.Time
}

// NewPasswordChange hashes plain with PasswordCost.
func NewPasswordChange(plain string, now time.Time) (PasswordChange, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)
	if err != nil {
		return PasswordChange{}, fmt.Errorf("hash password: %w", err)
	}
	return PasswordChange{Hash: string(hash), At: now.UTC()}, nil
}

// ChangedAt is recorded one second in the past so that a token minted right
// after the change is not considered stale.
func (pc PasswordChange) ChangedAt() time.Time {
	return pc.At.Add(-time.Second)
}

// SetPassword hashes plain and stores the hash. For a user that is already
// persisted the change timestamp is recorded as well.
func (u *User) SetPassword(plain string, now time.Time) error {
	pc, err := NewPasswordChange(plain, now)
	if err != nil {
		return err
	}
	u.PasswordHash = pc.Hash
	if u.ID != "" {
		changed := pc.ChangedAt()
		u.PasswordChangedAt = &changed
	}
	return nil
}

// CompleteReset applies pc and drops the reset token in one step.
func (u *User) CompleteReset(pc PasswordChange) {
	changed := pc.ChangedAt()
	u.PasswordHash = pc.Hash
	u.PasswordChangedAt = &changed
	u.UpdatedAt = pc.At
	u.ClearPasswordReset()
}

// CorrectPassword reports whether candidate matches the stored hash.
func (u *User) CorrectPassword(candidate string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(candidate)) == nil
}

// ChangedPasswordAfter reports whether the password was changed after a
// token issued at iat. Comparison is done at second precision, like JWT iat.
func (u *User) ChangedPasswordAfter(iat time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return iat.Unix() < u.PasswordChangedAt.Unix()
}

// CreatePasswordResetToken generates a raw reset token, stores its hash and
// expiry on the user and returns the raw value. The raw value is never stored.
func (u *User) CreatePasswordResetToken(now time.Time, ttl time.Duration) (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	raw := hex.EncodeToString(buf)

	expires := now.Add(ttl).UTC()
	u.PasswordResetToken = HashResetToken(raw)
	u.PasswordResetExpires = &expires
	return raw, nil
}

// ClearPasswordReset drops the stored reset hash and expiry.
func (u *User) ClearPasswordReset() {
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
}

// HashResetToken returns the hex sha256 of a raw reset token.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// HasRole reports whether the user's role is one of roles.
func (u *User) HasRole(roles ...string) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

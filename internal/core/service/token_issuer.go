package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/natours/auth-api/internal/core/domain"
)

const (
	msgTokenExpired = "Your token has expired! Please log in again."
	msgTokenInvalid = "Invalid token. Please log in again!"
)

// TokenConfig configures session token signing.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

// Claims are the JWT claims carried by a session token.
type Claims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 90 * 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(cfg.Secret), ttl: cfg.TTL, now: time.Now}, nil
}

// WithClock replaces the issuer's time source.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	t.now = now
	return t
}

// Issue signs a token for userID with iat=now and exp=now+TTL.
func (t *TokenIssuer) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("issue token: empty user id")
	}
	now := t.now()
	claims := Claims{
		ID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, algorithm and expiry and returns the claims.
// Every failure is an AppError of kind domain.ErrUnauthenticated.
func (t *TokenIssuer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.NewAppError(domain.ErrUnauthenticated, msgTokenExpired)
		}
		return nil, domain.NewAppError(domain.ErrUnauthenticated, msgTokenInvalid)
	}
	if !parsed.Valid || claims.ID == "" || claims.IssuedAt == nil {
		return nil, domain.NewAppError(domain.ErrUnauthenticated, msgTokenInvalid)
	}
	return claims, nil
}

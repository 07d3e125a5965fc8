// Package session carries session tokens between server and client in the
// jwt cookie.
package session

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/natours/auth-api/internal/core/domain"
	"github.com/natours/auth-api/internal/core/ports"
)

const (
	CookieName = "jwt"
	// LoggedOutValue overwrites the token on logout. It is never a valid token.
	LoggedOutValue = "loggedout"

	logoutTTL = 10 * time.Second
)

type CookieConfig struct {
	TTL time.Duration
	// TrustProxy honours X-Forwarded-Proto when deciding the Secure flag.
	TrustProxy bool
}

// CookieTransport issues session tokens and writes them to the jwt cookie.
type CookieTransport struct {
	tokens     ports.TokenIssuer
	ttl        time.Duration
	trustProxy bool
	now        func() time.Time
}

func NewCookieTransport(tokens ports.TokenIssuer, cfg CookieConfig) *CookieTransport {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CookieTransport{tokens: tokens, ttl: ttl, trustProxy: cfg.TrustProxy, now: time.Now}
}

// Attach issues a token for user, sets it as the session cookie and returns it
// so it can also be sent in the response body.
func (t *CookieTransport) Attach(c echo.Context, user *domain.User) (string, error) {
	token, err := t.tokens.Issue(user.ID)
	if err != nil {
		return "", err
	}
	c.SetCookie(t.cookie(c, token, t.now().Add(t.ttl)))
	return token, nil
}

// Clear replaces the session cookie with a short-lived placeholder.
func (t *CookieTransport) Clear(c echo.Context) {
	c.SetCookie(t.cookie(c, LoggedOutValue, t.now().Add(logoutTTL)))
}

// Secure reports whether cookies set on this request must be Secure.
func (t *CookieTransport) Secure(c echo.Context) bool {
	if c.IsTLS() {
		return true
	}
	return t.trustProxy && c.Request().Header.Get(echo.HeaderXForwardedProto) == "https"
}

func (t *CookieTransport) cookie(c echo.Context, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   t.Secure(c),
		SameSite: http.SameSiteLaxMode,
	}
}

// TokenFromCookie returns the session token carried by the request cookie, or
// "" when there is none or the client is logged out.
func TokenFromCookie(c echo.Context) string {
	cookie, err := c.Cookie(CookieName)
	if err != nil || cookie.Value == "" || cookie.Value == LoggedOutValue {
		return ""
	}
	return cookie.Value
}

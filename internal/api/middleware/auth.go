package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/natours/auth-api/internal/api/metrics"
	"github.com/natours/auth-api/internal/api/session"
	"github.com/natours/auth-api/internal/core/domain"
	"github.com/natours/auth-api/internal/core/ports"
)

const (
	userKey   = "user"
	localsKey = "locals.user"

	msgNotLoggedIn = "You are not logged in! Please log in to get access."
)

// Protect requires a valid session. The token is read from the
// Authorization bearer header, falling back to the jwt cookie. On success the
// user is available through CurrentUser.
func Protect(sessions ports.SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" {
				token = session.TokenFromCookie(c)
			}
			if token == "" {
				metrics.TokenVerificationsTotal.WithLabelValues("protect", metrics.ResultFailure).Inc()
				return domain.NewAppError(domain.ErrUnauthenticated, msgNotLoggedIn)
			}

			user, err := sessions.Resolve(c.Request().Context(), token)
			metrics.TokenVerificationsTotal.WithLabelValues("protect", metrics.Result(err)).Inc()
			if err != nil {
				return err
			}

			c.Set(userKey, user)
			c.Set(localsKey, user)
			return next(c)
		}
	}
}

// IsLoggedIn resolves the session cookie when present and exposes the user
// through LocalUser. It never rejects a request.
func IsLoggedIn(sessions ports.SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := session.TokenFromCookie(c)
			if token == "" {
				return next(c)
			}

			user, err := sessions.Resolve(c.Request().Context(), token)
			metrics.TokenVerificationsTotal.WithLabelValues("is_logged_in", metrics.Result(err)).Inc()
			if err == nil {
				c.Set(localsKey, user)
			}
			return next(c)
		}
	}
}

// CurrentUser returns the user resolved by Protect, or nil.
func CurrentUser(c echo.Context) *domain.User {
	u, _ := c.Get(userKey).(*domain.User)
	return u
}

// LocalUser returns the user exposed for rendering, or nil.
func LocalUser(c echo.Context) *domain.User {
	u, _ := c.Get(localsKey).(*domain.User)
	return u
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

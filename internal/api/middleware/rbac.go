package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/natours/auth-api/internal/core/domain"
)

const msgNoPermission = "You do not have permission to perform this action"

// RestrictTo allows only users whose role is one of allowedRoles. It must run
// after Protect.
func RestrictTo(allowedRoles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return domain.NewAppError(domain.ErrUnauthenticated, msgNotLoggedIn)
			}
			if !user.HasRole(allowedRoles...) {
				return domain.NewAppError(domain.ErrForbidden, msgNoPermission)
			}
			return next(c)
		}
	}
}

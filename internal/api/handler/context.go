package handler

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/natours/auth-api/internal/api/middleware"
	"github.com/natours/auth-api/internal/core/domain"
)

// currentUser returns the user resolved by the Protect middleware. A missing
// user means the route was mounted without Protect.
func currentUser(c echo.Context) (*domain.User, error) {
	user := middleware.CurrentUser(c)
	if user == nil {
		return nil, domain.NewAppError(domain.ErrUnauthenticated, "You are not logged in! Please log in to get access.")
	}
	return user, nil
}

// publicLink joins the configured public base URL and path. Links that leave
// the API by email never use the request Host.
func publicLink(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

// bindAndValidate decodes the request body into req and runs struct validation.
// Both failures are reported as bad input.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.NewAppError(domain.ErrBadInput, "invalid payload")
	}
	if c.Echo().Validator == nil {
		return nil
	}
	if err := c.Validate(req); err != nil {
		return domain.NewAppError(domain.ErrBadInput, err.Error())
	}
	return nil
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/natours/auth-api/internal/api/middleware"
	"github.com/natours/auth-api/internal/core/ports"
)

type UserHandler struct {
	authService ports.AuthService
}

func NewUserHandler(authService ports.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// Me returns the logged-in user.
//
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  messageResponse
// @Router       /api/v1/users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{Status: statusSuccess, Data: userData{User: user}})
}

// Session reports who is logged in through the session cookie. It never fails;
// the user is null for anonymous requests.
//
// @Summary      Session state
// @Tags         users
// @Produce      json
// @Success      200  {object}  userResponse
// @Router       /api/v1/users/session [get]
func (h *UserHandler) Session(c echo.Context) error {
	return c.JSON(http.StatusOK, userResponse{Status: statusSuccess, Data: userData{User: middleware.LocalUser(c)}})
}

// List returns all active users. Admin only.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  usersResponse
// @Failure      401  {object}  messageResponse
// @Failure      403  {object}  messageResponse
// @Router       /api/v1/users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.authService.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, usersResponse{
		Status:  statusSuccess,
		Results: len(users),
		Data:    usersData{Users: users},
	})
}

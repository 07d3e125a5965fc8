package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/natours/auth-api/internal/api/metrics"
	"github.com/natours/auth-api/internal/api/session"
	"github.com/natours/auth-api/internal/core/domain"
	"github.com/natours/auth-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	cookies     *session.CookieTransport
	publicURL   string
}

func NewAuthHandler(authService ports.AuthService, cookies *session.CookieTransport, publicURL string) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies, publicURL: publicURL}
}

// Signup creates a new user account and logs it in.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Account details"
// @Success      201   {object}  tokenResponse
// @Failure      400   {object}  messageResponse
// @Failure      409   {object}  messageResponse
// @Failure      500   {object}  messageResponse
// @Router       /api/v1/users/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Signup(c.Request().Context(), ports.SignupInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		WelcomeURL:      publicLink(h.publicURL, "/me"),
	})
	metrics.SignupsTotal.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	return sendToken(c, h.cookies, http.StatusCreated, user)
}

// Login authenticates with email and password and sets the session cookie.
//
// @Summary      Log in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  messageResponse
// @Failure      401   {object}  messageResponse
// @Failure      429   {object}  messageResponse
// @Router       /api/v1/users/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		result := metrics.ResultError
		if errors.Is(err, domain.ErrInvalidCredentials) || errors.Is(err, domain.ErrBadInput) {
			result = metrics.ResultFailure
		}
		metrics.LoginAttemptsTotal.WithLabelValues(result).Inc()
		return err
	}
	metrics.LoginAttemptsTotal.WithLabelValues(metrics.ResultSuccess).Inc()

	return sendToken(c, h.cookies, http.StatusOK, user)
}

// Logout overwrites the session cookie.
//
// @Summary      Log out
// @Tags         auth
// @Produce      json
// @Success      200  {object}  messageResponse
// @Router       /api/v1/users/logout [get]
func (h *AuthHandler) Logout(c echo.Context) error {
	h.cookies.Clear(c)
	return c.JSON(http.StatusOK, messageResponse{Status: statusSuccess})
}

// sendToken attaches a fresh session cookie for user and writes the token
// envelope.
func sendToken(c echo.Context, cookies *session.CookieTransport, status int, user *domain.User) error {
	token, err := cookies.Attach(c, user)
	if err != nil {
		return fmt.Errorf("attach session: %w", err)
	}
	return c.JSON(status, tokenResponse{
		Status: statusSuccess,
		Token:  token,
		Data:   userData{User: user},
	})
}

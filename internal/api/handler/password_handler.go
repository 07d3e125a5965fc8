package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/natours/auth-api/internal/api/metrics"
	"github.com/natours/auth-api/internal/api/session"
	"github.com/natours/auth-api/internal/core/ports"
)

// PasswordHandler serves the forgot, reset and update password routes.
type PasswordHandler struct {
	passwords ports.PasswordService
	cookies   *session.CookieTransport
	publicURL string
}

func NewPasswordHandler(passwords ports.PasswordService, cookies *session.CookieTransport, publicURL string) *PasswordHandler {
	return &PasswordHandler{passwords: passwords, cookies: cookies, publicURL: publicURL}
}

// ForgotPassword emails a password reset link.
//
// @Summary      Request a password reset email
// @Tags         password
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Account email"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  messageResponse
// @Failure      404   {object}  messageResponse
// @Failure      429   {object}  messageResponse
// @Failure      500   {object}  messageResponse
// @Router       /api/v1/users/forgotPassword [post]
func (h *PasswordHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	resetBase := publicLink(h.publicURL, "/api/v1/users/resetPassword")
	err := h.passwords.RequestReset(c.Request().Context(), req.Email, resetBase)
	metrics.PasswordResetEmailsTotal.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Status: statusSuccess, Message: "Token sent to email!"})
}

// ResetPassword sets a new password using an emailed reset token.
//
// @Summary      Reset password
// @Tags         password
// @Accept       json
// @Produce      json
// @Param        token  path      string                true  "Raw reset token"
// @Param        body   body      resetPasswordRequest  true  "New password"
// @Success      200    {object}  tokenResponse
// @Failure      400    {object}  messageResponse
// @Router       /api/v1/users/resetPassword/{token} [patch]
func (h *PasswordHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.passwords.ConsumeReset(c.Request().Context(), c.Param("token"), req.Password, req.PasswordConfirm)
	if err != nil {
		return err
	}
	return sendToken(c, h.cookies, http.StatusOK, user)
}

// UpdateMyPassword changes the password of the logged-in user.
//
// @Summary      Update own password
// @Tags         password
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updatePasswordRequest  true  "Current and new password"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  messageResponse
// @Failure      401   {object}  messageResponse
// @Router       /api/v1/users/updateMyPassword [patch]
func (h *PasswordHandler) UpdateMyPassword(c echo.Context) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}

	var req updatePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.passwords.UpdatePassword(c.Request().Context(), me.ID, req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		return err
	}
	return sendToken(c, h.cookies, http.StatusOK, user)
}

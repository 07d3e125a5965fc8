package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/natours/auth-api/internal/core/domain"
)

const msgInternal = "Something went very wrong!"

// errorResponse is the canonical error envelope for all API errors.
// Status is "fail" for 4xx and "error" for 5xx.
type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Renders operational errors (*domain.AppError) with their own status and message.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"status": "...", "message": "..."}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		status := "fail"
		if code >= http.StatusInternalServerError {
			status = "error"
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Status: status, Message: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logError(log, c, err)
		}
		return appErr.Status, appErr.Message
	}

	// Bare sentinels from repositories.
	if code := domain.StatusCode(err); code < http.StatusInternalServerError {
		return code, err.Error()
	}

	logError(log, c, err)
	fallback := domain.NewAppError(domain.ErrInternal, msgInternal)
	return fallback.Status, fallback.Message
}

func logError(log zerolog.Logger, c echo.Context, err error) {
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")
}

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/natours/auth-api/internal/api/session"
	"github.com/natours/auth-api/internal/core/domain"
	"github.com/natours/auth-api/internal/core/ports"
)

type stubAuthService struct {
	signupFn func(ctx context.Context, in ports.SignupInput) (*domain.User, error)
	loginFn  func(ctx context.Context, email, password string) (*domain.User, error)
	listFn   func(ctx context.Context) ([]*domain.User, error)
}

func (s *stubAuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
	return s.signupFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.listFn(ctx)
}

type stubPasswordService struct {
	requestFn func(ctx context.Context, email, resetURLBase string) error
	consumeFn func(ctx context.Context, rawToken, password, confirm string) (*domain.User, error)
	updateFn  func(ctx context.Context, userID, current, password, confirm string) (*domain.User, error)
}

func (s *stubPasswordService) RequestReset(ctx context.Context, email, resetURLBase string) error {
	return s.requestFn(ctx, email, resetURLBase)
}

func (s *stubPasswordService) ConsumeReset(ctx context.Context, rawToken, password, confirm string) (*domain.User, error) {
	return s.consumeFn(ctx, rawToken, password, confirm)
}

func (s *stubPasswordService) UpdatePassword(ctx context.Context, userID, current, password, confirm string) (*domain.User, error) {
	return s.updateFn(ctx, userID, current, password, confirm)
}

const testPublicURL = "https://natours.test"

type stubIssuer struct{}

func (stubIssuer) Issue(userID string) (string, error) {
	return "token-" + userID, nil
}

func newCookies() *session.CookieTransport {
	return session.NewCookieTransport(stubIssuer{}, session.CookieConfig{TrustProxy: true})
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

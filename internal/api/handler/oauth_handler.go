package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/natours/auth-api/internal/api/metrics"
	"github.com/natours/auth-api/internal/api/session"
	"github.com/natours/auth-api/internal/core/ports"
)

const (
	stateCookieName   = "oauth_state"
	stateCookieMaxAge = 600

	successRedirect = "/me"
	failureRedirect = "/login"
)

// OAuthHandler delegates login to an external identity provider.
type OAuthHandler struct {
	provider ports.OAuthProvider
	states   ports.StateStore
	oauth    ports.OAuthService
	cookies  *session.CookieTransport
	log      zerolog.Logger
}

func NewOAuthHandler(provider ports.OAuthProvider, states ports.StateStore, oauth ports.OAuthService, cookies *session.CookieTransport, log zerolog.Logger) *OAuthHandler {
	return &OAuthHandler{provider: provider, states: states, oauth: oauth, cookies: cookies, log: log}
}

// Begin redirects to the provider's consent screen.
//
// @Summary      Start Google sign-in
// @Tags         oauth
// @Success      307
// @Router       /auth/google [get]
func (h *OAuthHandler) Begin(c echo.Context) error {
	state := uuid.NewString()
	if err := h.states.Save(c.Request().Context(), state); err != nil {
		h.log.Error().Err(err).Str("provider", h.provider.Name()).Msg("oauth state could not be stored")
		return c.Redirect(http.StatusSeeOther, failureRedirect)
	}

	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   stateCookieMaxAge,
		HttpOnly: true,
		Secure:   h.cookies.Secure(c),
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusTemporaryRedirect, h.provider.AuthCodeURL(state))
}

// Callback completes the provider flow, logs the user in and redirects to
// the account page. Every failure redirects to the login page.
//
// @Summary      Google sign-in callback
// @Tags         oauth
// @Param        state  query  string  true  "OAuth state"
// @Param        code   query  string  true  "Authorization code"
// @Success      303
// @Router       /auth/google/callback [get]
func (h *OAuthHandler) Callback(c echo.Context) error {
	provider := h.provider.Name()
	fail := func(reason string, err error) error {
		h.log.Warn().Err(err).Str("provider", provider).Str("reason", reason).Msg("oauth login failed")
		metrics.OAuthLoginsTotal.WithLabelValues(provider, metrics.ResultFailure).Inc()
		return c.Redirect(http.StatusSeeOther, failureRedirect)
	}

	state := c.QueryParam("state")
	cookie, err := c.Cookie(stateCookieName)
	c.SetCookie(&http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	if err != nil || state == "" || cookie.Value != state {
		return fail("state_mismatch", err)
	}

	ctx := c.Request().Context()
	ok, err := h.states.Consume(ctx, state)
	if err != nil || !ok {
		return fail("state_unknown", err)
	}

	code := c.QueryParam("code")
	if code == "" {
		return fail("missing_code", nil)
	}

	profile, err := h.provider.Exchange(ctx, code)
	if err != nil {
		return fail("exchange", err)
	}

	user, err := h.oauth.Resolve(ctx, *profile)
	if err != nil {
		return fail("resolve_user", err)
	}

	if _, err := h.cookies.Attach(c, user); err != nil {
		return fail("attach_session", err)
	}

	metrics.OAuthLoginsTotal.WithLabelValues(provider, metrics.ResultSuccess).Inc()
	h.log.Info().Str("user_id", user.ID).Str("provider", provider).Msg("user logged in with oauth")
	return c.Redirect(http.StatusSeeOther, successRedirect)
}

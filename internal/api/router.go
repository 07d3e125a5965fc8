package api

import (
	"net"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/natours/auth-api/docs"
	"github.com/natours/auth-api/internal/api/handler"
	"github.com/natours/auth-api/internal/api/middleware"
	"github.com/natours/auth-api/internal/api/session"
	"github.com/natours/auth-api/internal/core/domain"
	"github.com/natours/auth-api/internal/core/ports"
)

const rateLimitScope = "auth"

// OAuthDeps enables the Google sign-in routes.
type OAuthDeps struct {
	Provider ports.OAuthProvider
	States   ports.StateStore
	Service  ports.OAuthService
}

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Logger    zerolog.Logger
	Auth      ports.AuthService
	Passwords ports.PasswordService
	Sessions  ports.SessionResolver
	Cookies   *session.CookieTransport
	// PublicURL is the externally visible base URL used in emailed links.
	PublicURL string

	// TrustProxy reads the client IP from X-Forwarded-For, but only through
	// hops in private networks or TrustedProxies.
	TrustProxy     bool
	TrustedProxies []*net.IPNet

	// Optional. A nil value leaves the feature off.
	OAuth       *OAuthDeps
	RateLimiter middleware.Limiter
	// Registry receives the HTTP metrics. Defaults to the global registry.
	Registry     *prometheus.Registry
	HealthChecks []handler.HealthCheck
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)
	e.IPExtractor = ipExtractor(deps.TrustProxy, deps.TrustedProxies)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Logger))
	registerMetrics(e, deps.Registry)

	// --- Health probes and docs (no auth required) ---
	health := handler.NewHealthHandler(deps.HealthChecks...)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Users ---
	authHandler := handler.NewAuthHandler(deps.Auth, deps.Cookies, deps.PublicURL)
	passwordHandler := handler.NewPasswordHandler(deps.Passwords, deps.Cookies, deps.PublicURL)
	userHandler := handler.NewUserHandler(deps.Auth)

	var limited []echo.MiddlewareFunc
	if deps.RateLimiter != nil {
		limited = append(limited, middleware.RateLimit(deps.RateLimiter, rateLimitScope, deps.Logger))
	}
	protect := middleware.Protect(deps.Sessions)

	users := e.Group("/api/v1/users")
	users.POST("/signup", authHandler.Signup, limited...)
	users.POST("/login", authHandler.Login, limited...)
	users.GET("/logout", authHandler.Logout)
	users.POST("/forgotPassword", passwordHandler.ForgotPassword, limited...)
	users.PATCH("/resetPassword/:token", passwordHandler.ResetPassword, limited...)
	users.GET("/session", userHandler.Session, middleware.IsLoggedIn(deps.Sessions))

	users.PATCH("/updateMyPassword", passwordHandler.UpdateMyPassword, protect)
	users.GET("/me", userHandler.Me, protect)
	users.GET("", userHandler.List, protect, middleware.RestrictTo(domain.RoleAdmin))

	// --- OAuth ---
	if deps.OAuth != nil {
		oauthHandler := handler.NewOAuthHandler(deps.OAuth.Provider, deps.OAuth.States, deps.OAuth.Service, deps.Cookies, deps.Logger)
		e.GET("/auth/google", oauthHandler.Begin)
		e.GET("/auth/google/callback", oauthHandler.Callback)
	}

	return e
}

func ipExtractor(trustProxy bool, proxies []*net.IPNet) echo.IPExtractor {
	if !trustProxy {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	}
	for _, p := range proxies {
		opts = append(opts, echo.TrustIPRange(p))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func registerMetrics(e *echo.Echo, reg *prometheus.Registry) {
	mwConfig := echoprometheus.MiddlewareConfig{Namespace: "natours_auth", Subsystem: "http"}
	handlerConfig := echoprometheus.HandlerConfig{}
	if reg != nil {
		mwConfig.Registerer = reg
		handlerConfig.Gatherer = reg
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(mwConfig))
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(handlerConfig))
}

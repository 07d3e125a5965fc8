// Package app wires configuration, storage, services and the HTTP server.
package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/natours/auth-api/internal/api"
	"github.com/natours/auth-api/internal/api/handler"
	"github.com/natours/auth-api/internal/api/metrics"
	"github.com/natours/auth-api/internal/api/session"
	"github.com/natours/auth-api/internal/core/ports"
	"github.com/natours/auth-api/internal/core/service"
	"github.com/natours/auth-api/internal/infrastructure/config"
	"github.com/natours/auth-api/internal/infrastructure/db/memory"
	mongostore "github.com/natours/auth-api/internal/infrastructure/db/mongo"
	redisstore "github.com/natours/auth-api/internal/infrastructure/db/redis"
	httpserver "github.com/natours/auth-api/internal/infrastructure/http"
	"github.com/natours/auth-api/internal/infrastructure/mail"
	"github.com/natours/auth-api/internal/infrastructure/oauth"
	"github.com/natours/auth-api/internal/infrastructure/queue"
)

const mailDrainTimeout = 30 * time.Second

// Run starts the service and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	var checks []handler.HealthCheck

	users, closeStore, storeCheck, err := openUserStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	if storeCheck != nil {
		checks = append(checks, *storeCheck)
	}

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()
	checks = append(checks, handler.HealthCheck{
		Name:  "redis",
		Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})

	tokens, err := service.NewTokenIssuer(service.TokenConfig{Secret: cfg.Auth.JWTSecret, TTL: cfg.Auth.JWTTTL})
	if err != nil {
		return err
	}
	sessions := service.NewSessionService(tokens, users, log)
	cookies := session.NewCookieTransport(sessions, session.CookieConfig{
		TTL:        cfg.Auth.CookieTTL,
		TrustProxy: cfg.Auth.TrustProxy,
	})

	mailer := mail.NewMailer(mail.Config{
		APIKey:   cfg.Mail.ResendAPIKey,
		From:     cfg.Mail.From,
		AppName:  cfg.App.Name,
		ResetTTL: cfg.Auth.ResetTTL,
		Dev:      !cfg.IsProduction(),
	}, log)

	dispatcher := queue.NewMailDispatcher(cfg.Workers, mailer, log)
	dispatcher.OnSent(func(err error) {
		metrics.WelcomeEmailsTotal.WithLabelValues(metrics.Result(err)).Inc()
	})
	dispatcher.Start()
	// Runs after the HTTP server has fully shut down, so mails queued by the
	// last in-flight signups are still delivered.
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), mailDrainTimeout)
		defer cancel()
		if err := dispatcher.Stop(drainCtx); err != nil {
			log.Warn().Err(err).Msg("welcome email queue not fully drained")
		}
	}()

	proxies, err := cfg.ProxyRanges()
	if err != nil {
		return err
	}

	deps := api.Deps{
		Logger:         log,
		Auth:           service.NewAuthService(users, dispatcher, log),
		Passwords:      service.NewPasswordService(users, mailer, cfg.Auth.ResetTTL, log),
		Sessions:       sessions,
		Cookies:        cookies,
		PublicURL:      cfg.App.URL,
		TrustProxy:     cfg.Auth.TrustProxy,
		TrustedProxies: proxies,
		RateLimiter:    redisstore.NewRateLimiter(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window),
		HealthChecks:   checks,
	}
	if cfg.GoogleEnabled() {
		deps.OAuth = googleDeps(cfg, rdb, users, log)
	} else {
		log.Warn().Msg("GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set, google sign-in disabled")
	}

	return httpserver.NewServer(api.NewRouter(deps), cfg.App.Port, log).Run(ctx)
}

func openUserStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.UserRepository, func(), *handler.HealthCheck, error) {
	if cfg.Store == "memory" {
		log.Warn().Msg("using in-memory user store, data is lost on restart")
		return memory.NewUserRepository(), func() {}, nil, nil
	}

	client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect failed")
		}
	}

	repo := mongostore.NewUserRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		closeFn()
		return nil, nil, nil, fmt.Errorf("prepare user collection: %w", err)
	}

	check := &handler.HealthCheck{
		Name:  "mongodb",
		Check: func(ctx context.Context) error { return mongostore.Ping(ctx, db) },
	}
	return repo, closeFn, check, nil
}

func googleDeps(cfg *config.Config, rdb *goredis.Client, users ports.UserRepository, log zerolog.Logger) *api.OAuthDeps {
	return &api.OAuthDeps{
		Provider: oauth.NewGoogleProvider(oauth.GoogleConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.App.URL + "/auth/google/callback",
		}),
		States:  redisstore.NewStateStore(rdb, 0),
		Service: service.NewOAuthService(users, log),
	}
}

// @title                       Natours Auth API
// @version                     1.0
// @description                 Session and token authentication: signup, login, password reset and Google sign-in.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/natours/auth-api/internal/app"
	"github.com/natours/auth-api/internal/infrastructure/config"
	"github.com/natours/auth-api/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.New(logger.Options{Service: "auth-api"})
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.App.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "auth-api",
		Env:     cfg.App.Env,
	})

	if err := app.Run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("service stopped with error")
	}
	log.Info().Msg("service stopped")
}

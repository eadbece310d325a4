package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/clinic/backoffice/internal/api"
	"github.com/clinic/backoffice/internal/core/service"
	"github.com/clinic/backoffice/internal/infrastructure/config"
	"github.com/clinic/backoffice/internal/infrastructure/directory"
	httpx "github.com/clinic/backoffice/internal/infrastructure/http"
	"github.com/clinic/backoffice/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		panic(err)
	}
	if cfg.Service == "" {
		cfg.Service = "auth-service"
	}

	log := logger.Init(logger.Options{
		Service: cfg.Service,
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
	})

	if err := cfg.ValidateSigningSecret(); err != nil {
		log.Fatal().Err(err).Msg("refusing to start")
	}

	dir := directory.NewClient(cfg.Directory.BaseURL, cfg.Directory.Timeout)
	authService := service.NewAuthService(dir, service.NewTokenIssuer(cfg.JWTSecret), log)

	e := httpx.NewRouter(httpx.Options{
		Service:    cfg.Service,
		Log:        log,
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
	})
	api.RegisterAuthRoutes(e, authService)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpx.Serve(gctx, e, ":"+cfg.Port, log) })

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("auth service stopped")
	}
	log.Info().Msg("auth service stopped")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/clinic/backoffice/internal/api"
	"github.com/clinic/backoffice/internal/core/service"
	"github.com/clinic/backoffice/internal/infrastructure/config"
	mongodb "github.com/clinic/backoffice/internal/infrastructure/db/mongo"
	rdb "github.com/clinic/backoffice/internal/infrastructure/db/redis"
	httpx "github.com/clinic/backoffice/internal/infrastructure/http"
	"github.com/clinic/backoffice/internal/infrastructure/http/handlers"
	"github.com/clinic/backoffice/internal/infrastructure/queue"
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
		cfg.Service = "user-service"
	}

	log := logger.Init(logger.Options{
		Service: cfg.Service,
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
	})

	if err := cfg.ValidateSigningSecret(); err != nil {
		log.Fatal().Err(err).Msg("refusing to start")
	}

	// --- Stores ---
	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("mongo indexes failed")
	}

	redisClient, err := rdb.Connect(ctx, rdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()

	// --- Outbox relay ---
	relay := queue.NewOutboxRelay(
		mongodb.NewOutboxRepository(db),
		rdb.NewStreamPublisher(redisClient, cfg.Broker.MaxLen),
		cfg.Outbox.PollInterval,
		cfg.Outbox.BatchSize,
		log,
	)

	// --- Services ---
	userService := service.NewUserService(
		mongodb.NewUserRepository(db),
		mongodb.NewTokenRepository(db),
		mongodb.NewRegistrationStore(client, db),
		cfg.Broker.Stream,
		relay.Notify,
		log,
	)

	e := httpx.NewRouter(httpx.Options{
		Service:    cfg.Service,
		Log:        log,
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
		Checks: map[string]handlers.Pinger{
			"mongodb": func(ctx context.Context) error { return client.Ping(ctx, nil) },
			"redis":   func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})
	api.RegisterUserRoutes(e, userService, service.NewTokenValidator(cfg.JWTSecret), log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpx.Serve(gctx, e, ":"+cfg.Port, log) })
	g.Go(func() error { return relay.Run(gctx) })

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("user service stopped")
		return
	}
	log.Info().Msg("user service stopped")
}

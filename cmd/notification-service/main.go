package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/clinic/backoffice/internal/core/service"
	"github.com/clinic/backoffice/internal/infrastructure/config"
	rdb "github.com/clinic/backoffice/internal/infrastructure/db/redis"
	httpx "github.com/clinic/backoffice/internal/infrastructure/http"
	"github.com/clinic/backoffice/internal/infrastructure/http/handlers"
	"github.com/clinic/backoffice/internal/infrastructure/mail"
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
		cfg.Service = "notification-service"
	}

	log := logger.Init(logger.Options{
		Service: cfg.Service,
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
	})

	redisClient, err := rdb.Connect(ctx, rdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()

	notifier := service.NewNotificationService(
		mail.NewRenderer(mail.TemplatesFrom(cfg.Mail.TemplateDir)),
		mail.NewSMTPSender(
			cfg.SMTP.Host, cfg.SMTP.Port,
			cfg.Mail.From, cfg.Mail.FromName,
			cfg.SMTP.Username, cfg.SMTP.Password,
			cfg.SMTP.TLSMode, log,
		),
		rdb.NewDedupChecker(redisClient, cfg.Broker.DedupTTL),
		log,
	)

	consumer := queue.NewConsumer(redisClient, queue.ConsumerConfig{
		Stream:        cfg.Broker.Stream,
		DeadLetter:    cfg.Broker.DeadLetter,
		Group:         cfg.Broker.Group,
		Consumer:      consumerName(cfg.Broker.Consumer),
		Workers:       cfg.Broker.Workers,
		Block:         cfg.Broker.Block,
		BatchSize:     cfg.Broker.BatchSize,
		ClaimMinIdle:  cfg.Broker.ClaimMinIdle,
		MaxDeliveries: cfg.Broker.MaxDelivery,
	}, notifier, log)

	e := httpx.NewRouter(httpx.Options{
		Service:    cfg.Service,
		Log:        log,
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
		Checks: map[string]handlers.Pinger{
			"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpx.Serve(gctx, e, ":"+cfg.Port, log) })
	g.Go(func() error { return consumer.Run(gctx) })

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("notification service stopped")
		return
	}
	log.Info().Msg("notification service stopped")
}

// consumerName keeps an explicit name so pending entries survive restarts;
// otherwise it derives a unique one per process.
func consumerName(configured string) string {
	if configured != "" {
		return configured
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "notification"
	}
	return host + "-" + uuid.NewString()
}

package http

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/clinic/backoffice/internal/api"
	"github.com/clinic/backoffice/internal/infrastructure/http/handlers"
)

// Options configures the shared Echo instance every service starts from.
type Options struct {
	Service string
	Log     zerolog.Logger
	// Registerer enables request metrics and GET /metrics. Nil disables both.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	// Checks are pinged by the readiness probe, keyed by dependency name.
	Checks map[string]handlers.Pinger
}

// NewRouter builds the base Echo instance with global middleware and health
// probes. Services mount their own routes on the result.
func NewRouter(opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = api.NewHTTPErrorHandler(opts.Log, nil)

	// --- Global middleware ---
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(opts.Log))

	if opts.Registerer != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Subsystem:  "http",
			Registerer: opts.Registerer,
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/metrics"
			},
		}))
		gatherer := opts.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	}

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler(opts.Service)
	readinessHandler := handlers.NewReadinessHandler(opts.Checks)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

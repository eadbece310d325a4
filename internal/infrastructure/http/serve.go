package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ShutdownTimeout bounds graceful shutdown once ctx is cancelled.
const ShutdownTimeout = 10 * time.Second

// Serve runs e on addr until ctx is cancelled, then drains in-flight
// requests. A clean shutdown returns nil.
func Serve(ctx context.Context, e *echo.Echo, addr string, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	log.Info().Msg("shutting down http server")
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

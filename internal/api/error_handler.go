package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/backoffice/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Code      int       `json:"code"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Errors    []string  `json:"errors,omitempty"`
}

// statusByKind is the single mapping from error kind to HTTP status.
var statusByKind = map[domain.Kind]int{
	domain.KindNotFound:        http.StatusNotFound,
	domain.KindUnauthorized:    http.StatusUnauthorized,
	domain.KindForbidden:       http.StatusForbidden,
	domain.KindBadRequest:      http.StatusBadRequest,
	domain.KindBrokerMsg:       http.StatusServiceUnavailable,
	domain.KindToken:           http.StatusUnauthorized,
	domain.KindEmailSending:    http.StatusServiceUnavailable,
	domain.KindUpstream:        http.StatusBadGateway,
	domain.KindUpstreamTimeout: http.StatusGatewayTimeout,
}

// StatusFor returns the HTTP status for err.
func StatusFor(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	if code, ok := statusByKind[domain.KindOf(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that renders every
// failure as the structured error body. Unexpected errors are logged and
// reported as a bare 500.
func NewHTTPErrorHandler(log zerolog.Logger, now func() time.Time) echo.HTTPErrorHandler {
	if now == nil {
		now = time.Now
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := StatusFor(err)
		resp := errorResponse{
			Code:      code,
			Status:    http.StatusText(code),
			Timestamp: now().UTC(),
			Method:    c.Request().Method,
			Path:      c.Request().URL.Path,
		}
		resp.Message, resp.Errors = describe(err)

		if code >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Int("status", code).
				Str("method", resp.Method).
				Str("path", resp.Path).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, resp)
	}
}

func describe(err error) (string, []string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return fmt.Sprintf("%v", he.Message), nil
	}

	var de *domain.Error
	if errors.As(err, &de) && de.Kind != domain.KindInternal {
		return de.Message, de.Violations
	}
	return http.StatusText(http.StatusInternalServerError), nil
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func serve(t *testing.T, h echo.HandlerFunc) (*httptest.ResponseRecorder, readinessResponse) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var body readinessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return rec, body
}

func ok(context.Context) error { return nil }

func TestLiveness(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

	if err := NewHealthHandler("auth-service").Liveness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusOK || body["status"] != "ok" || body["service"] != "auth-service" {
		t.Fatalf("unexpected response: %d %v", rec.Code, body)
	}
}

func TestReadiness_AllHealthy(t *testing.T) {
	h := NewReadinessHandler(map[string]Pinger{"mongodb": ok, "redis": ok})

	rec, body := serve(t, h.Readiness)
	if rec.Code != http.StatusOK || body.Status != "ok" {
		t.Fatalf("unexpected response: %d %+v", rec.Code, body)
	}
	if len(body.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %+v", body.Dependencies)
	}
}

func TestReadiness_Degraded(t *testing.T) {
	h := NewReadinessHandler(map[string]Pinger{
		"mongodb": ok,
		"redis":   func(context.Context) error { return errors.New("connection refused") },
	})

	rec, body := serve(t, h.Readiness)
	if rec.Code != http.StatusServiceUnavailable || body.Status != "degraded" {
		t.Fatalf("unexpected response: %d %+v", rec.Code, body)
	}
	if body.Dependencies["redis"].Error != "connection refused" || body.Dependencies["mongodb"].Status != "ok" {
		t.Fatalf("unexpected dependencies: %+v", body.Dependencies)
	}
}

func TestReadiness_Budget(t *testing.T) {
	h := NewReadinessHandler(map[string]Pinger{
		"mongodb": func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})
	h.budget = 10 * time.Millisecond

	rec, body := serve(t, h.Readiness)
	if rec.Code != http.StatusServiceUnavailable || body.Dependencies["mongodb"].Status != "unhealthy" {
		t.Fatalf("slow dependency must fail readiness: %d %+v", rec.Code, body)
	}
}

func TestReadiness_NoChecks(t *testing.T) {
	rec, body := serve(t, NewReadinessHandler(nil).Readiness)
	if rec.Code != http.StatusOK || body.Status != "ok" {
		t.Fatalf("unexpected response: %d %+v", rec.Code, body)
	}
}

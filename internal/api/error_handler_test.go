package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/backoffice/internal/core/domain"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func render(t *testing.T, method string, err error) (*httptest.ResponseRecorder, errorResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/users/create", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop(), func() time.Time { return fixedNow })(err, c)

	var body errorResponse
	if method != http.MethodHead {
		if jerr := json.Unmarshal(rec.Body.Bytes(), &body); jerr != nil {
			t.Fatalf("invalid json: %v", jerr)
		}
	}
	return rec, body
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.NotFound("User not found"), http.StatusNotFound},
		{domain.Unauthorized("Incorrect Password"), http.StatusUnauthorized},
		{domain.Forbidden("Access denied"), http.StatusForbidden},
		{domain.BadRequest("Email is required."), http.StatusBadRequest},
		{domain.BrokerMsg("publish failed", errors.New("down")), http.StatusServiceUnavailable},
		{domain.InvalidToken("Token expired", nil), http.StatusUnauthorized},
		{domain.Upstream("directory", errors.New("refused")), http.StatusBadGateway},
		{domain.UpstreamTimeout("directory", errors.New("deadline")), http.StatusGatewayTimeout},
		{fmt.Errorf("wrapped: %w", domain.NotFound("x")), http.StatusNotFound},
		{echo.NewHTTPError(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.err); got != tc.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestErrorHandler_StructuredBody(t *testing.T) {
	rec, body := render(t, http.MethodPost, domain.BadRequest("Full name is required.", "DNI is required."))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body.Code != 400 || body.Status != "Bad Request" || body.Method != http.MethodPost || body.Path != "/users/create" {
		t.Fatalf("unexpected envelope: %+v", body)
	}
	if !body.Timestamp.Equal(fixedNow) {
		t.Fatalf("unexpected timestamp: %v", body.Timestamp)
	}
	if len(body.Errors) != 2 || body.Errors[1] != "DNI is required." {
		t.Fatalf("violations not rendered: %v", body.Errors)
	}
}

func TestErrorHandler_ForbiddenMessage(t *testing.T) {
	rec, body := render(t, http.MethodGet, domain.Forbidden(domain.MsgUnauthorizedAccess))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if body.Status != "Forbidden" || body.Message != "Unauthorized resource access" {
		t.Fatalf("unexpected envelope: %+v", body)
	}
	if body.Errors != nil {
		t.Fatalf("errors must be omitted: %v", body.Errors)
	}
}

func TestErrorHandler_InternalHidesCause(t *testing.T) {
	rec, body := render(t, http.MethodGet, errors.New("mongo: connection string leaked"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body.Message != "Internal Server Error" {
		t.Fatalf("cause leaked: %q", body.Message)
	}
}

func TestErrorHandler_EchoHTTPError(t *testing.T) {
	rec, body := render(t, http.MethodGet, echo.ErrNotFound)

	if rec.Code != http.StatusNotFound || body.Message != "Not Found" {
		t.Fatalf("unexpected: %d %+v", rec.Code, body)
	}
}

func TestErrorHandler_Head(t *testing.T) {
	rec, _ := render(t, http.MethodHead, domain.NotFound("User not found"))

	if rec.Code != http.StatusNotFound || rec.Body.Len() != 0 {
		t.Fatalf("HEAD must carry no body: %d %q", rec.Code, rec.Body.String())
	}
}

package directory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clinic/backoffice/internal/core/domain"
)

func TestClient_FullData_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/full-data/a@b.com" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"email":"a@b.com","fullName":"A B","password":"$2a$10$hash",
			"roles":["ADMIN","STAFF"],"enabled":true,"accountNonExpired":true,
			"accountNonLocked":false,"credentialsNonExpired":true
		}`))
	}))
	defer srv.Close()

	user, err := NewClient(srv.URL+"/", time.Second).FullData(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("FullData returned error: %v", err)
	}
	if user.Email != "a@b.com" || user.PasswordHash != "$2a$10$hash" {
		t.Fatalf("unexpected identity: %+v", user)
	}
	if len(user.Roles) != 2 || user.Roles[0] != domain.RoleAdmin {
		t.Fatalf("unexpected roles: %v", user.Roles)
	}
	if !user.Enabled || user.AccountNonLocked {
		t.Fatalf("status flags not decoded: %+v", user)
	}
}

func TestClient_FullData_NonOKIsNotFound(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := NewClient(srv.URL, time.Second).FullData(context.Background(), "a@b.com")
		srv.Close()

		var derr *domain.Error
		if !errors.As(err, &derr) || derr.Kind != domain.KindNotFound || derr.Message != domain.MsgUserNotFound {
			t.Fatalf("status %d: expected %q, got %v", status, domain.MsgUserNotFound, err)
		}
	}
}

func TestClient_FullData_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(srv.URL, 50*time.Millisecond).FullData(context.Background(), "a@b.com")
	if !errors.Is(err, domain.ErrUpstreamTimeout) {
		t.Fatalf("expected upstream timeout, got %v", err)
	}
}

func TestClient_FullData_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := NewClient(addr, time.Second).FullData(context.Background(), "a@b.com")
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestClient_FullData_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).FullData(context.Background(), "a@b.com")
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

package service

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/clinic/backoffice/internal/core/domain"
)

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func activeIdentity(t *testing.T, email, password string) *domain.Identity {
	t.Helper()
	return &domain.Identity{
		Email:                 email,
		PasswordHash:          hashPassword(t, password),
		Enabled:               true,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
		Roles:                 []domain.RoleName{domain.RolePatient},
	}
}

func TestAuthenticate_CheckOrder(t *testing.T) {
	tests := []struct {
		name     string
		password string
		mutate   func(*domain.Identity)
		wantMsg  string
	}{
		{
			name:     "all checks pass",
			password: "right",
			mutate:   func(*domain.Identity) {},
		},
		{
			name:     "wrong password beats every flag",
			password: "wrong",
			mutate: func(u *domain.Identity) {
				u.Enabled = false
				u.AccountNonExpired = false
				u.AccountNonLocked = false
				u.CredentialsNonExpired = false
			},
			wantMsg: domain.MsgIncorrectPassword,
		},
		{
			name:     "disabled beats expired and locked",
			password: "right",
			mutate: func(u *domain.Identity) {
				u.Enabled = false
				u.AccountNonExpired = false
				u.AccountNonLocked = false
			},
			wantMsg: domain.MsgUserNotEnabled,
		},
		{
			name:     "expired beats locked",
			password: "right",
			mutate: func(u *domain.Identity) {
				u.AccountNonExpired = false
				u.AccountNonLocked = false
				u.CredentialsNonExpired = false
			},
			wantMsg: domain.MsgAccountExpired,
		},
		{
			name:     "locked beats credentials expired",
			password: "right",
			mutate: func(u *domain.Identity) {
				u.AccountNonLocked = false
				u.CredentialsNonExpired = false
			},
			wantMsg: domain.MsgAccountLocked,
		},
		{
			name:     "credentials expired",
			password: "right",
			mutate: func(u *domain.Identity) {
				u.CredentialsNonExpired = false
			},
			wantMsg: domain.MsgCredentialsExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := activeIdentity(t, "a@b.com", "right")
			tt.mutate(user)

			err := Authenticate(user, tt.password)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}

			var derr *domain.Error
			if !errors.As(err, &derr) {
				t.Fatalf("expected *domain.Error, got %v", err)
			}
			if derr.Kind != domain.KindUnauthorized {
				t.Fatalf("expected unauthorized, got %s", derr.Kind)
			}
			if derr.Message != tt.wantMsg {
				t.Fatalf("expected %q, got %q", tt.wantMsg, derr.Message)
			}
		})
	}
}

func TestAuthenticate_NoPasswordSet(t *testing.T) {
	user := activeIdentity(t, "a@b.com", "right")
	user.PasswordHash = ""

	err := Authenticate(user, "")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

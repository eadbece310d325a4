package service

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clinic/backoffice/internal/core/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func decodeClaims(t *testing.T, token string) map[string]interface{} {
	t.Helper()
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 token segments, got %d", len(parts))
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	claims := map[string]interface{}{}
	if err := json.Unmarshal(raw, &claims); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	return claims
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSecret)
	validator := NewTokenValidator(testSecret)

	cases := [][]domain.RoleName{
		{domain.RoleAdmin},
		{domain.RolePatient, domain.RoleStaff},
		{domain.RoleStaff, domain.RoleAdmin, domain.RolePatient},
	}
	for _, roles := range cases {
		token, err := issuer.Issue("a@b.com", roles)
		if err != nil {
			t.Fatalf("Issue returned error: %v", err)
		}
		p, err := validator.Validate(token)
		if err != nil {
			t.Fatalf("Validate returned error: %v", err)
		}
		if p.Subject != "a@b.com" {
			t.Fatalf("expected subject a@b.com, got %s", p.Subject)
		}
		if !sameRoles(p.Roles, roles) {
			t.Fatalf("expected roles %v, got %v", roles, p.Roles)
		}
	}
}

func sameRoles(a, b []domain.RoleName) bool {
	if len(a) != len(b) {
		return false
	}
	as := make([]string, len(a))
	bs := make([]string, len(b))
	for i := range a {
		as[i] = string(a[i])
		bs[i] = string(b[i])
	}
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func TestTokenIssuer_ClaimsShape(t *testing.T) {
	issuer := NewTokenIssuer(testSecret)
	issuer.now = fixedClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	token, err := issuer.Issue("a@b.com", []domain.RoleName{domain.RolePatient})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims := decodeClaims(t, token)
	if claims["sub"] != "a@b.com" {
		t.Fatalf("unexpected sub: %v", claims["sub"])
	}
	iat, _ := claims["iat"].(float64)
	exp, _ := claims["exp"].(float64)
	if exp-iat != 3600 {
		t.Fatalf("expected exp - iat == 3600, got %v", exp-iat)
	}
}

func TestTokenIssuer_EmptyRoles(t *testing.T) {
	issuer := NewTokenIssuer(testSecret)

	token, err := issuer.Issue("a@b.com", nil)
	if err != nil {
		t.Fatalf("expected no error for empty roles, got %v", err)
	}
	roles, ok := decodeClaims(t, token)["roles"].([]interface{})
	if !ok {
		t.Fatalf("expected roles claim to be a list")
	}
	if len(roles) != 0 {
		t.Fatalf("expected empty roles, got %v", roles)
	}

	p, err := NewTokenValidator(testSecret).Validate(token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if len(p.Roles) != 0 {
		t.Fatalf("expected no roles, got %v", p.Roles)
	}
}

func TestTokenValidator_Expired(t *testing.T) {
	issuer := NewTokenIssuer(testSecret)
	issuer.now = fixedClock(time.Now().Add(-2 * time.Hour))

	token, err := issuer.Issue("a@b.com", []domain.RoleName{domain.RoleAdmin})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	_, err = NewTokenValidator(testSecret).Validate(token)
	if !errors.Is(err, domain.ErrToken) {
		t.Fatalf("expected token error, got %v", err)
	}
	if TokenReason(err) != "expired" {
		t.Fatalf("expected reason expired, got %s", TokenReason(err))
	}
}

func TestTokenValidator_ExpiryBoundary(t *testing.T) {
	iat := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer(testSecret)
	issuer.now = fixedClock(iat)
	token, _ := issuer.Issue("a@b.com", nil)

	v := NewTokenValidator(testSecret)
	v.now = fixedClock(iat.Add(SessionTTL - time.Second))
	if _, err := v.Validate(token); err != nil {
		t.Fatalf("expected token valid just before expiry, got %v", err)
	}

	v.now = fixedClock(iat.Add(SessionTTL + time.Second))
	if _, err := v.Validate(token); !errors.Is(err, domain.ErrToken) {
		t.Fatalf("expected token error after expiry, got %v", err)
	}
}

func TestTokenValidator_FlippedSignature(t *testing.T) {
	token, err := NewTokenIssuer(testSecret).Issue("a@b.com", []domain.RoleName{domain.RoleStaff})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	dot := strings.LastIndex(token, ".")
	sig := []byte(token[dot+1:])
	mid := len(sig) / 2
	if sig[mid] == 'A' {
		sig[mid] = 'B'
	} else {
		sig[mid] = 'A'
	}
	tampered := token[:dot+1] + string(sig)

	if _, err := NewTokenValidator(testSecret).Validate(tampered); !errors.Is(err, domain.ErrToken) {
		t.Fatalf("expected token error for tampered signature, got %v", err)
	}
}

func TestTokenValidator_WrongSecret(t *testing.T) {
	token, _ := NewTokenIssuer(testSecret).Issue("a@b.com", nil)

	_, err := NewTokenValidator("another-secret-another-secret-xx").Validate(token)
	if !errors.Is(err, domain.ErrToken) {
		t.Fatalf("expected token error, got %v", err)
	}
}

func TestTokenValidator_Malformed(t *testing.T) {
	_, err := NewTokenValidator(testSecret).Validate("not-a-jwt")
	if !errors.Is(err, domain.ErrToken) {
		t.Fatalf("expected token error, got %v", err)
	}
	if TokenReason(err) != "malformed" {
		t.Fatalf("expected reason malformed, got %s", TokenReason(err))
	}
}

func TestTokenValidator_RejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":   "a@b.com",
		"roles": []string{"ADMIN"},
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := NewTokenValidator(testSecret).Validate(signed); !errors.Is(err, domain.ErrToken) {
		t.Fatalf("expected token error for HS384 token, got %v", err)
	}
}

func TestTokenValidator_RequiresExpiry(t *testing.T) {
	claims := jwt.MapClaims{"sub": "a@b.com", "roles": []string{}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := NewTokenValidator(testSecret).Validate(signed); !errors.Is(err, domain.ErrToken) {
		t.Fatalf("expected token error for token without exp, got %v", err)
	}
}

func TestPrincipal_HasAnyRole(t *testing.T) {
	p := &Principal{Subject: "a@b.com", Roles: []domain.RoleName{domain.RoleStaff}}
	if !p.HasAnyRole(domain.RoleAdmin, domain.RoleStaff) {
		t.Fatalf("expected STAFF to match")
	}
	if p.HasAnyRole(domain.RoleAdmin) {
		t.Fatalf("expected ADMIN not to match")
	}
}

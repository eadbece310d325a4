package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clinic/backoffice/internal/core/domain"
)

// SessionTTL is the fixed lifetime of an access token.
const SessionTTL = time.Hour

// Claims is the access token payload: sub, roles, iat, exp.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	Subject string
	Roles   []domain.RoleName
}

// HasAnyRole reports whether p holds at least one of roles.
func (p *Principal) HasAnyRole(roles ...domain.RoleName) bool {
	for _, have := range p.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// TokenIssuer mints HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for subject carrying roles in their given order.
func (i *TokenIssuer) Issue(subject string, roles []domain.RoleName) (string, error) {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}

	iat := i.now().UTC().Truncate(time.Second)
	claims := Claims{
		Roles: names,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(SessionTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// TokenValidator verifies tokens minted by TokenIssuer. It never touches a
// store.
type TokenValidator struct {
	secret []byte
	now    func() time.Time
}

func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{secret: []byte(secret), now: time.Now}
}

// Validate returns the principal encoded in raw, or a KindToken error.
func (v *TokenValidator) Validate(raw string) (*Principal, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, domain.InvalidToken(tokenFailureReason(err), err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, domain.InvalidToken("Invalid token", nil)
	}

	roles := make([]domain.RoleName, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		roles = append(roles, domain.RoleName(r))
	}
	return &Principal{Subject: claims.Subject, Roles: roles}, nil
}

func tokenFailureReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "Token expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "Invalid token signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "Malformed token"
	default:
		return "Invalid token"
	}
}

// TokenReason returns a short metric label for a validation failure.
func TokenReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	default:
		return "invalid"
	}
}

package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/clinic/backoffice/internal/core/ports"
)

// AuthService implements login against the user directory.
type AuthService struct {
	directory ports.DirectoryClient
	issuer    *TokenIssuer
	logger    zerolog.Logger
}

func NewAuthService(directory ports.DirectoryClient, issuer *TokenIssuer, logger zerolog.Logger) *AuthService {
	return &AuthService{directory: directory, issuer: issuer, logger: logger}
}

// Login returns a signed access token for a valid, active account.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.directory.FullData(ctx, email)
	if err != nil {
		return "", err
	}

	if err := Authenticate(user, password); err != nil {
		s.logger.Info().Str("email", email).Err(err).Msg("login rejected")
		return "", err
	}

	token, err := s.issuer.Issue(user.Email, user.Roles)
	if err != nil {
		return "", err
	}
	return token, nil
}

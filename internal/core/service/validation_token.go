package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/clinic/backoffice/internal/core/domain"
)

const (
	tokenMin = 100000
	tokenMax = 999999

	// ValidationTokenTTL is how long an activation code stays usable.
	ValidationTokenTTL = 24 * time.Hour
)

// GenerateValidationCode returns a uniformly random 6-digit code.
func GenerateValidationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(tokenMax-tokenMin+1))
	if err != nil {
		return "", fmt.Errorf("generate validation code: %w", err)
	}
	return strconv.FormatInt(n.Int64()+tokenMin, 10), nil
}

func newValidationToken(code, email string, now time.Time) *domain.ValidationToken {
	return &domain.ValidationToken{
		Token:      code,
		Email:      email,
		CreatedAt:  now,
		ExpiryDate: now.Add(ValidationTokenTTL),
	}
}

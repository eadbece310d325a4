package service

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/clinic/backoffice/internal/core/domain"
)

// Authenticate checks the password and then each account status flag,
// stopping at the first failure. The order of checks is part of the login
// contract.
func Authenticate(user *domain.Identity, password string) error {
	if user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.Unauthorized(domain.MsgIncorrectPassword)
	}
	if !user.Enabled {
		return domain.Unauthorized(domain.MsgUserNotEnabled)
	}
	if !user.AccountNonExpired {
		return domain.Unauthorized(domain.MsgAccountExpired)
	}
	if !user.AccountNonLocked {
		return domain.Unauthorized(domain.MsgAccountLocked)
	}
	if !user.CredentialsNonExpired {
		return domain.Unauthorized(domain.MsgCredentialsExpired)
	}
	return nil
}

package ports

import (
	"context"

	"github.com/clinic/backoffice/internal/core/domain"
)

// LoginService authenticates a caller and mints a session token.
type LoginService interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// DirectoryClient fetches the full identity projection from the user service.
type DirectoryClient interface {
	FullData(ctx context.Context, email string) (*domain.Identity, error)
}

// CreateUserInput is the user-creation payload.
type CreateUserInput struct {
	FullName         string
	Email            string
	Address          string
	Phone            string
	Gender           string
	DNI              string
	Tuition          string
	SocialWork       string
	MembershipNumber string
	Plan             string
	Role             string
}

// EnableUserInput consumes a validation token to activate an account.
type EnableUserInput struct {
	Password        string
	ConfirmPassword string
	Token           string
}

// UserService implements the registration saga and directory lookups.
type UserService interface {
	CreateUser(ctx context.Context, in CreateUserInput) error
	EnableUser(ctx context.Context, in EnableUserInput) error
	RequestActivation(ctx context.Context, email string) error
	FullData(ctx context.Context, email string) (*domain.Identity, error)
}

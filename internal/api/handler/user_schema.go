package handler

import (
	"time"

	"github.com/clinic/backoffice/internal/core/domain"
	"github.com/clinic/backoffice/internal/core/ports"
)

type createUserRequest struct {
	FullName         string `json:"fullName"`
	Email            string `json:"email"`
	Address          string `json:"address"`
	Phone            string `json:"phone"`
	Gender           string `json:"gender"`
	DNI              string `json:"dni"`
	Tuition          string `json:"tuition"`
	SocialWork       string `json:"socialWork"`
	MembershipNumber string `json:"membershipNumber"`
	Plan             string `json:"plan"`
	Role             string `json:"role"`
}

func (r createUserRequest) toInput() ports.CreateUserInput {
	return ports.CreateUserInput{
		FullName:         r.FullName,
		Email:            r.Email,
		Address:          r.Address,
		Phone:            r.Phone,
		Gender:           r.Gender,
		DNI:              r.DNI,
		Tuition:          r.Tuition,
		SocialWork:       r.SocialWork,
		MembershipNumber: r.MembershipNumber,
		Plan:             r.Plan,
		Role:             r.Role,
	}
}

type enableUserRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Token           string `json:"token"`
}

// userResponse is the public projection of an account.
type userResponse struct {
	ID                    string    `json:"id"`
	FullName              string    `json:"fullName"`
	Email                 string    `json:"email"`
	Address               string    `json:"address"`
	Phone                 string    `json:"phone"`
	Gender                string    `json:"gender"`
	DNI                   string    `json:"dni"`
	Tuition               string    `json:"tuition,omitempty"`
	SocialWork            string    `json:"socialWork,omitempty"`
	MembershipNumber      string    `json:"membershipNumber,omitempty"`
	Plan                  string    `json:"plan,omitempty"`
	ImageURL              string    `json:"imageUrl,omitempty"`
	Enabled               bool      `json:"enabled"`
	AccountNonExpired     bool      `json:"accountNonExpired"`
	AccountNonLocked      bool      `json:"accountNonLocked"`
	CredentialsNonExpired bool      `json:"credentialsNonExpired"`
	Roles                 []string  `json:"roles"`
	CreatedAt             time.Time `json:"createdAt"`
}

// fullDataResponse adds the password hash for the internal login lookup.
type fullDataResponse struct {
	userResponse
	Password string `json:"password"`
}

func toUserResponse(u *domain.Identity) userResponse {
	return userResponse{
		ID:                    u.ID,
		FullName:              u.FullName,
		Email:                 u.Email,
		Address:               u.Address,
		Phone:                 u.Phone,
		Gender:                u.Gender,
		DNI:                   u.DNI,
		Tuition:               u.Tuition,
		SocialWork:            u.SocialWork,
		MembershipNumber:      u.MembershipNumber,
		Plan:                  u.Plan,
		ImageURL:              u.ImageURL,
		Enabled:               u.Enabled,
		AccountNonExpired:     u.AccountNonExpired,
		AccountNonLocked:      u.AccountNonLocked,
		CredentialsNonExpired: u.CredentialsNonExpired,
		Roles:                 u.RoleStrings(),
		CreatedAt:             u.CreatedAt,
	}
}

func toFullDataResponse(u *domain.Identity) fullDataResponse {
	return fullDataResponse{userResponse: toUserResponse(u), Password: u.PasswordHash}
}

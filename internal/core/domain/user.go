package domain

import "time"

// RoleName is the closed set of roles a clinic account can hold.
type RoleName string

const (
	RoleAdmin   RoleName = "ADMIN"
	RoleStaff   RoleName = "STAFF"
	RolePatient RoleName = "PATIENT"
)

var knownRoles = map[RoleName]struct{}{
	RoleAdmin:   {},
	RoleStaff:   {},
	RolePatient: {},
}

// ParseRoleName reports whether s names a known role.
func ParseRoleName(s string) (RoleName, bool) {
	r := RoleName(s)
	_, ok := knownRoles[r]
	return r, ok
}

// Identity is the full account projection owned by the user directory.
type Identity struct {
	ID                    string     `json:"id"`
	FullName              string     `json:"fullName"`
	Email                 string     `json:"email"`
	PasswordHash          string     `json:"-"`
	Address               string     `json:"address"`
	Phone                 string     `json:"phone"`
	Gender                string     `json:"gender"`
	DNI                   string     `json:"dni"`
	Tuition               string     `json:"tuition,omitempty"`
	SocialWork            string     `json:"socialWork,omitempty"`
	MembershipNumber      string     `json:"membershipNumber,omitempty"`
	Plan                  string     `json:"plan,omitempty"`
	ImageURL              string     `json:"imageUrl,omitempty"`
	AccountNonExpired     bool       `json:"accountNonExpired"`
	AccountNonLocked      bool       `json:"accountNonLocked"`
	CredentialsNonExpired bool       `json:"credentialsNonExpired"`
	Enabled               bool       `json:"enabled"`
	Roles                 []RoleName `json:"roles"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// RoleStrings returns the role names in their stored order. The result is
// never nil so it serializes as an empty list.
func (i *Identity) RoleStrings() []string {
	out := make([]string, 0, len(i.Roles))
	for _, r := range i.Roles {
		out = append(out, string(r))
	}
	return out
}

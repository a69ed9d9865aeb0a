package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	OrganizationID *uuid.UUID `json:"organization_id" db:"organization_id"`
	Email          string     `json:"email" db:"email"`
	PasswordHash   string     `json:"-" db:"password_hash"`
	Name           *string    `json:"name" db:"name"`
	RoleInOrg      string     `json:"role_in_org" db:"role_in_org"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// RoleGrant is one role assignment on a user, optionally scoped to an
// organization. A nil OrganizationID means the grant is global.
type RoleGrant struct {
	ID             uuid.UUID  `json:"id"`
	Code           string     `json:"code"`
	Name           string     `json:"name"`
	OrganizationID *uuid.UUID `json:"organization_id"`
}

type UserWithRoles struct {
	User
	Roles []RoleGrant `json:"roles"`
}

// RoleCodes returns the codes of every role granted to the user.
func (u *UserWithRoles) RoleCodes() []string {
	codes := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		codes = append(codes, r.Code)
	}
	return codes
}

// AuthResult is the outcome of a successful login or registration.
type AuthResult struct {
	User  *UserWithRoles `json:"user"`
	Token string         `json:"token"`
}

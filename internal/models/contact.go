package models

import (
	"time"

	"github.com/google/uuid"
)

type Contact struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserID         *uuid.UUID `json:"user_id" db:"user_id"`
	OrganizationID *uuid.UUID `json:"organization_id" db:"organization_id"`
	FirstName      *string    `json:"first_name" db:"first_name"`
	LastName       *string    `json:"last_name" db:"last_name"`
	Email          string     `json:"email" db:"email"`
	Phone          *string    `json:"phone" db:"phone"`
	Tags           []string   `json:"tags"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

/// AccessibleBy reports whether the contact is visible to the given caller:
// owned by the user directly, or by the caller's organization.
func (c *Contact) AccessibleBy(userID uuid.UUID, organizationID *uuid.UUID) bool {
	if c.UserID != nil && *c.UserID == userID {
		return true
	}
	if c.OrganizationID != nil && organizationID != nil && *c.OrganizationID == *organizationID {
		return true
	}
	return false
}

// ContactPatch carries a partial update; nil fields are left unchanged.
type ContactPatch struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	Tags      []string
}

type ContactFilters struct {
	Search string
	Tags   []string
	Limit  int
	Offset int
}

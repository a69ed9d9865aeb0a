package models

import (
	"time"

	"github.com/google/uuid"
)

type Role struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Code      string    `json:"code" db:"code"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Permission struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Code string    `json:"code" db:"code"`
	Name string    `json:"name" db:"name"`
}

// UserRole assigns a role to a user; OrganizationID scopes the grant to one
// organization, nil means the grant applies everywhere.
type UserRole struct {
	UserID         uuid.UUID  `json:"user_id" db:"user_id"`
	RoleID         uuid.UUID  `json:"role_id" db:"role_id"`
	OrganizationID *uuid.UUID `json:"organization_id" db:"organization_id"`
}

type RolePermission struct {
	RoleID       uuid.UUID `json:"role_id" db:"role_id"`
	PermissionID uuid.UUID `json:"permission_id" db:"permission_id"`
}

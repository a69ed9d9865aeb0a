package models

import "github.com/google/uuid"

// OwnerKind discriminates who a record is scoped to.
type OwnerKind string

const (
	OwnerUser         OwnerKind = "user"
	OwnerOrganization OwnerKind = "organization"
)

// Owner is the single scope a record belongs to: a user or an organization,
// never both. Repositories translate it into the user_id / organization_id
// column pair at insert time.
type Owner struct {
	Kind OwnerKind
	ID   uuid.UUID
}

func UserOwner(id uuid.UUID) Owner {
	return Owner{Kind: OwnerUser, ID: id}
}

func OrganizationOwner(id uuid.UUID) Owner {
	return Owner{Kind: OwnerOrganization, ID: id}
}

// UserID returns the user column value for this owner, nil when org-owned.
func (o Owner) UserID() *uuid.UUID {
	if o.Kind == OwnerUser {
		id := o.ID
		return &id
	}
	return nil
}

// OrganizationID returns the organization column value, nil when user-owned.
func (o Owner) OrganizationID() *uuid.UUID {
	if o.Kind == OwnerOrganization {
		id := o.ID
		return &id
	}
	return nil
}

// Scope is the visibility window for reads: a caller always sees their own
// records, and additionally their organization's when they belong to one.
// Unlike Owner it carries both sides of the user_id / organization_id pair.
type Scope struct {
	UserID         uuid.UUID
	OrganizationID *uuid.UUID
}

func UserScope(userID uuid.UUID) Scope {
	return Scope{UserID: userID}
}

func MemberScope(userID, orgID uuid.UUID) Scope {
	return Scope{UserID: userID, OrganizationID: &orgID}
}

// UserIDParam returns the user column value as a nullable query parameter.
func (s Scope) UserIDParam() *uuid.UUID {
	id := s.UserID
	return &id
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription lifecycle statuses.
const (
	SubscriptionStatusTrial     = "TRIAL"
	SubscriptionStatusActive    = "ACTIVE"
	SubscriptionStatusCancelled = "CANCELLED"
	SubscriptionStatusExpired   = "EXPIRED"
)

type Subscription struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserID         *uuid.UUID `json:"user_id" db:"user_id"`
	OrganizationID *uuid.UUID `json:"organization_id" db:"organization_id"`
	PlanID         uuid.UUID  `json:"plan_id" db:"plan_id"`
	Status         string     `json:"status" db:"status"`
	StartDate      time.Time  `json:"start_date" db:"start_date"`
	EndDate        *time.Time `json:"end_date" db:"end_date"`
	TrialEndDate   *time.Time `json:"trial_end_date" db:"trial_end_date"`
	AutoRenew      bool       `json:"auto_renew" db:"auto_renew"`
	Version        int        `json:"version" db:"version"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// FeatureGrant is one snapshotted entitlement row joined with its feature code.
type FeatureGrant struct {
	FeatureID uuid.UUID `json:"feature_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	IsActive  bool      `json:"is_active"`
}

// SubscriptionWithDetails carries the subscription together with its plan and
// the entitlement snapshot taken when it was created or last changed plan.
type SubscriptionWithDetails struct {
	Subscription
	Plan     Plan           `json:"plan"`
	Features []FeatureGrant `json:"features"`
}

// SubscriptionFeatureAccess is the per-subscription snapshot of a plan
// feature. Entitlement reads go through these rows, never the live plan
// definition, so editing a plan does not retroactively change what was sold.
type SubscriptionFeatureAccess struct {
	SubscriptionID uuid.UUID  `json:"subscription_id" db:"subscription_id"`
	FeatureID      uuid.UUID  `json:"feature_id" db:"feature_id"`
	UserID         *uuid.UUID `json:"user_id" db:"user_id"`
	OrganizationID *uuid.UUID `json:"organization_id" db:"organization_id"`
	Value          string     `json:"value" db:"value"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	ValidFrom      time.Time  `json:"valid_from" db:"valid_from"`
	ValidUntil     *time.Time `json:"valid_until" db:"valid_until"`
}

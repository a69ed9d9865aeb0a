package models

import (
	"time"

	"github.com/google/uuid"
)

type Plan struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Code         string    `json:"code" db:"code"`
	Name         string    `json:"name" db:"name"`
	Description  *string   `json:"description" db:"description"`
	PriceMonthly float64   `json:"price_monthly" db:"price_monthly"`
	PriceYearly  *float64  `json:"price_yearly" db:"price_yearly"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// FeatureType distinguishes boolean capabilities from numeric limits.
const (
	FeatureTypeBoolean = "BOOLEAN"
	FeatureTypeLimit   = "LIMIT"
)

type Feature struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Code        string    `json:"code" db:"code"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description" db:"description"`
	Type        string    `json:"type" db:"type"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// PlanFeature is the plan's default value for a feature, e.g. "true",
// "unlimited" or a numeric string like "5000".
type PlanFeature struct {
	PlanID    uuid.UUID `json:"plan_id" db:"plan_id"`
	FeatureID uuid.UUID `json:"feature_id" db:"feature_id"`
	Value     string    `json:"value" db:"value"`
	Feature   *Feature  `json:"feature,omitempty"`
}

type PlanWithFeatures struct {
	Plan
	Features []PlanFeature `json:"features"`
}

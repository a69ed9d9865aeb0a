package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CampaignStatusDraft     = "DRAFT"
	CampaignStatusScheduled = "SCHEDULED"
	CampaignStatusSent      = "SENT"
)

type Campaign struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	SubscriptionID uuid.UUID  `json:"subscription_id" db:"subscription_id"`
	UserID         *uuid.UUID `json:"user_id" db:"user_id"`
	OrganizationID *uuid.UUID `json:"organization_id" db:"organization_id"`
	Name           string     `json:"name" db:"name"`
	Status         string     `json:"status" db:"status"`
	SendDate       *time.Time `json:"send_date" db:"send_date"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`

	Content *CampaignContent `json:"content,omitempty"`
	Metrics *CampaignMetrics `json:"metrics,omitempty"`
}

// AccessibleBy mirrors Contact.AccessibleBy for campaigns.
func (c *Campaign) AccessibleBy(userID uuid.UUID, organizationID *uuid.UUID) bool {
	if c.UserID != nil && *c.UserID == userID {
		return true
	}
	if c.OrganizationID != nil && organizationID != nil && *c.OrganizationID == *organizationID {
		return true
	}
	return false
}

/// CampaignContent is the 1:1 draft body of a campaign.
type CampaignContent struct {
	ID           uuid.UUID `json:"id" db:"id"`
	CampaignID   uuid.UUID `json:"campaign_id" db:"campaign_id"`
	Subject      *string   `json:"subject" db:"subject"`
	BodyHTML     *string   `json:"body_html" db:"body_html"`
	BodyText     *string   `json:"body_text" db:"body_text"`
	TemplateCode *string   `json:"template_code" db:"template_code"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// CampaignMetrics holds externally aggregated delivery counts. This system
// never computes them; it only stores and reads what the sending pipeline
// reports.
type CampaignMetrics struct {
	ID                uuid.UUID `json:"id" db:"id"`
	CampaignID        uuid.UUID `json:"campaign_id" db:"campaign_id"`
	TotalSent         int       `json:"total_sent" db:"total_sent"`
	TotalOpened       int       `json:"total_opened" db:"total_opened"`
	TotalClicked      int       `json:"total_clicked" db:"total_clicked"`
	TotalBounced      int       `json:"total_bounced" db:"total_bounced"`
	TotalUnsubscribed int       `json:"total_unsubscribed" db:"total_unsubscribed"`
	CalculatedAt      time.Time `json:"calculated_at" db:"calculated_at"`
}

// CampaignContentInput is the body supplied at create/update time.
type CampaignContentInput struct {
	Subject      *string `json:"subject"`
	BodyHTML     *string `json:"body_html"`
	BodyText     *string `json:"body_text"`
	TemplateCode *string `json:"template_code"`
}

// CampaignPatch carries a partial update; nil fields are left unchanged.
type CampaignPatch struct {
	Name     *string
	Status   *string
	SendDate *time.Time
	Content  *CampaignContentInput
}

type CampaignFilters struct {
	Status string
	Search string
	Limit  int
	Offset int
}

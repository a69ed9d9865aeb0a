package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	InvoiceStatusPending = "PENDING"
	InvoiceStatusPaid    = "PAID"
	InvoiceStatusFailed  = "FAILED"
)

type Invoice struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	SubscriptionID   uuid.UUID  `json:"subscription_id" db:"subscription_id"`
	Amount           float64    `json:"amount" db:"amount"`
	Currency         string     `json:"currency" db:"currency"`
	Status           string     `json:"status" db:"status"`
	PaymentProvider  string     `json:"payment_provider" db:"payment_provider"`
	PaymentReference *string    `json:"payment_reference" db:"payment_reference"`
	IssuedAt         time.Time  `json:"issued_at" db:"issued_at"`
	PaidAt           *time.Time `json:"paid_at" db:"paid_at"`
}

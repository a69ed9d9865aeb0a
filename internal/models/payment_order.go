package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentOrder maps a payment-provider order id back to the subscription it
// pays for. It is written at order-creation time so the capture webhook can
// resolve the owning subscription without trusting payload guesswork.
type PaymentOrder struct {
	OrderID        string    `json:"order_id" db:"order_id"`
	SubscriptionID uuid.UUID `json:"subscription_id" db:"subscription_id"`
	PlanID         uuid.UUID `json:"plan_id" db:"plan_id"`
	Amount         float64   `json:"amount" db:"amount"`
	Currency       string    `json:"currency" db:"currency"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

package models

import "time"

// Webhook ledger statuses. RECEIVED rows advance to PROCESSED when the
// handler succeeds and FAILED when it does not; FAILED rows are left for
// manual reconciliation, never retried automatically.
const (
	WebhookStatusReceived  = "RECEIVED"
	WebhookStatusProcessed = "PROCESSED"
	WebhookStatusFailed    = "FAILED"
)

// WebhookEvent is one row of the idempotency ledger, unique per
// (provider, event_id).
type WebhookEvent struct {
	Provider    string     `json:"provider" db:"provider"`
	EventID     string     `json:"event_id" db:"event_id"`
	EventType   string     `json:"event_type" db:"event_type"`
	Payload     []byte     `json:"payload" db:"payload"`
	Status      string     `json:"status" db:"status"`
	ReceivedAt  time.Time  `json:"received_at" db:"received_at"`
	ProcessedAt *time.Time `json:"processed_at" db:"processed_at"`
}

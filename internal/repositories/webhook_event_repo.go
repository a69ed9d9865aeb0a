package repositories

import (
	"context"

	"mailgrid/internal/models"
)

type WebhookEventRepository interface {
	Insert(ctx context.Context, event *models.WebhookEvent) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) error
	MarkFailed(ctx context.Context, provider, eventID string) error
}

type webhookEventRepo struct {
	db DB
}

func NewWebhookEventRepo(db DB) WebhookEventRepository {
	return &webhookEventRepo{db: db}
}

// Insert appends the event to the ledger. The (provider, event_id) pair is
// unique; a conflicting insert affects zero rows and returns false, which is
// how redeliveries are detected.
func (r *webhookEventRepo) Insert(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	query := `
		INSERT INTO webhook_events (provider, event_id, event_type, payload, status, received_at)
		VALUES ($1, $2, $3, $4, 'RECEIVED', NOW())
		ON CONFLICT (provider, event_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, event.Provider, event.EventID, event.EventType, event.Payload)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *webhookEventRepo) MarkProcessed(ctx context.Context, provider, eventID string) error {
	query := `
		UPDATE webhook_events
		SET status = 'PROCESSED', processed_at = NOW()
		WHERE provider = $1 AND event_id = $2
	`
	_, err := r.db.Exec(ctx, query, provider, eventID)
	return err
}

func (r *webhookEventRepo) MarkFailed(ctx context.Context, provider, eventID string) error {
	query := `
		UPDATE webhook_events
		SET status = 'FAILED', processed_at = NOW()
		WHERE provider = $1 AND event_id = $2
	`
	_, err := r.db.Exec(ctx, query, provider, eventID)
	return err
}

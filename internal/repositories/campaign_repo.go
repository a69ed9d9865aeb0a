package repositories

import (
	"context"
	"errors"
	"fmt"

	"mailgrid/internal/common"
	"mailgrid/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	List(ctx context.Context, scope models.Scope, filters *models.CampaignFilters) ([]*models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, scope models.Scope) (int, error)
	CountByStatus(ctx context.Context, scope models.Scope) (map[string]int, error)
	UpsertMetrics(ctx context.Context, metrics *models.CampaignMetrics) error
}

type campaignRepo struct {
	db DB
}

func NewCampaignRepo(db DB) CampaignRepository {
	return &campaignRepo{db: db}
}

const campaignColumns = `id, subscription_id, user_id, organization_id, name, status, send_date, created_at, updated_at`

// Create inserts the campaign and its content row in one transaction.
func (r *campaignRepo) Create(ctx context.Context, campaign *models.Campaign) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO campaigns (id, subscription_id, user_id, organization_id, name, status, send_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err = tx.Exec(ctx, insert, campaign.ID, campaign.SubscriptionID, campaign.UserID, campaign.OrganizationID, campaign.Name, campaign.Status, campaign.SendDate)
	if err != nil {
		return err
	}

	if campaign.Content != nil {
		content := `
			INSERT INTO campaign_content (id, campaign_id, subject, body_html, body_text, template_code, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		`
		_, err = tx.Exec(ctx, content, campaign.Content.ID, campaign.ID, campaign.Content.Subject, campaign.Content.BodyHTML, campaign.Content.BodyText, campaign.Content.TemplateCode)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetByID fetches by primary key without an ownership predicate; visibility
// is the service layer's call.
func (r *campaignRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	campaign := &models.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&campaign.ID, &campaign.SubscriptionID, &campaign.UserID, &campaign.OrganizationID, &campaign.Name, &campaign.Status, &campaign.SendDate, &campaign.CreatedAt, &campaign.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	content := &models.CampaignContent{}
	contentQuery := `
		SELECT id, campaign_id, subject, body_html, body_text, template_code, created_at, updated_at
		FROM campaign_content
		WHERE campaign_id = $1
	`
	err = r.db.QueryRow(ctx, contentQuery, id).Scan(&content.ID, &content.CampaignID, &content.Subject, &content.BodyHTML, &content.BodyText, &content.TemplateCode, &content.CreatedAt, &content.UpdatedAt)
	if err == nil {
		campaign.Content = content
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	metrics := &models.CampaignMetrics{}
	metricsQuery := `
		SELECT id, campaign_id, total_sent, total_opened, total_clicked, total_bounced, total_unsubscribed, calculated_at
		FROM campaign_metrics
		WHERE campaign_id = $1
	`
	err = r.db.QueryRow(ctx, metricsQuery, id).Scan(&metrics.ID, &metrics.CampaignID, &metrics.TotalSent, &metrics.TotalOpened, &metrics.TotalClicked, &metrics.TotalBounced, &metrics.TotalUnsubscribed, &metrics.CalculatedAt)
	if err == nil {
		campaign.Metrics = metrics
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	return campaign, nil
}

func (r *campaignRepo) List(ctx context.Context, scope models.Scope, filters *models.CampaignFilters) ([]*models.Campaign, error) {
	if filters == nil {
		filters = &models.CampaignFilters{}
	}
	limit, offset := common.ValidatePaginationParams(filters.Limit, filters.Offset)

	queryBase := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE ((user_id = $1 AND $1::uuid IS NOT NULL) OR (organization_id = $2 AND $2::uuid IS NOT NULL))
	`
	args := []interface{}{scope.UserIDParam(), scope.OrganizationID}
	argCount := 2

	if filters.Status != "" {
		argCount++
		queryBase += fmt.Sprintf(` AND status = $%d`, argCount)
		args = append(args, filters.Status)
	}
	if filters.Search != "" {
		argCount++
		queryBase += fmt.Sprintf(` AND name ILIKE $%d`, argCount)
		args = append(args, "%"+filters.Search+"%")
	}

	argCount++
	queryBase += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argCount)
	args = append(args, limit)
	argCount++
	queryBase += fmt.Sprintf(` OFFSET $%d`, argCount)
	args = append(args, offset)

	rows, err := r.db.Query(ctx, queryBase, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		campaign := &models.Campaign{}
		if err := rows.Scan(&campaign.ID, &campaign.SubscriptionID, &campaign.UserID, &campaign.OrganizationID, &campaign.Name, &campaign.Status, &campaign.SendDate, &campaign.CreatedAt, &campaign.UpdatedAt); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, campaign)
	}
	return campaigns, rows.Err()
}

// Update rewrites the campaign row and upserts the content row when one is
// attached, in a single transaction.
func (r *campaignRepo) Update(ctx context.Context, campaign *models.Campaign) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	update := `
		UPDATE campaigns
		SET name = $1, status = $2, send_date = $3, updated_at = NOW()
		WHERE id = $4
	`
	tag, err := tx.Exec(ctx, update, campaign.Name, campaign.Status, campaign.SendDate, campaign.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}

	if campaign.Content != nil {
		upsert := `
			INSERT INTO campaign_content (id, campaign_id, subject, body_html, body_text, template_code, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			ON CONFLICT (campaign_id) DO UPDATE
			SET subject = EXCLUDED.subject, body_html = EXCLUDED.body_html, body_text = EXCLUDED.body_text, template_code = EXCLUDED.template_code, updated_at = NOW()
		`
		_, err = tx.Exec(ctx, upsert, campaign.Content.ID, campaign.ID, campaign.Content.Subject, campaign.Content.BodyHTML, campaign.Content.BodyText, campaign.Content.TemplateCode)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Delete removes the campaign and its dependent rows, children first.
func (r *campaignRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM campaign_recipients WHERE campaign_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM campaign_metrics WHERE campaign_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM campaign_content WHERE campaign_id = $1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}

	return tx.Commit(ctx)
}

func (r *campaignRepo) Count(ctx context.Context, scope models.Scope) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM campaigns
		WHERE ((user_id = $1 AND $1::uuid IS NOT NULL) OR (organization_id = $2 AND $2::uuid IS NOT NULL))
	`
	var count int
	err := r.db.QueryRow(ctx, query, scope.UserIDParam(), scope.OrganizationID).Scan(&count)
	return count, err
}

func (r *campaignRepo) CountByStatus(ctx context.Context, scope models.Scope) (map[string]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM campaigns
		WHERE ((user_id = $1 AND $1::uuid IS NOT NULL) OR (organization_id = $2 AND $2::uuid IS NOT NULL))
		GROUP BY status
	`
	rows, err := r.db.Query(ctx, query, scope.UserIDParam(), scope.OrganizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// UpsertMetrics stores delivery counts reported by the sending pipeline.
func (r *campaignRepo) UpsertMetrics(ctx context.Context, metrics *models.CampaignMetrics) error {
	query := `
		INSERT INTO campaign_metrics (id, campaign_id, total_sent, total_opened, total_clicked, total_bounced, total_unsubscribed, calculated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (campaign_id) DO UPDATE
		SET total_sent = EXCLUDED.total_sent, total_opened = EXCLUDED.total_opened, total_clicked = EXCLUDED.total_clicked,
		    total_bounced = EXCLUDED.total_bounced, total_unsubscribed = EXCLUDED.total_unsubscribed, calculated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, metrics.ID, metrics.CampaignID, metrics.TotalSent, metrics.TotalOpened, metrics.TotalClicked, metrics.TotalBounced, metrics.TotalUnsubscribed)
	return err
}

package repositories

import (
	"context"
	"errors"

	"mailgrid/internal/common"
	"mailgrid/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *models.Subscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	GetByIDWithDetails(ctx context.Context, id uuid.UUID) (*models.SubscriptionWithDetails, error)
	GetActiveByScope(ctx context.Context, scope models.Scope) (*models.SubscriptionWithDetails, error)
	ListByScope(ctx context.Context, scope models.Scope, limit, offset int) ([]*models.Subscription, error)
	ChangePlan(ctx context.Context, subscriptionID, newPlanID uuid.UUID, expectedVersion int) error
	Cancel(ctx context.Context, subscriptionID uuid.UUID) error
	ActivateTrial(ctx context.Context, subscriptionID uuid.UUID) error
	HasFeatureAccess(ctx context.Context, scope models.Scope, featureCode string) (bool, error)
	GetFeatureValue(ctx context.Context, scope models.Scope, featureCode string) (string, error)
	ExpireOverdue(ctx context.Context) (int64, error)
}

type subscriptionRepo struct {
	db DB
}

func NewSubscriptionRepo(db DB) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

const subscriptionColumns = `id, user_id, organization_id, plan_id, status, start_date, end_date, trial_end_date, auto_renew, version, created_at, updated_at`

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	sub := &models.Subscription{}
	err := row.Scan(&sub.ID, &sub.UserID, &sub.OrganizationID, &sub.PlanID, &sub.Status, &sub.StartDate, &sub.EndDate, &sub.TrialEndDate, &sub.AutoRenew, &sub.Version, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Create inserts the subscription and snapshots the plan's feature values
// into subscription_feature_access in one transaction. Any prior ACTIVE or
// TRIAL subscription of the same owner is superseded (marked CANCELLED) so
// at most one subscription is in force per owner. A plan with no features is
// rejected and nothing is written.
func (r *subscriptionRepo) Create(ctx context.Context, sub *models.Subscription) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	supersede := `
		UPDATE subscriptions
		SET status = 'CANCELLED', updated_at = NOW()
		WHERE status IN ('ACTIVE', 'TRIAL')
		  AND ((user_id = $1 AND $1::uuid IS NOT NULL) OR (organization_id = $2 AND $2::uuid IS NOT NULL))
	`
	if _, err := tx.Exec(ctx, supersede, sub.UserID, sub.OrganizationID); err != nil {
		return err
	}

	insert := `
		INSERT INTO subscriptions (id, user_id, organization_id, plan_id, status, start_date, end_date, trial_end_date, auto_renew, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, NOW(), NOW())
	`
	if _, err := tx.Exec(ctx, insert, sub.ID, sub.UserID, sub.OrganizationID, sub.PlanID, sub.Status, sub.StartDate, sub.EndDate, sub.TrialEndDate, sub.AutoRenew); err != nil {
		return err
	}

	snapshot := `
		INSERT INTO subscription_feature_access (subscription_id, feature_id, user_id, organization_id, value, is_active, valid_from, valid_until)
		SELECT $1, pf.feature_id, $2, $3, pf.value, TRUE, NOW(), $4
		FROM plan_features pf
		WHERE pf.plan_id = $5
	`
	tag, err := tx.Exec(ctx, snapshot, sub.ID, sub.UserID, sub.OrganizationID, sub.EndDate, sub.PlanID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrPlanHasNoFeatures
	}

	return tx.Commit(ctx)
}

func (r *subscriptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	sub, err := scanSubscription(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return sub, err
}

func (r *subscriptionRepo) GetByIDWithDetails(ctx context.Context, id uuid.UUID) (*models.SubscriptionWithDetails, error) {
	sub, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.withDetails(ctx, sub)
}

// GetActiveByScope returns the subscription in force for the caller, whether
// it hangs off their user id or their organization. When history contains
// more than one ACTIVE row the most recently created wins.
func (r *subscriptionRepo) GetActiveByScope(ctx context.Context, scope models.Scope) (*models.SubscriptionWithDetails, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status IN ('ACTIVE', 'TRIAL')
		  AND ((user_id = $1 AND $1::uuid IS NOT NULL) OR (organization_id = $2 AND $2::uuid IS NOT NULL))
		ORDER BY created_at DESC
		LIMIT 1
	`
	sub, err := scanSubscription(r.db.QueryRow(ctx, query, scope.UserIDParam(), scope.OrganizationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNoActiveSubscription
	}
	if err != nil {
		return nil, err
	}
	return r.withDetails(ctx, sub)
}

func (r *subscriptionRepo) withDetails(ctx context.Context, sub *models.Subscription) (*models.SubscriptionWithDetails, error) {
	details := &models.SubscriptionWithDetails{Subscription: *sub}

	planQuery := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`
	err := r.db.QueryRow(ctx, planQuery, sub.PlanID).Scan(&details.Plan.ID, &details.Plan.Code, &details.Plan.Name, &details.Plan.Description, &details.Plan.PriceMonthly, &details.Plan.PriceYearly, &details.Plan.IsActive, &details.Plan.CreatedAt, &details.Plan.UpdatedAt)
	if err != nil {
		return nil, err
	}

	grantQuery := `
		SELECT sfa.feature_id, f.code, f.name, sfa.value, sfa.is_active
		FROM subscription_feature_access sfa
		JOIN features f ON f.id = sfa.feature_id
		WHERE sfa.subscription_id = $1
		ORDER BY f.code
	`
	rows, err := r.db.Query(ctx, grantQuery, sub.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var grant models.FeatureGrant
		if err := rows.Scan(&grant.FeatureID, &grant.Code, &grant.Name, &grant.Value, &grant.IsActive); err != nil {
			return nil, err
		}
		details.Features = append(details.Features, grant)
	}
	return details, rows.Err()
}

func (r *subscriptionRepo) ListByScope(ctx context.Context, scope models.Scope, limit, offset int) ([]*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE ((user_id = $1 AND $1::uuid IS NOT NULL) OR (organization_id = $2 AND $2::uuid IS NOT NULL))
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, scope.UserIDParam(), scope.OrganizationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		sub := &models.Subscription{}
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.OrganizationID, &sub.PlanID, &sub.Status, &sub.StartDate, &sub.EndDate, &sub.TrialEndDate, &sub.AutoRenew, &sub.Version, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// ChangePlan swaps the plan and regenerates the entitlement snapshot in one
// transaction. The update is versioned; a stale expectedVersion means a
// concurrent change won and the caller gets ErrVersionConflict.
func (r *subscriptionRepo) ChangePlan(ctx context.Context, subscriptionID, newPlanID uuid.UUID, expectedVersion int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	update := `
		UPDATE subscriptions
		SET plan_id = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3 AND status IN ('ACTIVE', 'TRIAL')
	`
	tag, err := tx.Exec(ctx, update, newPlanID, subscriptionID, expectedVersion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrVersionConflict
	}

	if _, err := tx.Exec(ctx, `DELETE FROM subscription_feature_access WHERE subscription_id = $1`, subscriptionID); err != nil {
		return err
	}

	snapshot := `
		INSERT INTO subscription_feature_access (subscription_id, feature_id, user_id, organization_id, value, is_active, valid_from, valid_until)
		SELECT s.id, pf.feature_id, s.user_id, s.organization_id, pf.value, TRUE, NOW(), s.end_date
		FROM subscriptions s
		JOIN plan_features pf ON pf.plan_id = s.plan_id
		WHERE s.id = $1
	`
	tag, err = tx.Exec(ctx, snapshot, subscriptionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrPlanHasNoFeatures
	}

	return tx.Commit(ctx)
}

func (r *subscriptionRepo) Cancel(ctx context.Context, subscriptionID uuid.UUID) error {
	query := `
		UPDATE subscriptions
		SET status = 'CANCELLED', auto_renew = FALSE, updated_at = NOW()
		WHERE id = $1 AND status IN ('ACTIVE', 'TRIAL')
	`
	tag, err := r.db.Exec(ctx, query, subscriptionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

// ActivateTrial promotes a TRIAL subscription to ACTIVE after payment.
func (r *subscriptionRepo) ActivateTrial(ctx context.Context, subscriptionID uuid.UUID) error {
	query := `
		UPDATE subscriptions
		SET status = 'ACTIVE', trial_end_date = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'TRIAL'
	`
	tag, err := r.db.Exec(ctx, query, subscriptionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

// HasFeatureAccess checks the entitlement snapshot of the caller's live
// subscription, never the plan definition.
func (r *subscriptionRepo) HasFeatureAccess(ctx context.Context, scope models.Scope, featureCode string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM subscription_feature_access sfa
			JOIN subscriptions s ON s.id = sfa.subscription_id
			JOIN features f ON f.id = sfa.feature_id
			WHERE s.status IN ('ACTIVE', 'TRIAL')
			  AND sfa.is_active = TRUE
			  AND f.code = $1
			  AND (sfa.valid_until IS NULL OR sfa.valid_until > NOW())
			  AND ((sfa.user_id = $2 AND $2::uuid IS NOT NULL) OR (sfa.organization_id = $3 AND $3::uuid IS NOT NULL))
			  AND LOWER(sfa.value) NOT IN ('false', '0')
		)
	`
	var allowed bool
	err := r.db.QueryRow(ctx, query, featureCode, scope.UserIDParam(), scope.OrganizationID).Scan(&allowed)
	return allowed, err
}

// GetFeatureValue returns the snapshotted value for a limit feature, from
// the most recent live subscription.
func (r *subscriptionRepo) GetFeatureValue(ctx context.Context, scope models.Scope, featureCode string) (string, error) {
	query := `
		SELECT sfa.value
		FROM subscription_feature_access sfa
		JOIN subscriptions s ON s.id = sfa.subscription_id
		JOIN features f ON f.id = sfa.feature_id
		WHERE s.status IN ('ACTIVE', 'TRIAL')
		  AND sfa.is_active = TRUE
		  AND f.code = $1
		  AND (sfa.valid_until IS NULL OR sfa.valid_until > NOW())
		  AND ((sfa.user_id = $2 AND $2::uuid IS NOT NULL) OR (sfa.organization_id = $3 AND $3::uuid IS NOT NULL))
		ORDER BY s.created_at DESC
		LIMIT 1
	`
	var value string
	err := r.db.QueryRow(ctx, query, featureCode, scope.UserIDParam(), scope.OrganizationID).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", common.ErrNoActiveSubscription
	}
	return value, err
}

// ExpireOverdue flips past-due subscriptions to EXPIRED and deactivates
// their snapshots. Called from the background sweep.
func (r *subscriptionRepo) ExpireOverdue(ctx context.Context) (int64, error) {
	query := `
		UPDATE subscriptions
		SET status = 'EXPIRED', updated_at = NOW()
		WHERE status IN ('ACTIVE', 'TRIAL')
		  AND end_date IS NOT NULL AND end_date < NOW()
	`
	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}

	deactivate := `
		UPDATE subscription_feature_access sfa
		SET is_active = FALSE
		FROM subscriptions s
		WHERE s.id = sfa.subscription_id AND s.status = 'EXPIRED' AND sfa.is_active = TRUE
	`
	if _, err := r.db.Exec(ctx, deactivate); err != nil {
		return tag.RowsAffected(), err
	}
	return tag.RowsAffected(), nil
}

package repositories

import (
	"context"
	"errors"

	"mailgrid/internal/common"
	"mailgrid/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PlanRepository interface {
	ListActive(ctx context.Context) ([]*models.PlanWithFeatures, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.PlanWithFeatures, error)
	GetByCode(ctx context.Context, code string) (*models.PlanWithFeatures, error)
}

type planRepo struct {
	db DB
}

func NewPlanRepo(db DB) PlanRepository {
	return &planRepo{db: db}
}

const planColumns = `id, code, name, description, price_monthly, price_yearly, is_active, created_at, updated_at`

func (r *planRepo) ListActive(ctx context.Context) ([]*models.PlanWithFeatures, error) {
	query := `
		SELECT ` + planColumns + `
		FROM plans
		WHERE is_active = TRUE
		ORDER BY price_monthly ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*models.PlanWithFeatures
	for rows.Next() {
		plan := &models.PlanWithFeatures{}
		if err := rows.Scan(&plan.ID, &plan.Code, &plan.Name, &plan.Description, &plan.PriceMonthly, &plan.PriceYearly, &plan.IsActive, &plan.CreatedAt, &plan.UpdatedAt); err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, plan := range plans {
		features, err := r.loadFeatures(ctx, plan.ID)
		if err != nil {
			return nil, err
		}
		plan.Features = features
	}
	return plans, nil
}

func (r *planRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PlanWithFeatures, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *planRepo) GetByCode(ctx context.Context, code string) (*models.PlanWithFeatures, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE code = $1`
	return r.getOne(ctx, query, code)
}

func (r *planRepo) getOne(ctx context.Context, query string, arg any) (*models.PlanWithFeatures, error) {
	plan := &models.PlanWithFeatures{}
	err := r.db.QueryRow(ctx, query, arg).Scan(&plan.ID, &plan.Code, &plan.Name, &plan.Description, &plan.PriceMonthly, &plan.PriceYearly, &plan.IsActive, &plan.CreatedAt, &plan.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}

	features, err := r.loadFeatures(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	plan.Features = features
	return plan, nil
}

func (r *planRepo) loadFeatures(ctx context.Context, planID uuid.UUID) ([]models.PlanFeature, error) {
	query := `
		SELECT pf.plan_id, pf.feature_id, pf.value, f.id, f.code, f.name, f.description, f.type, f.created_at
		FROM plan_features pf
		JOIN features f ON f.id = pf.feature_id
		WHERE pf.plan_id = $1
		ORDER BY f.code
	`
	rows, err := r.db.Query(ctx, query, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var features []models.PlanFeature
	for rows.Next() {
		var pf models.PlanFeature
		feature := &models.Feature{}
		if err := rows.Scan(&pf.PlanID, &pf.FeatureID, &pf.Value, &feature.ID, &feature.Code, &feature.Name, &feature.Description, &feature.Type, &feature.CreatedAt); err != nil {
			return nil, err
		}
		pf.Feature = feature
		features = append(features, pf)
	}
	return features, rows.Err()
}

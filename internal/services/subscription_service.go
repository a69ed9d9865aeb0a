package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"mailgrid/internal/caching"
	"mailgrid/internal/common"
	"mailgrid/internal/models"
	"mailgrid/internal/repositories"

	"github.com/google/uuid"
)

const planCacheTTL = 15 * time.Minute

// SubscriptionService owns the subscription lifecycle and entitlement reads.
// Feature checks always go through the snapshot taken at subscribe or
// plan-change time, so later catalogue edits never alter a sold deal.
type SubscriptionService interface {
	ListPlans(ctx context.Context) ([]*models.PlanWithFeatures, error)
	RefreshPlanCache(ctx context.Context) error
	Subscribe(ctx context.Context, owner models.Owner, planID uuid.UUID, billingCycle string, autoRenew bool) (*models.SubscriptionWithDetails, error)
	GetActive(ctx context.Context, scope models.Scope) (*models.SubscriptionWithDetails, error)
	ListHistory(ctx context.Context, scope models.Scope, limit, offset int) ([]*models.Subscription, error)
	GetByID(ctx context.Context, uc common.UserContext, subscriptionID uuid.UUID) (*models.SubscriptionWithDetails, error)
	ChangePlan(ctx context.Context, uc common.UserContext, subscriptionID, newPlanID uuid.UUID) (*models.SubscriptionWithDetails, error)
	Cancel(ctx context.Context, uc common.UserContext, subscriptionID uuid.UUID) error
	HasFeature(ctx context.Context, scope models.Scope, featureCode string) (bool, error)
	GetLimit(ctx context.Context, scope models.Scope, featureCode string) (int, bool, error)
	ExpireOverdue(ctx context.Context) (int64, error)
}

// Billing cycles accepted by Subscribe.
const (
	BillingCycleMonthly = "MONTHLY"
	BillingCycleYearly  = "YEARLY"
)

type subscriptionService struct {
	subRepo  repositories.SubscriptionRepository
	planRepo repositories.PlanRepository
	cacheSvc caching.CacheService
}

func NewSubscriptionService(subRepo repositories.SubscriptionRepository, planRepo repositories.PlanRepository, cacheSvc caching.CacheService) SubscriptionService {
	return &subscriptionService{subRepo: subRepo, planRepo: planRepo, cacheSvc: cacheSvc}
}

func (s *subscriptionService) ListPlans(ctx context.Context) ([]*models.PlanWithFeatures, error) {
	cached, err := s.cacheSvc.GetPlans(ctx)
	if err != nil {
		log.Printf("Plan cache read failed: %v", err)
	}
	if cached != nil {
		return cached, nil
	}

	plans, err := s.planRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cacheSvc.SetPlans(ctx, plans, planCacheTTL); err != nil {
		log.Printf("Plan cache write failed: %v", err)
	}
	return plans, nil
}

// RefreshPlanCache reloads the catalogue into the cache; the background
// scheduler calls it periodically.
func (s *subscriptionService) RefreshPlanCache(ctx context.Context) error {
	plans, err := s.planRepo.ListActive(ctx)
	if err != nil {
		return err
	}
	return s.cacheSvc.SetPlans(ctx, plans, planCacheTTL)
}

// Subscribe creates a subscription on the plan and snapshots its features.
// The period end comes from the billing cycle; any prior live subscription
// of the owner is superseded inside the same transaction.
func (s *subscriptionService) Subscribe(ctx context.Context, owner models.Owner, planID uuid.UUID, billingCycle string, autoRenew bool) (*models.SubscriptionWithDetails, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, common.ErrPlanNotFound
	}
	if len(plan.Features) == 0 {
		return nil, common.ErrPlanHasNoFeatures
	}

	now := time.Now()
	var endDate time.Time
	switch strings.ToUpper(billingCycle) {
	case BillingCycleYearly:
		if plan.PriceYearly == nil {
			return nil, fmt.Errorf("plan %s has no yearly price", plan.Code)
		}
		endDate = now.AddDate(1, 0, 0)
	case BillingCycleMonthly, "":
		endDate = now.AddDate(0, 1, 0)
	default:
		return nil, fmt.Errorf("unknown billing cycle %q", billingCycle)
	}

	sub := &models.Subscription{
		ID:             uuid.New(),
		UserID:         owner.UserID(),
		OrganizationID: owner.OrganizationID(),
		PlanID:         plan.ID,
		Status:         models.SubscriptionStatusActive,
		StartDate:      now,
		EndDate:        &endDate,
		AutoRenew:      autoRenew,
	}
	if err := s.subRepo.Create(ctx, sub); err != nil {
		return nil, err
	}
	return s.subRepo.GetByIDWithDetails(ctx, sub.ID)
}

func (s *subscriptionService) GetActive(ctx context.Context, scope models.Scope) (*models.SubscriptionWithDetails, error) {
	return s.subRepo.GetActiveByScope(ctx, scope)
}

// ListHistory returns the caller's subscriptions, newest first, including
// cancelled and expired ones.
func (s *subscriptionService) ListHistory(ctx context.Context, scope models.Scope, limit, offset int) ([]*models.Subscription, error) {
	limit, offset = common.ValidatePaginationParams(limit, offset)
	return s.subRepo.ListByScope(ctx, scope, limit, offset)
}

// GetByID loads the subscription and then checks visibility in application
// code. A subscription belonging to someone else is reported as not found.
func (s *subscriptionService) GetByID(ctx context.Context, uc common.UserContext, subscriptionID uuid.UUID) (*models.SubscriptionWithDetails, error) {
	sub, err := s.subRepo.GetByIDWithDetails(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if !subscriptionAccessible(&sub.Subscription, uc) {
		return nil, common.ErrNotFound
	}
	return sub, nil
}

// ChangePlan swaps the plan with optimistic concurrency; a concurrent change
// surfaces as ErrVersionConflict and nothing is modified.
func (s *subscriptionService) ChangePlan(ctx context.Context, uc common.UserContext, subscriptionID, newPlanID uuid.UUID) (*models.SubscriptionWithDetails, error) {
	sub, err := s.subRepo.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if !subscriptionAccessible(sub, uc) {
		return nil, common.ErrNotFound
	}

	plan, err := s.planRepo.GetByID(ctx, newPlanID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, common.ErrPlanNotFound
	}

	if err := s.subRepo.ChangePlan(ctx, subscriptionID, newPlanID, sub.Version); err != nil {
		return nil, err
	}
	return s.subRepo.GetByIDWithDetails(ctx, subscriptionID)
}

func (s *subscriptionService) Cancel(ctx context.Context, uc common.UserContext, subscriptionID uuid.UUID) error {
	sub, err := s.subRepo.GetByID(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if !subscriptionAccessible(sub, uc) {
		return common.ErrNotFound
	}
	return s.subRepo.Cancel(ctx, subscriptionID)
}

func (s *subscriptionService) HasFeature(ctx context.Context, scope models.Scope, featureCode string) (bool, error) {
	return s.subRepo.HasFeatureAccess(ctx, scope, featureCode)
}

// GetLimit resolves a numeric limit feature. The second return value is true
// when the limit is unbounded ("unlimited" or "-1").
func (s *subscriptionService) GetLimit(ctx context.Context, scope models.Scope, featureCode string) (int, bool, error) {
	value, err := s.subRepo.GetFeatureValue(ctx, scope, featureCode)
	if err != nil {
		return 0, false, err
	}
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "unlimited" || normalized == "-1" {
		return 0, true, nil
	}
	limit, err := strconv.Atoi(normalized)
	if err != nil {
		return 0, false, fmt.Errorf("feature %s has non-numeric value %q", featureCode, value)
	}
	return limit, false, nil
}

func (s *subscriptionService) ExpireOverdue(ctx context.Context) (int64, error) {
	return s.subRepo.ExpireOverdue(ctx)
}

func subscriptionAccessible(sub *models.Subscription, uc common.UserContext) bool {
	if sub.UserID != nil && *sub.UserID == uc.UserID {
		return true
	}
	if sub.OrganizationID != nil && uc.OrganizationID != nil && *sub.OrganizationID == *uc.OrganizationID {
		return true
	}
	return false
}

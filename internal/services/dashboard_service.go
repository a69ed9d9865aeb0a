package services

import (
	"context"
	"errors"

	"mailgrid/internal/common"
	"mailgrid/internal/models"
	"mailgrid/internal/repositories"
)

// DashboardStats is the account summary surfaced on the dashboard.
type DashboardStats struct {
	ContactCount      int                             `json:"contact_count"`
	CampaignCount     int                             `json:"campaign_count"`
	CampaignsByStatus map[string]int                  `json:"campaigns_by_status"`
	Subscription      *models.SubscriptionWithDetails `json:"subscription,omitempty"`
}

type DashboardService interface {
	GetStats(ctx context.Context, uc common.UserContext) (*DashboardStats, error)
}

type dashboardService struct {
	contactRepo  repositories.ContactRepository
	campaignRepo repositories.CampaignRepository
	subService   SubscriptionService
}

func NewDashboardService(contactRepo repositories.ContactRepository, campaignRepo repositories.CampaignRepository, subService SubscriptionService) DashboardService {
	return &dashboardService{contactRepo: contactRepo, campaignRepo: campaignRepo, subService: subService}
}

func (s *dashboardService) GetStats(ctx context.Context, uc common.UserContext) (*DashboardStats, error) {
	scope := scopeFor(uc)

	contactCount, err := s.contactRepo.Count(ctx, scope)
	if err != nil {
		return nil, err
	}
	campaignCount, err := s.campaignRepo.Count(ctx, scope)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.campaignRepo.CountByStatus(ctx, scope)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		ContactCount:      contactCount,
		CampaignCount:     campaignCount,
		CampaignsByStatus: byStatus,
	}

	sub, err := s.subService.GetActive(ctx, scope)
	if err != nil && !errors.Is(err, common.ErrNoActiveSubscription) {
		return nil, err
	}
	if err == nil {
		stats.Subscription = sub
	}
	return stats, nil
}

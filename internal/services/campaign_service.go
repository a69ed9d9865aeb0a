package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mailgrid/internal/common"
	"mailgrid/internal/models"
	"mailgrid/internal/repositories"

	"github.com/google/uuid"
)

const featureCampaignLimit = "campaign_limit"

// CampaignService applies ownership and entitlement rules to campaigns.
// Creation requires a live subscription and is counted against the
// campaign_limit entitlement.
type CampaignService interface {
	Create(ctx context.Context, uc common.UserContext, name string, content *models.CampaignContentInput) (*models.Campaign, error)
	GetByID(ctx context.Context, uc common.UserContext, id uuid.UUID) (*models.Campaign, error)
	List(ctx context.Context, uc common.UserContext, filters *models.CampaignFilters) ([]*models.Campaign, error)
	Update(ctx context.Context, uc common.UserContext, id uuid.UUID, patch *models.CampaignPatch) (*models.Campaign, error)
	Delete(ctx context.Context, uc common.UserContext, id uuid.UUID) error
	RecordMetrics(ctx context.Context, uc common.UserContext, id uuid.UUID, metrics *models.CampaignMetrics) error
}

type campaignService struct {
	campaignRepo repositories.CampaignRepository
	subService   SubscriptionService
}

func NewCampaignService(campaignRepo repositories.CampaignRepository, subService SubscriptionService) CampaignService {
	return &campaignService{campaignRepo: campaignRepo, subService: subService}
}

// Create refuses without an active subscription and enforces campaign_limit
// when the plan defines one. New campaigns start as DRAFT.
func (s *campaignService) Create(ctx context.Context, uc common.UserContext, name string, content *models.CampaignContentInput) (*models.Campaign, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("campaign name is required")
	}

	scope := scopeFor(uc)
	sub, err := s.subService.GetActive(ctx, scope)
	if err != nil {
		return nil, err
	}

	limit, unlimited, err := s.subService.GetLimit(ctx, scope, featureCampaignLimit)
	if err == nil && !unlimited {
		count, countErr := s.campaignRepo.Count(ctx, scope)
		if countErr != nil {
			return nil, countErr
		}
		if count >= limit {
			return nil, fmt.Errorf("campaign limit of %d reached: %w", limit, common.ErrForbidden)
		}
	} else if err != nil && !errors.Is(err, common.ErrNoActiveSubscription) {
		return nil, err
	}

	owner := ownerFor(uc)
	campaign := &models.Campaign{
		ID:             uuid.New(),
		SubscriptionID: sub.ID,
		UserID:         owner.UserID(),
		OrganizationID: owner.OrganizationID(),
		Name:           name,
		Status:         models.CampaignStatusDraft,
	}
	if content != nil {
		campaign.Content = &models.CampaignContent{
			ID:           uuid.New(),
			CampaignID:   campaign.ID,
			Subject:      content.Subject,
			BodyHTML:     content.BodyHTML,
			BodyText:     content.BodyText,
			TemplateCode: content.TemplateCode,
		}
	}

	if err := s.campaignRepo.Create(ctx, campaign); err != nil {
		return nil, err
	}
	return s.campaignRepo.GetByID(ctx, campaign.ID)
}

func (s *campaignService) GetByID(ctx context.Context, uc common.UserContext, id uuid.UUID) (*models.Campaign, error) {
	campaign, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !campaign.AccessibleBy(uc.UserID, uc.OrganizationID) {
		return nil, common.ErrNotFound
	}
	return campaign, nil
}

func (s *campaignService) List(ctx context.Context, uc common.UserContext, filters *models.CampaignFilters) ([]*models.Campaign, error) {
	return s.campaignRepo.List(ctx, scopeFor(uc), filters)
}

// Update applies only the fields present in the patch. Status transitions
// are restricted: a SENT campaign is immutable.
func (s *campaignService) Update(ctx context.Context, uc common.UserContext, id uuid.UUID, patch *models.CampaignPatch) (*models.Campaign, error) {
	campaign, err := s.GetByID(ctx, uc, id)
	if err != nil {
		return nil, err
	}
	if campaign.Status == models.CampaignStatusSent {
		return nil, fmt.Errorf("sent campaigns cannot be modified: %w", common.ErrForbidden)
	}

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, fmt.Errorf("campaign name cannot be empty")
		}
		campaign.Name = *patch.Name
	}
	if patch.Status != nil {
		switch *patch.Status {
		case models.CampaignStatusDraft, models.CampaignStatusScheduled, models.CampaignStatusSent:
			campaign.Status = *patch.Status
		default:
			return nil, fmt.Errorf("unknown campaign status %q", *patch.Status)
		}
	}
	if patch.SendDate != nil {
		campaign.SendDate = patch.SendDate
	}
	if patch.Content != nil {
		contentID := uuid.New()
		if campaign.Content != nil {
			contentID = campaign.Content.ID
		}
		campaign.Content = &models.CampaignContent{
			ID:           contentID,
			CampaignID:   campaign.ID,
			Subject:      patch.Content.Subject,
			BodyHTML:     patch.Content.BodyHTML,
			BodyText:     patch.Content.BodyText,
			TemplateCode: patch.Content.TemplateCode,
		}
	}

	if err := s.campaignRepo.Update(ctx, campaign); err != nil {
		return nil, err
	}
	return s.campaignRepo.GetByID(ctx, id)
}

func (s *campaignService) Delete(ctx context.Context, uc common.UserContext, id uuid.UUID) error {
	if _, err := s.GetByID(ctx, uc, id); err != nil {
		return err
	}
	return s.campaignRepo.Delete(ctx, id)
}

// RecordMetrics stores delivery counts reported by the external sending
// pipeline. Metrics are stored as given, never computed here.
func (s *campaignService) RecordMetrics(ctx context.Context, uc common.UserContext, id uuid.UUID, metrics *models.CampaignMetrics) error {
	if _, err := s.GetByID(ctx, uc, id); err != nil {
		return err
	}
	if metrics.ID == uuid.Nil {
		metrics.ID = uuid.New()
	}
	metrics.CampaignID = id
	return s.campaignRepo.UpsertMetrics(ctx, metrics)
}

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

const featureContactLimit = "contact_limit"

// ContactService applies ownership and entitlement rules on top of the
// contact repository. Reads and writes on a specific contact check
// visibility in application code; a cross-tenant id behaves exactly like a
// missing one.
type ContactService interface {
	Create(ctx context.Context, uc common.UserContext, contact *models.Contact) (*models.Contact, error)
	GetByID(ctx context.Context, uc common.UserContext, id uuid.UUID) (*models.Contact, error)
	List(ctx context.Context, uc common.UserContext, filters *models.ContactFilters) ([]*models.Contact, error)
	Update(ctx context.Context, uc common.UserContext, id uuid.UUID, patch *models.ContactPatch) (*models.Contact, error)
	Delete(ctx context.Context, uc common.UserContext, id uuid.UUID) error
	ListTags(ctx context.Context, uc common.UserContext) ([]string, error)
}

type contactService struct {
	contactRepo repositories.ContactRepository
	subService  SubscriptionService
}

func NewContactService(contactRepo repositories.ContactRepository, subService SubscriptionService) ContactService {
	return &contactService{contactRepo: contactRepo, subService: subService}
}

// ownerFor picks the single owner new records are stamped with: the
// organization when the caller belongs to one, their user id otherwise.
func ownerFor(uc common.UserContext) models.Owner {
	if uc.OrganizationID != nil {
		return models.OrganizationOwner(*uc.OrganizationID)
	}
	return models.UserOwner(uc.UserID)
}

// scopeFor builds the read scope: always the caller's user id, plus their
// organization when they belong to one. Org members keep seeing records they
// created before joining.
func scopeFor(uc common.UserContext) models.Scope {
	return models.Scope{UserID: uc.UserID, OrganizationID: uc.OrganizationID}
}

// Create enforces the contact_limit entitlement before inserting.
func (s *contactService) Create(ctx context.Context, uc common.UserContext, contact *models.Contact) (*models.Contact, error) {
	if strings.TrimSpace(contact.Email) == "" {
		return nil, fmt.Errorf("email is required")
	}

	scope := scopeFor(uc)
	limit, unlimited, err := s.subService.GetLimit(ctx, scope, featureContactLimit)
	if err == nil && !unlimited {
		count, countErr := s.contactRepo.Count(ctx, scope)
		if countErr != nil {
			return nil, countErr
		}
		if count >= limit {
			return nil, fmt.Errorf("contact limit of %d reached: %w", limit, common.ErrForbidden)
		}
	} else if err != nil && !errors.Is(err, common.ErrNoActiveSubscription) {
		return nil, err
	}

	owner := ownerFor(uc)
	contact.ID = uuid.New()
	contact.UserID = owner.UserID()
	contact.OrganizationID = owner.OrganizationID()
	if err := s.contactRepo.Create(ctx, contact); err != nil {
		return nil, err
	}
	return s.contactRepo.GetByID(ctx, contact.ID)
}

func (s *contactService) GetByID(ctx context.Context, uc common.UserContext, id uuid.UUID) (*models.Contact, error) {
	contact, err := s.contactRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !contact.AccessibleBy(uc.UserID, uc.OrganizationID) {
		return nil, common.ErrNotFound
	}
	return contact, nil
}

func (s *contactService) List(ctx context.Context, uc common.UserContext, filters *models.ContactFilters) ([]*models.Contact, error) {
	return s.contactRepo.List(ctx, scopeFor(uc), filters)
}

// Update applies only the fields present in the patch.
func (s *contactService) Update(ctx context.Context, uc common.UserContext, id uuid.UUID, patch *models.ContactPatch) (*models.Contact, error) {
	contact, err := s.GetByID(ctx, uc, id)
	if err != nil {
		return nil, err
	}

	if patch.FirstName != nil {
		contact.FirstName = patch.FirstName
	}
	if patch.LastName != nil {
		contact.LastName = patch.LastName
	}
	if patch.Email != nil {
		if strings.TrimSpace(*patch.Email) == "" {
			return nil, fmt.Errorf("email cannot be empty")
		}
		contact.Email = *patch.Email
	}
	if patch.Phone != nil {
		contact.Phone = patch.Phone
	}
	if patch.Tags != nil {
		contact.Tags = patch.Tags
	}

	if err := s.contactRepo.Update(ctx, contact); err != nil {
		return nil, err
	}
	return s.contactRepo.GetByID(ctx, id)
}

func (s *contactService) ListTags(ctx context.Context, uc common.UserContext) ([]string, error) {
	return s.contactRepo.ListTags(ctx, scopeFor(uc))
}

func (s *contactService) Delete(ctx context.Context, uc common.UserContext, id uuid.UUID) error {
	if _, err := s.GetByID(ctx, uc, id); err != nil {
		return err
	}
	return s.contactRepo.Delete(ctx, id)
}

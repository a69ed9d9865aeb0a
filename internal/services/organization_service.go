package services

import (
	"context"
	"fmt"
	"strings"

	"mailgrid/internal/common"
	"mailgrid/internal/models"
	"mailgrid/internal/repositories"

	"github.com/google/uuid"
)

// Values stored in users.role_in_org.
const (
	orgRoleAdmin  = "ADMIN"
	orgRoleMember = "MEMBER"
)

// OrganizationService manages the caller's organization. A user belongs to at
// most one organization; joining one shifts ownership of new contacts and
// campaigns to the organization.
type OrganizationService interface {
	Create(ctx context.Context, uc common.UserContext, name string) (*models.Organization, error)
	Get(ctx context.Context, uc common.UserContext) (*models.Organization, error)
	Update(ctx context.Context, uc common.UserContext, name string) (*models.Organization, error)
	AddMember(ctx context.Context, uc common.UserContext, email string) (*models.User, error)
	RemoveMember(ctx context.Context, uc common.UserContext, memberID uuid.UUID) error
	MemberCount(ctx context.Context, uc common.UserContext) (int, error)
}

type organizationService struct {
	orgRepo  repositories.OrganizationRepository
	userRepo repositories.UserRepository
	rbacSvc  RBACService
}

func NewOrganizationService(orgRepo repositories.OrganizationRepository, userRepo repositories.UserRepository, rbacSvc RBACService) OrganizationService {
	return &organizationService{orgRepo: orgRepo, userRepo: userRepo, rbacSvc: rbacSvc}
}

// Create makes a new organization with the caller as its admin. The caller
// must not already belong to one.
func (s *organizationService) Create(ctx context.Context, uc common.UserContext, name string) (*models.Organization, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("organization name is required")
	}
	if uc.OrganizationID != nil {
		return nil, fmt.Errorf("user already belongs to an organization: %w", common.ErrForbidden)
	}

	user, err := s.userRepo.GetByID(ctx, uc.UserID)
	if err != nil {
		return nil, err
	}

	org := &models.Organization{ID: uuid.New(), Name: name}
	if err := s.orgRepo.Create(ctx, org); err != nil {
		return nil, err
	}

	user.OrganizationID = &org.ID
	user.RoleInOrg = orgRoleAdmin
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	if err := s.rbacSvc.AssignRole(ctx, user.ID, common.RoleOrgAdmin, &org.ID); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *organizationService) Get(ctx context.Context, uc common.UserContext) (*models.Organization, error) {
	if uc.OrganizationID == nil {
		return nil, common.ErrNotFound
	}
	return s.orgRepo.GetByID(ctx, *uc.OrganizationID)
}

func (s *organizationService) Update(ctx context.Context, uc common.UserContext, name string) (*models.Organization, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("organization name is required")
	}
	if uc.OrganizationID == nil {
		return nil, common.ErrNotFound
	}

	org, err := s.orgRepo.GetByID(ctx, *uc.OrganizationID)
	if err != nil {
		return nil, err
	}
	org.Name = name
	if err := s.orgRepo.Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

// AddMember pulls an existing account into the caller's organization as a
// member. Users already in an organization cannot be claimed.
func (s *organizationService) AddMember(ctx context.Context, uc common.UserContext, email string) (*models.User, error) {
	if uc.OrganizationID == nil {
		return nil, common.ErrNotFound
	}

	target, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if target.OrganizationID != nil {
		return nil, fmt.Errorf("user already belongs to an organization: %w", common.ErrForbidden)
	}

	target.OrganizationID = uc.OrganizationID
	target.RoleInOrg = orgRoleMember
	if err := s.userRepo.Update(ctx, target); err != nil {
		return nil, err
	}
	if err := s.rbacSvc.AssignRole(ctx, target.ID, common.RoleOrgMember, uc.OrganizationID); err != nil {
		return nil, err
	}
	return target, nil
}

// RemoveMember detaches a member from the caller's organization and revokes
// the member role grant. Admins cannot remove themselves; the organization
// must keep its admin.
func (s *organizationService) RemoveMember(ctx context.Context, uc common.UserContext, memberID uuid.UUID) error {
	if uc.OrganizationID == nil {
		return common.ErrNotFound
	}
	if memberID == uc.UserID {
		return fmt.Errorf("cannot remove yourself from the organization: %w", common.ErrForbidden)
	}

	target, err := s.userRepo.GetByID(ctx, memberID)
	if err != nil {
		return err
	}
	if target.OrganizationID == nil || *target.OrganizationID != *uc.OrganizationID {
		return common.ErrNotFound
	}

	if err := s.rbacSvc.RemoveRole(ctx, target.ID, common.RoleOrgMember, uc.OrganizationID); err != nil {
		return err
	}

	target.OrganizationID = nil
	target.RoleInOrg = ""
	return s.userRepo.Update(ctx, target)
}

func (s *organizationService) MemberCount(ctx context.Context, uc common.UserContext) (int, error) {
	if uc.OrganizationID == nil {
		return 0, common.ErrNotFound
	}
	return s.userRepo.CountByOrganization(ctx, *uc.OrganizationID)
}

package services

import (
	"context"

	"mailgrid/internal/models"
	"mailgrid/internal/repositories"

	"github.com/google/uuid"
)

// RBACService resolves role grants and permission checks. Permission codes
// are the single authority; role names never appear in authorization logic
// outside this service.
type RBACService interface {
	CheckPermission(ctx context.Context, userID uuid.UUID, organizationID *uuid.UUID, permissionCode string) (bool, error)
	GetUserRoles(ctx context.Context, userID uuid.UUID) ([]models.RoleGrant, error)
	AssignRole(ctx context.Context, userID uuid.UUID, roleCode string, organizationID *uuid.UUID) error
	RemoveRole(ctx context.Context, userID uuid.UUID, roleCode string, organizationID *uuid.UUID) error
}

type rbacService struct {
	userRepo repositories.UserRepository
	roleRepo repositories.RoleRepository
}

func NewRBACService(userRepo repositories.UserRepository, roleRepo repositories.RoleRepository) RBACService {
	return &rbacService{userRepo: userRepo, roleRepo: roleRepo}
}

func (s *rbacService) CheckPermission(ctx context.Context, userID uuid.UUID, organizationID *uuid.UUID, permissionCode string) (bool, error) {
	return s.userRepo.HasPermission(ctx, userID, organizationID, permissionCode)
}

func (s *rbacService) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]models.RoleGrant, error) {
	return s.userRepo.GetUserRoles(ctx, userID)
}

func (s *rbacService) AssignRole(ctx context.Context, userID uuid.UUID, roleCode string, organizationID *uuid.UUID) error {
	role, err := s.roleRepo.GetByCode(ctx, roleCode)
	if err != nil {
		return err
	}
	return s.roleRepo.AssignToUser(ctx, userID, role.ID, organizationID)
}

func (s *rbacService) RemoveRole(ctx context.Context, userID uuid.UUID, roleCode string, organizationID *uuid.UUID) error {
	role, err := s.roleRepo.GetByCode(ctx, roleCode)
	if err != nil {
		return err
	}
	return s.roleRepo.RemoveFromUser(ctx, userID, role.ID, organizationID)
}

package repositories

import (
	"context"
	"errors"

	"mailgrid/internal/common"
	"mailgrid/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type RoleRepository interface {
	GetByCode(ctx context.Context, code string) (*models.Role, error)
	List(ctx context.Context) ([]*models.Role, error)
	AssignToUser(ctx context.Context, userID, roleID uuid.UUID, organizationID *uuid.UUID) error
	RemoveFromUser(ctx context.Context, userID, roleID uuid.UUID, organizationID *uuid.UUID) error
	ListPermissions(ctx context.Context, roleID uuid.UUID) ([]*models.Permission, error)
}

type roleRepo struct {
	db DB
}

func NewRoleRepo(db DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) GetByCode(ctx context.Context, code string) (*models.Role, error) {
	role := &models.Role{}
	query := `SELECT id, code, name, created_at FROM roles WHERE code = $1`
	err := r.db.QueryRow(ctx, query, code).Scan(&role.ID, &role.Code, &role.Name, &role.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return role, nil
}

func (r *roleRepo) List(ctx context.Context) ([]*models.Role, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name, created_at FROM roles ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*models.Role
	for rows.Next() {
		role := &models.Role{}
		if err := rows.Scan(&role.ID, &role.Code, &role.Name, &role.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func (r *roleRepo) AssignToUser(ctx context.Context, userID, roleID uuid.UUID, organizationID *uuid.UUID) error {
	query := `
		INSERT INTO user_roles (user_id, role_id, organization_id, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, userID, roleID, organizationID)
	return err
}

func (r *roleRepo) RemoveFromUser(ctx context.Context, userID, roleID uuid.UUID, organizationID *uuid.UUID) error {
	query := `
		DELETE FROM user_roles
		WHERE user_id = $1 AND role_id = $2
		  AND (organization_id = $3 OR (organization_id IS NULL AND $3::uuid IS NULL))
	`
	_, err := r.db.Exec(ctx, query, userID, roleID, organizationID)
	return err
}

func (r *roleRepo) ListPermissions(ctx context.Context, roleID uuid.UUID) ([]*models.Permission, error) {
	query := `
		SELECT p.id, p.code, p.name
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.code
	`
	rows, err := r.db.Query(ctx, query, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []*models.Permission
	for rows.Next() {
		perm := &models.Permission{}
		if err := rows.Scan(&perm.ID, &perm.Code, &perm.Name); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, nil
}

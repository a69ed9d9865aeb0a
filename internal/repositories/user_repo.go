package repositories

import (
	"context"
	"errors"
	"fmt"

	"mailgrid/internal/common"
	"mailgrid/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	CreateWithRole(ctx context.Context, user *models.User, roleCode string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetWithRoles(ctx context.Context, id uuid.UUID) (*models.UserWithRoles, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	HasPermission(ctx context.Context, userID uuid.UUID, organizationID *uuid.UUID, permissionCode string) (bool, error)
	GetUserRoles(ctx context.Context, userID uuid.UUID) ([]models.RoleGrant, error)
	CountByOrganization(ctx context.Context, organizationID uuid.UUID) (int, error)
}

type userRepo struct {
	db DB
}

func NewUserRepo(db DB) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, organization_id, email, password_hash, name, role_in_org, is_active, created_at, updated_at`

// uniqueViolation reports a unique constraint breach (SQLSTATE 23505).
func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.OrganizationID, &user.Email, &user.PasswordHash, &user.Name, &user.RoleInOrg, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create inserts the user. Emails are stored and matched byte for byte; the
// unique index on users.email is the only duplicate check, so two concurrent
// registrations cannot both win.
func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, organization_id, email, password_hash, name, role_in_org, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, user.ID, user.OrganizationID, user.Email, user.PasswordHash, user.Name, user.RoleInOrg, user.IsActive)
	if uniqueViolation(err) {
		return common.ErrDuplicateEmail
	}
	return err
}

// CreateWithRole inserts the user and grants the named role in a single
// transaction. A failed grant rolls the user row back.
func (r *userRepo) CreateWithRole(ctx context.Context, user *models.User, roleCode string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insertUser := `
		INSERT INTO users (id, organization_id, email, password_hash, name, role_in_org, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err = tx.Exec(ctx, insertUser, user.ID, user.OrganizationID, user.Email, user.PasswordHash, user.Name, user.RoleInOrg, user.IsActive)
	if uniqueViolation(err) {
		return common.ErrDuplicateEmail
	}
	if err != nil {
		return err
	}

	grantRole := `
		INSERT INTO user_roles (user_id, role_id, organization_id, created_at)
		SELECT $1, r.id, $2, NOW()
		FROM roles r
		WHERE r.code = $3
	`
	tag, err := tx.Exec(ctx, grantRole, user.ID, user.OrganizationID, roleCode)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("role %s not found", roleCode)
	}

	return tx.Commit(ctx)
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return user, err
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return user, err
}

func (r *userRepo) GetWithRoles(ctx context.Context, id uuid.UUID) (*models.UserWithRoles, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	roles, err := r.GetUserRoles(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.UserWithRoles{User: *user, Roles: roles}, nil
}

func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET organization_id = $1, name = $2, role_in_org = $3, is_active = $4, updated_at = NOW()
		WHERE id = $5
	`
	tag, err := r.db.Exec(ctx, query, user.OrganizationID, user.Name, user.RoleInOrg, user.IsActive, user.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *userRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

// HasPermission resolves the permission through role grants. A grant with a
// NULL organization_id applies everywhere; a scoped grant applies only inside
// that organization.
func (r *userRepo) HasPermission(ctx context.Context, userID uuid.UUID, organizationID *uuid.UUID, permissionCode string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM user_roles ur
			JOIN role_permissions rp ON rp.role_id = ur.role_id
			JOIN permissions p ON p.id = rp.permission_id
			WHERE ur.user_id = $1
			  AND p.code = $2
			  AND (ur.organization_id IS NULL OR ur.organization_id = $3)
		)
	`
	var allowed bool
	err := r.db.QueryRow(ctx, query, userID, permissionCode, organizationID).Scan(&allowed)
	if err != nil {
		return false, err
	}
	return allowed, nil
}

func (r *userRepo) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]models.RoleGrant, error) {
	query := `
		SELECT r.id, r.code, r.name, ur.organization_id
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY r.code
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []models.RoleGrant
	for rows.Next() {
		var grant models.RoleGrant
		if err := rows.Scan(&grant.ID, &grant.Code, &grant.Name, &grant.OrganizationID); err != nil {
			return nil, err
		}
		roles = append(roles, grant)
	}
	return roles, nil
}

func (r *userRepo) CountByOrganization(ctx context.Context, organizationID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE organization_id = $1`, organizationID).Scan(&count)
	return count, err
}

package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mailgrid/internal/common"
	"mailgrid/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ContactRepository interface {
	Create(ctx context.Context, contact *models.Contact) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error)
	List(ctx context.Context, scope models.Scope, filters *models.ContactFilters) ([]*models.Contact, error)
	Update(ctx context.Context, contact *models.Contact) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, scope models.Scope) (int, error)
	ListTags(ctx context.Context, scope models.Scope) ([]string, error)
}

type contactRepo struct {
	db DB
}

func NewContactRepo(db DB) ContactRepository {
	return &contactRepo{db: db}
}

const contactColumns = `id, user_id, organization_id, first_name, last_name, email, phone, created_at, updated_at`

// Create inserts the contact and its tag rows in one transaction.
func (r *contactRepo) Create(ctx context.Context, contact *models.Contact) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO contacts (id, user_id, organization_id, first_name, last_name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err = tx.Exec(ctx, insert, contact.ID, contact.UserID, contact.OrganizationID, contact.FirstName, contact.LastName, strings.ToLower(contact.Email), contact.Phone)
	if err != nil {
		return err
	}

	for _, tag := range contact.Tags {
		if _, err := tx.Exec(ctx, `INSERT INTO contact_tags (contact_id, tag) VALUES ($1, $2) ON CONFLICT DO NOTHING`, contact.ID, tag); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetByID fetches by primary key without an ownership predicate; the service
// layer decides visibility so a cross-tenant miss looks identical to a
// missing row.
func (r *contactRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	contact := &models.Contact{}
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&contact.ID, &contact.UserID, &contact.OrganizationID, &contact.FirstName, &contact.LastName, &contact.Email, &contact.Phone, &contact.CreatedAt, &contact.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	tags, err := r.loadTags(ctx, contact.ID)
	if err != nil {
		return nil, err
	}
	contact.Tags = tags
	return contact, nil
}

func (r *contactRepo) loadTags(ctx context.Context, contactID uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT tag FROM contact_tags WHERE contact_id = $1 ORDER BY tag`, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (r *contactRepo) List(ctx context.Context, scope models.Scope, filters *models.ContactFilters) ([]*models.Contact, error) {
	if filters == nil {
		filters = &models.ContactFilters{}
	}
	limit, offset := common.ValidatePaginationParams(filters.Limit, filters.Offset)

	queryBase := `
		SELECT c.id, c.user_id, c.organization_id, c.first_name, c.last_name, c.email, c.phone, c.created_at, c.updated_at
		FROM contacts c
		WHERE ((c.user_id = $1 AND $1::uuid IS NOT NULL) OR (c.organization_id = $2 AND $2::uuid IS NOT NULL))
	`
	args := []interface{}{scope.UserIDParam(), scope.OrganizationID}
	argCount := 2

	if filters.Search != "" {
		argCount++
		queryBase += fmt.Sprintf(` AND (
			c.email ILIKE $%d OR
			COALESCE(c.first_name, '') ILIKE $%d OR
			COALESCE(c.last_name, '') ILIKE $%d
		)`, argCount, argCount, argCount)
		args = append(args, "%"+filters.Search+"%")
	}

	if len(filters.Tags) > 0 {
		argCount++
		queryBase += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM contact_tags ct
			WHERE ct.contact_id = c.id AND ct.tag = ANY($%d)
		)`, argCount)
		args = append(args, filters.Tags)
	}

	argCount++
	queryBase += fmt.Sprintf(` ORDER BY c.created_at DESC LIMIT $%d`, argCount)
	args = append(args, limit)
	argCount++
	queryBase += fmt.Sprintf(` OFFSET $%d`, argCount)
	args = append(args, offset)

	rows, err := r.db.Query(ctx, queryBase, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []*models.Contact
	for rows.Next() {
		contact := &models.Contact{}
		if err := rows.Scan(&contact.ID, &contact.UserID, &contact.OrganizationID, &contact.FirstName, &contact.LastName, &contact.Email, &contact.Phone, &contact.CreatedAt, &contact.UpdatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, contact := range contacts {
		tags, err := r.loadTags(ctx, contact.ID)
		if err != nil {
			return nil, err
		}
		contact.Tags = tags
	}
	return contacts, nil
}

// Update rewrites the row and replaces the tag set in one transaction.
func (r *contactRepo) Update(ctx context.Context, contact *models.Contact) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	update := `
		UPDATE contacts
		SET first_name = $1, last_name = $2, email = $3, phone = $4, updated_at = NOW()
		WHERE id = $5
	`
	tag, err := tx.Exec(ctx, update, contact.FirstName, contact.LastName, strings.ToLower(contact.Email), contact.Phone, contact.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM contact_tags WHERE contact_id = $1`, contact.ID); err != nil {
		return err
	}
	for _, t := range contact.Tags {
		if _, err := tx.Exec(ctx, `INSERT INTO contact_tags (contact_id, tag) VALUES ($1, $2) ON CONFLICT DO NOTHING`, contact.ID, t); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *contactRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM contact_tags WHERE contact_id = $1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}

	return tx.Commit(ctx)
}

// ListTags returns the distinct tags in use across the contacts the caller
// can see.
func (r *contactRepo) ListTags(ctx context.Context, scope models.Scope) ([]string, error) {
	query := `
		SELECT DISTINCT ct.tag
		FROM contact_tags ct
		JOIN contacts c ON c.id = ct.contact_id
		WHERE ((c.user_id = $1 AND $1::uuid IS NOT NULL) OR (c.organization_id = $2 AND $2::uuid IS NOT NULL))
		ORDER BY ct.tag
	`
	rows, err := r.db.Query(ctx, query, scope.UserIDParam(), scope.OrganizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (r *contactRepo) Count(ctx context.Context, scope models.Scope) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM contacts
		WHERE ((user_id = $1 AND $1::uuid IS NOT NULL) OR (organization_id = $2 AND $2::uuid IS NOT NULL))
	`
	var count int
	err := r.db.QueryRow(ctx, query, scope.UserIDParam(), scope.OrganizationID).Scan(&count)
	return count, err
}

package repositories

import (
	"context"
	"errors"

	"mailgrid/internal/common"
	"mailgrid/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	ListBySubscription(ctx context.Context, subscriptionID uuid.UUID, limit, offset int) ([]*models.Invoice, error)
}

type invoiceRepo struct {
	db DB
}

func NewInvoiceRepo(db DB) InvoiceRepository {
	return &invoiceRepo{db: db}
}

const invoiceColumns = `id, subscription_id, amount, currency, status, payment_provider, payment_reference, issued_at, paid_at`

func (r *invoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	query := `
		INSERT INTO invoices (id, subscription_id, amount, currency, status, payment_provider, payment_reference, issued_at, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), $8)
	`
	_, err := r.db.Exec(ctx, query, invoice.ID, invoice.SubscriptionID, invoice.Amount, invoice.Currency, invoice.Status, invoice.PaymentProvider, invoice.PaymentReference, invoice.PaidAt)
	return err
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	invoice := &models.Invoice{}
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&invoice.ID, &invoice.SubscriptionID, &invoice.Amount, &invoice.Currency, &invoice.Status, &invoice.PaymentProvider, &invoice.PaymentReference, &invoice.IssuedAt, &invoice.PaidAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (r *invoiceRepo) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID, limit, offset int) ([]*models.Invoice, error) {
	limit, offset = common.ValidatePaginationParams(limit, offset)
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE subscription_id = $1
		ORDER BY issued_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, subscriptionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		invoice := &models.Invoice{}
		if err := rows.Scan(&invoice.ID, &invoice.SubscriptionID, &invoice.Amount, &invoice.Currency, &invoice.Status, &invoice.PaymentProvider, &invoice.PaymentReference, &invoice.IssuedAt, &invoice.PaidAt); err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

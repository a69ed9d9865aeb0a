package repositories

import (
	"context"
	"errors"

	"mailgrid/internal/common"
	"mailgrid/internal/models"

	"github.com/jackc/pgx/v5"
)

type PaymentOrderRepository interface {
	Create(ctx context.Context, order *models.PaymentOrder) error
	GetByOrderID(ctx context.Context, orderID string) (*models.PaymentOrder, error)
}

type paymentOrderRepo struct {
	db DB
}

func NewPaymentOrderRepo(db DB) PaymentOrderRepository {
	return &paymentOrderRepo{db: db}
}

func (r *paymentOrderRepo) Create(ctx context.Context, order *models.PaymentOrder) error {
	query := `
		INSERT INTO payment_orders (order_id, subscription_id, plan_id, amount, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err := r.db.Exec(ctx, query, order.OrderID, order.SubscriptionID, order.PlanID, order.Amount, order.Currency)
	return err
}

func (r *paymentOrderRepo) GetByOrderID(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	order := &models.PaymentOrder{}
	query := `
		SELECT order_id, subscription_id, plan_id, amount, currency, created_at
		FROM payment_orders
		WHERE order_id = $1
	`
	err := r.db.QueryRow(ctx, query, orderID).Scan(&order.OrderID, &order.SubscriptionID, &order.PlanID, &order.Amount, &order.Currency, &order.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"mailgrid/internal/common"
	"mailgrid/internal/models"
	"mailgrid/internal/repositories"

	"github.com/google/uuid"
)

const paymentProviderPayPal = "paypal"

// BillingService creates payment orders and reconciles provider webhooks
// against the invoice and subscription state.
type BillingService interface {
	CreateOrder(ctx context.Context, uc common.UserContext, subscriptionID uuid.UUID, billingCycle string) (*models.PaymentOrder, string, error)
	CaptureOrder(ctx context.Context, uc common.UserContext, orderID string) (*models.Invoice, error)
	HandleWebhook(ctx context.Context, headers http.Header, body []byte) error
	ListInvoices(ctx context.Context, uc common.UserContext, subscriptionID uuid.UUID, limit, offset int) ([]*models.Invoice, error)
}

type billingService struct {
	subRepo     repositories.SubscriptionRepository
	planRepo    repositories.PlanRepository
	invoiceRepo repositories.InvoiceRepository
	orderRepo   repositories.PaymentOrderRepository
	webhookRepo repositories.WebhookEventRepository
	paypal      PayPalService
}

func NewBillingService(
	subRepo repositories.SubscriptionRepository,
	planRepo repositories.PlanRepository,
	invoiceRepo repositories.InvoiceRepository,
	orderRepo repositories.PaymentOrderRepository,
	webhookRepo repositories.WebhookEventRepository,
	paypal PayPalService,
) BillingService {
	return &billingService{
		subRepo:     subRepo,
		planRepo:    planRepo,
		invoiceRepo: invoiceRepo,
		orderRepo:   orderRepo,
		webhookRepo: webhookRepo,
		paypal:      paypal,
	}
}

// CreateOrder prices the order server-side from the subscription's plan.
// The client never supplies an amount; it only picks the billing cycle. The
// provider order id is recorded in payment_orders so the capture webhook can
// find its way back. Returns the order row and the approval URL.
func (s *billingService) CreateOrder(ctx context.Context, uc common.UserContext, subscriptionID uuid.UUID, billingCycle string) (*models.PaymentOrder, string, error) {
	sub, err := s.subRepo.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, "", err
	}
	if !subscriptionAccessible(sub, uc) {
		return nil, "", common.ErrNotFound
	}

	plan, err := s.planRepo.GetByID(ctx, sub.PlanID)
	if err != nil {
		return nil, "", err
	}

	var amount float64
	switch strings.ToUpper(billingCycle) {
	case BillingCycleYearly:
		if plan.PriceYearly == nil {
			return nil, "", fmt.Errorf("plan %s has no yearly price", plan.Code)
		}
		amount = *plan.PriceYearly
	case BillingCycleMonthly, "":
		amount = plan.PriceMonthly
	default:
		return nil, "", fmt.Errorf("unknown billing cycle %q", billingCycle)
	}

	currency := "USD"
	order, err := s.paypal.CreateOrder(ctx, subscriptionID.String(), amount, currency)
	if err != nil {
		return nil, "", err
	}

	record := &models.PaymentOrder{
		OrderID:        order.ID,
		SubscriptionID: subscriptionID,
		PlanID:         plan.ID,
		Amount:         amount,
		Currency:       currency,
	}
	if err := s.orderRepo.Create(ctx, record); err != nil {
		return nil, "", err
	}

	var approvalURL string
	for _, link := range order.Links {
		if link.Rel == "approve" {
			approvalURL = link.Href
		}
	}
	return record, approvalURL, nil
}

// CaptureOrder captures an approved order on the buyer's return from the
// provider. The webhook path records captures too; both funnel through
// recordCapturedPayment and key invoices on the capture reference.
func (s *billingService) CaptureOrder(ctx context.Context, uc common.UserContext, orderID string) (*models.Invoice, error) {
	order, err := s.orderRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	sub, err := s.subRepo.GetByID(ctx, order.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if !subscriptionAccessible(sub, uc) {
		return nil, common.ErrNotFound
	}

	capture, err := s.paypal.CaptureOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if capture.Status != "COMPLETED" {
		return nil, fmt.Errorf("capture for order %s not completed: %s", orderID, capture.Status)
	}
	return s.recordCapturedPayment(ctx, order, capture.ID, order.Amount)
}

// paypalWebhookEvent is the subset of the event payload billing consumes.
type paypalWebhookEvent struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Amount struct {
			Value        string `json:"value"`
			CurrencyCode string `json:"currency_code"`
		} `json:"amount"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	} `json:"resource"`
}

// HandleWebhook is the reconciliation entry point. The order is fixed:
// verify the signature, append to the idempotency ledger, then dispatch. A
// redelivered event id short-circuits after the ledger insert. Dispatch
// failures are recorded as FAILED and the error is returned; the handler
// still acks so the provider does not retry forever.
func (s *billingService) HandleWebhook(ctx context.Context, headers http.Header, body []byte) error {
	if err := s.paypal.VerifyWebhookSignature(ctx, headers, body); err != nil {
		return err
	}

	var event paypalWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("malformed webhook payload: %w", err)
	}
	if event.ID == "" {
		return fmt.Errorf("webhook event has no id")
	}

	inserted, err := s.webhookRepo.Insert(ctx, &models.WebhookEvent{
		Provider:  paymentProviderPayPal,
		EventID:   event.ID,
		EventType: event.EventType,
		Payload:   body,
	})
	if err != nil {
		return err
	}
	if !inserted {
		// Redelivery of an event already in the ledger.
		return nil
	}

	if err := s.dispatch(ctx, &event); err != nil {
		if markErr := s.webhookRepo.MarkFailed(ctx, paymentProviderPayPal, event.ID); markErr != nil {
			log.Printf("Failed to mark webhook %s failed: %v", event.ID, markErr)
		}
		return err
	}
	return s.webhookRepo.MarkProcessed(ctx, paymentProviderPayPal, event.ID)
}

func (s *billingService) dispatch(ctx context.Context, event *paypalWebhookEvent) error {
	switch event.EventType {
	case "PAYMENT.CAPTURE.COMPLETED":
		return s.handleCapture(ctx, event)
	case "PAYMENT.CAPTURE.DENIED":
		return s.handleDenied(ctx, event)
	case "CHECKOUT.ORDER.APPROVED":
		// Approval means the buyer consented, not that money moved. The
		// capture happens on the buyer's return via CaptureOrder; the money
		// event arrives later as PAYMENT.CAPTURE.COMPLETED.
		return nil
	default:
		// Unhandled event types are acknowledged without side effects.
		log.Printf("Ignoring webhook event type %s", event.EventType)
		return nil
	}
}

// handleCapture records the payment. A capture only counts when the capture
// status is the literal COMPLETED.
func (s *billingService) handleCapture(ctx context.Context, event *paypalWebhookEvent) error {
	orderID := event.Resource.SupplementaryData.RelatedIDs.OrderID
	status := event.Resource.Status
	captureRef := event.Resource.ID

	if status != "COMPLETED" {
		return fmt.Errorf("capture for order %s not completed: %s", orderID, status)
	}

	order, err := s.orderRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("no payment order for %s: %w", orderID, err)
	}

	amount := order.Amount
	if v := event.Resource.Amount.Value; v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err == nil {
			amount = parsed
		}
	}

	_, err = s.recordCapturedPayment(ctx, order, captureRef, amount)
	return err
}

func (s *billingService) recordCapturedPayment(ctx context.Context, order *models.PaymentOrder, captureRef string, amount float64) (*models.Invoice, error) {
	invoice := &models.Invoice{
		ID:               uuid.New(),
		SubscriptionID:   order.SubscriptionID,
		Amount:           amount,
		Currency:         order.Currency,
		Status:           models.InvoiceStatusPaid,
		PaymentProvider:  paymentProviderPayPal,
		PaymentReference: &captureRef,
	}
	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, err
	}

	// A paid TRIAL subscription becomes ACTIVE; already ACTIVE is fine.
	if err := s.subRepo.ActivateTrial(ctx, order.SubscriptionID); err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	return invoice, nil
}

func (s *billingService) handleDenied(ctx context.Context, event *paypalWebhookEvent) error {
	orderID := event.Resource.SupplementaryData.RelatedIDs.OrderID
	if orderID == "" {
		orderID = event.Resource.ID
	}

	order, err := s.orderRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("no payment order for %s: %w", orderID, err)
	}

	ref := event.Resource.ID
	invoice := &models.Invoice{
		ID:               uuid.New(),
		SubscriptionID:   order.SubscriptionID,
		Amount:           order.Amount,
		Currency:         order.Currency,
		Status:           models.InvoiceStatusFailed,
		PaymentProvider:  paymentProviderPayPal,
		PaymentReference: &ref,
	}
	return s.invoiceRepo.Create(ctx, invoice)
}

func (s *billingService) ListInvoices(ctx context.Context, uc common.UserContext, subscriptionID uuid.UUID, limit, offset int) ([]*models.Invoice, error) {
	sub, err := s.subRepo.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if !subscriptionAccessible(sub, uc) {
		return nil, common.ErrNotFound
	}
	return s.invoiceRepo.ListBySubscription(ctx, subscriptionID, limit, offset)
}

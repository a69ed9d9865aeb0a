package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"mailgrid/internal/common"
	"mailgrid/internal/services"

	"github.com/labstack/echo/v4"
)

// WebhookHandlers receives payment provider callbacks. No authentication
// middleware runs here; the signature check inside the billing service is
// the gate.
type WebhookHandlers struct {
	billingService services.BillingService
}

func NewWebhookHandlers(billingService services.BillingService) *WebhookHandlers {
	return &WebhookHandlers{billingService: billingService}
}

// HandlePayPalWebhook handles POST /webhooks/paypal. A bad signature gets a
// 400 so the sender knows the delivery was rejected. Processing failures
// after the event is in the ledger are acked with 200; the ledger row is
// already marked FAILED for reconciliation and a retry storm helps nobody.
func (h *WebhookHandlers) HandlePayPalWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot read request body")
	}

	err = h.billingService.HandleWebhook(c.Request().Context(), c.Request().Header, body)
	if err != nil {
		if errors.Is(err, common.ErrInvalidSignature) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid signature")
		}
		log.Printf("Webhook processing failed: %v", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "received"})
}

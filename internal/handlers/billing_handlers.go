package handlers

import (
	"net/http"
	"strconv"

	"mailgrid/internal/common"
	"mailgrid/internal/services"

	"github.com/labstack/echo/v4"
)

// BillingHandlers handles HTTP requests for payment orders and invoices
type BillingHandlers struct {
	billingService services.BillingService
}

func NewBillingHandlers(billingService services.BillingService) *BillingHandlers {
	return &BillingHandlers{billingService: billingService}
}

// CreateOrder handles POST /billing/orders. The request carries no amount;
// pricing is derived from the subscription's plan on the server.
func (h *BillingHandlers) CreateOrder(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req struct {
		SubscriptionID string `json:"subscription_id"`
		BillingCycle   string `json:"billing_cycle"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	subscriptionID, err := common.ValidateUUID(req.SubscriptionID, "subscription_id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	order, approvalURL, err := h.billingService.CreateOrder(c.Request().Context(), uc, subscriptionID, req.BillingCycle)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"order":        order,
		"approval_url": approvalURL,
	})
}

// CaptureOrder handles POST /billing/capture. Called on the buyer's return
// from the provider's approval page.
func (h *BillingHandlers) CaptureOrder(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req struct {
		OrderID string `json:"order_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.OrderID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "order_id is required")
	}

	invoice, err := h.billingService.CaptureOrder(c.Request().Context(), uc, req.OrderID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, invoice)
}

// ListInvoices handles GET /billing/subscriptions/:id/invoices
func (h *BillingHandlers) ListInvoices(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	subscriptionID, err := common.ValidateUUID(c.Param("id"), "subscription id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	invoices, err := h.billingService.ListInvoices(c.Request().Context(), uc, subscriptionID, limit, offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, invoices)
}

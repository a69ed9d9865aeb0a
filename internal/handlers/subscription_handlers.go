package handlers

import (
	"net/http"
	"strconv"

	"mailgrid/internal/common"
	"mailgrid/internal/models"
	"mailgrid/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// SubscriptionHandlers handles HTTP requests for plans and subscriptions
type SubscriptionHandlers struct {
	subService services.SubscriptionService
}

func NewSubscriptionHandlers(subService services.SubscriptionService) *SubscriptionHandlers {
	return &SubscriptionHandlers{subService: subService}
}

// ownerOf resolves who a new subscription is billed to: the organization when
// the caller belongs to one, otherwise the caller themselves.
func ownerOf(uc common.UserContext) models.Owner {
	if uc.OrganizationID != nil {
		return models.OrganizationOwner(*uc.OrganizationID)
	}
	return models.UserOwner(uc.UserID)
}

// scopeOf is the read-side counterpart: it carries the caller's user id and
// their organization so lookups see both.
func scopeOf(uc common.UserContext) models.Scope {
	return models.Scope{UserID: uc.UserID, OrganizationID: uc.OrganizationID}
}

// ListPlans handles GET /plans. Public route, served from cache when warm.
func (h *SubscriptionHandlers) ListPlans(c echo.Context) error {
	plans, err := h.subService.ListPlans(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, plans)
}

// Subscribe handles POST /subscriptions
func (h *SubscriptionHandlers) Subscribe(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req struct {
		PlanID       string `json:"plan_id"`
		BillingCycle string `json:"billing_cycle"`
		AutoRenew    bool   `json:"auto_renew"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	planID, err := uuid.Parse(req.PlanID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "plan_id is not a valid UUID")
	}

	sub, err := h.subService.Subscribe(c.Request().Context(), ownerOf(uc), planID, req.BillingCycle, req.AutoRenew)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, sub)
}

// ListSubscriptions handles GET /subscriptions
func (h *SubscriptionHandlers) ListSubscriptions(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	subs, err := h.subService.ListHistory(c.Request().Context(), scopeOf(uc), limit, offset)
	if err != nil {
		return httpError(err)
	}
	if subs == nil {
		subs = []*models.Subscription{}
	}
	return c.JSON(http.StatusOK, subs)
}

// GetActiveSubscription handles GET /subscriptions/active
func (h *SubscriptionHandlers) GetActiveSubscription(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	sub, err := h.subService.GetActive(c.Request().Context(), scopeOf(uc))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sub)
}

// GetSubscription handles GET /subscriptions/:id
func (h *SubscriptionHandlers) GetSubscription(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	id, err := common.ValidateUUID(c.Param("id"), "subscription id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sub, err := h.subService.GetByID(c.Request().Context(), uc, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sub)
}

// ChangePlan handles PUT /subscriptions/:id/plan
func (h *SubscriptionHandlers) ChangePlan(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	id, err := common.ValidateUUID(c.Param("id"), "subscription id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req struct {
		PlanID string `json:"plan_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	planID, err := uuid.Parse(req.PlanID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "plan_id is not a valid UUID")
	}

	sub, err := h.subService.ChangePlan(c.Request().Context(), uc, id, planID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sub)
}

// CancelSubscription handles POST /subscriptions/:id/cancel
func (h *SubscriptionHandlers) CancelSubscription(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	id, err := common.ValidateUUID(c.Param("id"), "subscription id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.subService.Cancel(c.Request().Context(), uc, id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Subscription cancelled"})
}

// CheckFeature handles GET /subscriptions/features/:code
func (h *SubscriptionHandlers) CheckFeature(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	code := c.Param("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Feature code is required")
	}

	allowed, err := h.subService.HasFeature(c.Request().Context(), scopeOf(uc), code)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"feature": code, "enabled": allowed})
}

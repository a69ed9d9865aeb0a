package handlers

import (
	"net/http"

	"mailgrid/internal/common"
	"mailgrid/internal/services"

	"github.com/labstack/echo/v4"
)

// DashboardHandlers handles HTTP requests for the account dashboard
type DashboardHandlers struct {
	dashboardService services.DashboardService
}

func NewDashboardHandlers(dashboardService services.DashboardService) *DashboardHandlers {
	return &DashboardHandlers{dashboardService: dashboardService}
}

// GetStats handles GET /dashboard/stats
func (h *DashboardHandlers) GetStats(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	stats, err := h.dashboardService.GetStats(c.Request().Context(), uc)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

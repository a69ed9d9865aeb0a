package handlers

import (
	"net/http"
	"strings"

	"mailgrid/internal/common"
	"mailgrid/internal/services"

	"github.com/labstack/echo/v4"
)

// OrganizationHandlers handles HTTP requests for the caller's organization
type OrganizationHandlers struct {
	orgService services.OrganizationService
}

func NewOrganizationHandlers(orgService services.OrganizationService) *OrganizationHandlers {
	return &OrganizationHandlers{orgService: orgService}
}

// CreateOrganization handles POST /organizations
func (h *OrganizationHandlers) CreateOrganization(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if strings.TrimSpace(req.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Organization name is required")
	}

	org, err := h.orgService.Create(c.Request().Context(), uc, req.Name)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, org)
}

// GetOrganization handles GET /organizations/me
func (h *OrganizationHandlers) GetOrganization(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	org, err := h.orgService.Get(c.Request().Context(), uc)
	if err != nil {
		return httpError(err)
	}

	memberCount, err := h.orgService.MemberCount(c.Request().Context(), uc)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"organization": org,
		"member_count": memberCount,
	})
}

// UpdateOrganization handles PATCH /organizations/me
func (h *OrganizationHandlers) UpdateOrganization(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	org, err := h.orgService.Update(c.Request().Context(), uc, req.Name)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, org)
}

// AddMember handles POST /organizations/me/members
func (h *OrganizationHandlers) AddMember(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if strings.TrimSpace(req.Email) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email is required")
	}

	member, err := h.orgService.AddMember(c.Request().Context(), uc, req.Email)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, member)
}

// RemoveMember handles DELETE /organizations/me/members/:id
func (h *OrganizationHandlers) RemoveMember(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	memberID, err := common.ValidateUUID(c.Param("id"), "member id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.orgService.RemoveMember(c.Request().Context(), uc, memberID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

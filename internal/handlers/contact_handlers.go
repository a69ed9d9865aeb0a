package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"mailgrid/internal/common"
	"mailgrid/internal/models"
	"mailgrid/internal/services"

	"github.com/labstack/echo/v4"
)

// ContactHandlers handles HTTP requests for contacts
type ContactHandlers struct {
	contactService services.ContactService
}

func NewContactHandlers(contactService services.ContactService) *ContactHandlers {
	return &ContactHandlers{contactService: contactService}
}

// CreateContact handles POST /contacts
func (h *ContactHandlers) CreateContact(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req struct {
		FirstName *string  `json:"first_name"`
		LastName  *string  `json:"last_name"`
		Email     string   `json:"email"`
		Phone     *string  `json:"phone"`
		Tags      []string `json:"tags"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if strings.TrimSpace(req.Email) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email is required")
	}

	contact := &models.Contact{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Tags:      req.Tags,
	}
	created, err := h.contactService.Create(c.Request().Context(), uc, contact)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

// GetContact handles GET /contacts/:id
func (h *ContactHandlers) GetContact(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	id, err := common.ValidateUUID(c.Param("id"), "contact id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	contact, err := h.contactService.GetByID(c.Request().Context(), uc, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, contact)
}

// ListContacts handles GET /contacts
func (h *ContactHandlers) ListContacts(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	filters := &models.ContactFilters{
		Search: c.QueryParam("search"),
		Limit:  limit,
		Offset: offset,
	}
	if tags := c.QueryParam("tags"); tags != "" {
		filters.Tags = strings.Split(tags, ",")
	}

	contacts, err := h.contactService.List(c.Request().Context(), uc, filters)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, contacts)
}

// ListTags handles GET /contacts/tags
func (h *ContactHandlers) ListTags(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	tags, err := h.contactService.ListTags(c.Request().Context(), uc)
	if err != nil {
		return httpError(err)
	}
	if tags == nil {
		tags = []string{}
	}
	return c.JSON(http.StatusOK, tags)
}

// UpdateContact handles PATCH /contacts/:id
func (h *ContactHandlers) UpdateContact(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	id, err := common.ValidateUUID(c.Param("id"), "contact id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req struct {
		FirstName *string  `json:"first_name"`
		LastName  *string  `json:"last_name"`
		Email     *string  `json:"email"`
		Phone     *string  `json:"phone"`
		Tags      []string `json:"tags"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	patch := &models.ContactPatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Tags:      req.Tags,
	}
	updated, err := h.contactService.Update(c.Request().Context(), uc, id, patch)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteContact handles DELETE /contacts/:id
func (h *ContactHandlers) DeleteContact(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	id, err := common.ValidateUUID(c.Param("id"), "contact id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.contactService.Delete(c.Request().Context(), uc, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

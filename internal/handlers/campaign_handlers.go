package handlers

import (
	"net/http"
	"strconv"
	"time"

	"mailgrid/internal/common"
	"mailgrid/internal/models"
	"mailgrid/internal/services"

	"github.com/labstack/echo/v4"
)

// CampaignHandlers handles HTTP requests for campaigns
type CampaignHandlers struct {
	campaignService services.CampaignService
	assetService    services.AssetService
}

func NewCampaignHandlers(campaignService services.CampaignService, assetService services.AssetService) *CampaignHandlers {
	return &CampaignHandlers{campaignService: campaignService, assetService: assetService}
}

// CreateCampaign handles POST /campaigns
func (h *CampaignHandlers) CreateCampaign(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req struct {
		Name    string                       `json:"name"`
		Content *models.CampaignContentInput `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Campaign name is required")
	}

	campaign, err := h.campaignService.Create(c.Request().Context(), uc, req.Name, req.Content)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, campaign)
}

// GetCampaign handles GET /campaigns/:id
func (h *CampaignHandlers) GetCampaign(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	id, err := common.ValidateUUID(c.Param("id"), "campaign id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	campaign, err := h.campaignService.GetByID(c.Request().Context(), uc, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, campaign)
}

// ListCampaigns handles GET /campaigns
func (h *CampaignHandlers) ListCampaigns(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	filters := &models.CampaignFilters{
		Status: c.QueryParam("status"),
		Search: c.QueryParam("search"),
		Limit:  limit,
		Offset: offset,
	}

	campaigns, err := h.campaignService.List(c.Request().Context(), uc, filters)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, campaigns)
}

// UpdateCampaign handles PATCH /campaigns/:id
func (h *CampaignHandlers) UpdateCampaign(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	id, err := common.ValidateUUID(c.Param("id"), "campaign id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req struct {
		Name     *string                      `json:"name"`
		Status   *string                      `json:"status"`
		SendDate *time.Time                   `json:"send_date"`
		Content  *models.CampaignContentInput `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	patch := &models.CampaignPatch{
		Name:     req.Name,
		Status:   req.Status,
		SendDate: req.SendDate,
		Content:  req.Content,
	}
	updated, err := h.campaignService.Update(c.Request().Context(), uc, id, patch)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteCampaign handles DELETE /campaigns/:id
func (h *CampaignHandlers) DeleteCampaign(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	id, err := common.ValidateUUID(c.Param("id"), "campaign id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.campaignService.Delete(c.Request().Context(), uc, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RecordMetrics handles PUT /campaigns/:id/metrics. The sending pipeline
// reports aggregate counts; they are stored verbatim.
func (h *CampaignHandlers) RecordMetrics(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	id, err := common.ValidateUUID(c.Param("id"), "campaign id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req struct {
		TotalSent         int `json:"total_sent"`
		TotalOpened       int `json:"total_opened"`
		TotalClicked      int `json:"total_clicked"`
		TotalBounced      int `json:"total_bounced"`
		TotalUnsubscribed int `json:"total_unsubscribed"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	metrics := &models.CampaignMetrics{
		TotalSent:         req.TotalSent,
		TotalOpened:       req.TotalOpened,
		TotalClicked:      req.TotalClicked,
		TotalBounced:      req.TotalBounced,
		TotalUnsubscribed: req.TotalUnsubscribed,
	}
	if err := h.campaignService.RecordMetrics(c.Request().Context(), uc, id, metrics); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Metrics recorded"})
}

// UploadAsset handles POST /campaigns/:id/assets
func (h *CampaignHandlers) UploadAsset(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	id, err := common.ValidateUUID(c.Param("id"), "campaign id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// Ownership check before touching object storage.
	if _, err := h.campaignService.GetByID(c.Request().Context(), uc, id); err != nil {
		return httpError(err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "File is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot read file")
	}
	defer src.Close()

	objectName, err := h.assetService.UploadAsset(c.Request().Context(), id, file.Filename, file.Header.Get("Content-Type"), src, file.Size)
	if err != nil {
		return httpError(err)
	}

	url, err := h.assetService.GetPresignedURL(c.Request().Context(), objectName, 24*time.Hour)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"object_name": objectName, "url": url})
}

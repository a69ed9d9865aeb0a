package handlers

import (
	"net/http"
	"strings"

	"mailgrid/internal/common"
	"mailgrid/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthHandlers handles HTTP requests for authentication
type AuthHandlers struct {
	authService services.AuthService
	rbacService services.RBACService
}

func NewAuthHandlers(authService services.AuthService, rbacService services.RBACService) *AuthHandlers {
	return &AuthHandlers{authService: authService, rbacService: rbacService}
}

// Register handles POST /auth/register
func (h *AuthHandlers) Register(c echo.Context) error {
	var req struct {
		Email    string  `json:"email"`
		Password string  `json:"password"`
		Name     *string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email and password are required")
	}

	result, err := h.authService.Register(c.Request().Context(), req.Email, req.Password, req.Name)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

// Login handles POST /auth/login
func (h *AuthHandlers) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	result, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// RefreshToken handles POST /auth/refresh
func (h *AuthHandlers) RefreshToken(c echo.Context) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	token, err := h.authService.RefreshToken(c.Request().Context(), req.Token)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

// ChangePassword handles POST /auth/change-password. A wrong current
// password and a missing account both come back as the same 400.
func (h *AuthHandlers) ChangePassword(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	changed, err := h.authService.ChangePassword(c.Request().Context(), uc.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !changed {
		return echo.NewHTTPError(http.StatusBadRequest, "Password change failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Password changed"})
}

// ResetPassword handles POST /auth/reset-password. The response does not
// reveal whether the email exists.
func (h *AuthHandlers) ResetPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	token, err := h.authService.ResetPassword(c.Request().Context(), req.Email)
	if err != nil {
		return httpError(err)
	}

	resp := map[string]string{"message": "If the account exists, a reset link has been sent"}
	// TODO: deliver the token by email once the notification pipeline lands.
	if token != "" {
		resp["reset_token"] = token
	}
	return c.JSON(http.StatusOK, resp)
}

// ConfirmPasswordReset handles POST /auth/reset-password/confirm
func (h *AuthHandlers) ConfirmPasswordReset(c echo.Context) error {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := h.authService.ConfirmPasswordReset(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Password reset"})
}

// Me handles GET /auth/me
func (h *AuthHandlers) Me(c echo.Context) error {
	uc, ok := common.UserContextFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	roles, err := h.rbacService.GetUserRoles(c.Request().Context(), uc.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"user_id":         uc.UserID,
		"organization_id": uc.OrganizationID,
		"roles":           roles,
	})
}

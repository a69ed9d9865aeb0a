package handlers

import (
	"errors"
	"net/http"

	"mailgrid/internal/common"

	"github.com/labstack/echo/v4"
)

// httpError maps the domain error taxonomy to HTTP statuses. Ownership
// mismatches arrive here as ErrNotFound and go out as 404.
func httpError(err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, common.ErrInactiveUser):
		return echo.NewHTTPError(http.StatusForbidden, "Account is inactive")
	case errors.Is(err, common.ErrDuplicateEmail):
		return echo.NewHTTPError(http.StatusConflict, "User already exists with this email")
	case errors.Is(err, common.ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many attempts, try again later")
	case errors.Is(err, common.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, common.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, common.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	case errors.Is(err, common.ErrNoActiveSubscription):
		return echo.NewHTTPError(http.StatusPaymentRequired, "An active subscription is required")
	case errors.Is(err, common.ErrVersionConflict):
		return echo.NewHTTPError(http.StatusConflict, "The subscription was modified concurrently, retry")
	case errors.Is(err, common.ErrPlanNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Plan not found")
	case errors.Is(err, common.ErrPlanHasNoFeatures):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Plan defines no features")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
}

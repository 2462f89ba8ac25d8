package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/services"

	"github.com/labstack/echo/v4"
)

// serviceError maps service sentinels onto HTTP errors. Anything else is
// returned as is and rendered as a 500 with its message.
func serviceError(err error) error {
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	case errors.Is(err, services.ErrCategoryNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "category not found")
	case errors.Is(err, services.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrUnsupportedPaymentMethod):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	case errors.Is(err, payments.ErrWebhookNotConfigured):
		return echo.NewHTTPError(http.StatusNotFound, err.Error()).SetInternal(err)
	case errors.Is(err, payments.ErrMetadataTooLarge):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	case errors.Is(err, payments.ErrInvalidSignature):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error()).SetInternal(err)
	case errors.Is(err, payments.ErrProvider):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error()).SetInternal(err)
	default:
		return err
	}
}

func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}

func respond(c echo.Context, code int, key string, value any) error {
	return c.JSON(code, map[string]any{"error": nil, key: value})
}

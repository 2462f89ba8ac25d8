package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/middleware"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/services"

	"github.com/labstack/echo/v4"
)

// Enricher contributes extra metadata to a checkout, typically the buyer's
// identity. Returning services.ErrUnauthorized rejects the request with 401.
type Enricher func(c echo.Context) (map[string]any, error)

// ClaimsEnricher copies the authenticated user onto the checkout metadata.
// When requireAuth is set anonymous checkouts are rejected.
func ClaimsEnricher(requireAuth bool) Enricher {
	return func(c echo.Context) (map[string]any, error) {
		userID, ok := middleware.GetUserID(c)
		if !ok {
			if requireAuth {
				return nil, services.ErrUnauthorized
			}
			return nil, nil
		}

		extra := map[string]any{"user_id": strconv.FormatUint(uint64(userID), 10)}
		if email, ok := middleware.GetEmail(c); ok {
			extra["customer_email"] = email
		}
		return extra, nil
	}
}

type CheckoutHandler struct {
	checkout *services.CheckoutService
	enrich   Enricher
}

func NewCheckoutHandler(checkout *services.CheckoutService, enrich Enricher) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, enrich: enrich}
}

type CheckoutRequest struct {
	ProductID     json.Number `json:"product_id"`
	PaymentMethod string      `json:"payment_method"`
}

func (h *CheckoutHandler) Create(c echo.Context) error {
	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	productID, err := strconv.ParseUint(req.ProductID.String(), 10, 64)
	if err != nil || productID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "product_id is required")
	}
	if req.PaymentMethod == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "payment_method is required")
	}

	var extra map[string]any
	if h.enrich != nil {
		extra, err = h.enrich(c)
		if errors.Is(err, services.ErrUnauthorized) {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		if err != nil {
			return err
		}
	}

	result, err := h.checkout.Initiate(c.Request().Context(), uint(productID), req.PaymentMethod, extra)
	if err != nil {
		return serviceError(err)
	}

	body := map[string]any{"error": nil}
	if result.ApprovalURL != "" {
		body["approvalUrl"] = result.ApprovalURL
		body["orderId"] = result.OrderID
	}
	if result.HostedURL != "" {
		body["hostedUrl"] = result.HostedURL
		body["chargeCode"] = result.ChargeCode
	}
	return c.JSON(http.StatusOK, body)
}

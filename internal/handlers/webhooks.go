package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/logging"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments/coinbase"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments/paypal"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const maxWebhookBody = 1 << 20

// PayPalWebhooks is the part of the PayPal client the webhook endpoint needs.
type PayPalWebhooks interface {
	VerifyWebhook(ctx context.Context, header http.Header, body []byte) error
	CaptureOrder(ctx context.Context, orderID string) error
}

type WebhookHandler struct {
	paypal         PayPalWebhooks
	coinbaseSecret string
	dispatcher     payments.Dispatcher
}

// NewWebhookHandler routes provider deliveries to dispatcher, which is
// either the in-process Hub or the job queue in front of it.
func NewWebhookHandler(pp PayPalWebhooks, coinbaseSecret string, dispatcher payments.Dispatcher) *WebhookHandler {
	return &WebhookHandler{
		paypal:         pp,
		coinbaseSecret: coinbaseSecret,
		dispatcher:     dispatcher,
	}
}

func (h *WebhookHandler) PayPal(c echo.Context) error {
	if h.paypal == nil {
		return echo.NewHTTPError(http.StatusNotFound, "paypal is not configured")
	}

	body, err := readBody(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.paypal.VerifyWebhook(ctx, c.Request().Header, body); err != nil {
		return serviceError(err)
	}

	event, err := paypal.ParseWebhook(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if orderID, ok := event.ApprovedOrderID(); ok {
		if err := h.paypal.CaptureOrder(ctx, orderID); err != nil {
			return serviceError(err)
		}
		logging.Info(ctx).
			Str("order_id", orderID).
			Msg("paypal order captured")
		return received(c)
	}

	outcome, n, ok, err := event.Notification()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !ok {
		logging.Debug(ctx).
			Str("event_type", event.EventType).
			Msg("paypal event ignored")
		return received(c)
	}

	return h.dispatch(c, outcome, n)
}

func (h *WebhookHandler) Coinbase(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}

	if err := coinbase.VerifySignature(h.coinbaseSecret, body, c.Request().Header.Get(coinbase.SignatureHeader)); err != nil {
		return serviceError(err)
	}

	event, err := coinbase.ParseWebhook(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	outcome, n, ok := event.Notification()
	if !ok {
		logging.Debug(c.Request().Context()).
			Str("event_type", event.Type()).
			Msg("coinbase event ignored")
		return received(c)
	}

	return h.dispatch(c, outcome, n)
}

func (h *WebhookHandler) dispatch(c echo.Context, outcome payments.Outcome, n payments.Notification) error {
	if n.DeliveryID == "" {
		n.DeliveryID = uuid.NewString()
	}

	if err := h.dispatcher.Publish(c.Request().Context(), outcome, n); err != nil {
		return err
	}
	return received(c)
}

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}
	return body, nil
}

func received(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}

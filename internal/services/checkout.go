package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/logging"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var checkoutCounter metric.Int64Counter

// CheckoutResult is the provider redirect handle. Approval providers fill
// ApprovalURL and OrderID, hosted page providers fill HostedURL and
// ChargeCode.
type CheckoutResult struct {
	ApprovalURL string `json:"approvalUrl,omitempty"`
	OrderID     string `json:"orderId,omitempty"`
	HostedURL   string `json:"hostedUrl,omitempty"`
	ChargeCode  string `json:"chargeCode,omitempty"`
}

type CheckoutService struct {
	products ProductReader
	paypal   payments.OrderCreator
	coinbase payments.ChargeCreator
	currency string
}

// NewCheckoutService wires the configured providers. A nil provider makes
// its payment method unavailable.
func NewCheckoutService(products ProductReader, paypal payments.OrderCreator, coinbase payments.ChargeCreator, currency string) *CheckoutService {
	var err error
	checkoutCounter, err = meter.Int64Counter(
		"checkout.initiated",
		metric.WithDescription("Total number of checkouts started with a payment provider"),
	)
	if err != nil {
		logging.Logger().Error().Err(err).Msg("failed to create checkout counter")
	}

	return &CheckoutService{
		products: products,
		paypal:   paypal,
		coinbase: coinbase,
		currency: strings.ToUpper(currency),
	}
}

// Initiate creates a payable order or charge for the product. The provider
// echoes metadata {product_id, ...extra} back on every notification.
func (s *CheckoutService) Initiate(ctx context.Context, productID uint, method string, extra map[string]any) (*CheckoutResult, error) {
	ctx, span := tracer.Start(ctx, "checkout.initiate")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product.id", int64(productID)),
		attribute.String("payment.method", method),
	)

	if !s.supports(method) {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedPaymentMethod, method)
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	metadata := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		metadata[k] = v
	}
	metadata[payments.MetadataProductID] = product.ID

	purchase := payments.Purchase{
		Title:    product.Name,
		Price:    product.Price,
		Currency: s.currency,
		Metadata: metadata,
	}

	var result *CheckoutResult
	switch method {
	case payments.MethodPayPal:
		order, err := s.paypal.CreateOrder(ctx, purchase)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("create paypal order: %w", err)
		}
		result = &CheckoutResult{ApprovalURL: order.ApprovalURL, OrderID: order.OrderID}
	case payments.MethodCrypto:
		charge, err := s.coinbase.CreateCharge(ctx, purchase)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("create coinbase charge: %w", err)
		}
		result = &CheckoutResult{HostedURL: charge.HostedURL, ChargeCode: charge.ChargeCode}
	}

	if checkoutCounter != nil {
		checkoutCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", method),
		))
	}

	logging.Info(ctx).
		Uint("product_id", product.ID).
		Str("method", method).
		Msg("checkout initiated")

	return result, nil
}

func (s *CheckoutService) supports(method string) bool {
	switch method {
	case payments.MethodPayPal:
		return s.paypal != nil
	case payments.MethodCrypto:
		return s.coinbase != nil
	default:
		return false
	}
}

package payments

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

const (
	MethodPayPal = "paypal"
	MethodCrypto = "crypto"
)

var (
	ErrProvider             = errors.New("payment provider error")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrWebhookNotConfigured = errors.New("webhook verification is not configured")
	ErrMetadataTooLarge     = errors.New("payment metadata too large")
)

// Purchase is what the shop asks a provider to collect payment for.
// Metadata is echoed back on every notification for the payment.
type Purchase struct {
	Title    string
	Price    decimal.Decimal
	Currency string
	Metadata map[string]any
}

type ApprovalOrder struct {
	ApprovalURL string
	OrderID     string
}

type HostedCharge struct {
	HostedURL  string
	ChargeCode string
}

// OrderCreator is an approval based provider such as PayPal.
type OrderCreator interface {
	CreateOrder(ctx context.Context, p Purchase) (*ApprovalOrder, error)
}

// ChargeCreator is a hosted payment page provider such as Coinbase Commerce.
type ChargeCreator interface {
	CreateCharge(ctx context.Context, p Purchase) (*HostedCharge, error)
}

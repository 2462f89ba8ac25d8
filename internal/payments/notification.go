// Package payments normalizes provider notifications and fans them out to
// subscribers. Provider clients live in the paypal and coinbase subpackages.
package payments

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/models"

	"github.com/shopspring/decimal"
)

const (
	MetadataProductID     = "product_id"
	MetadataUserID        = "user_id"
	MetadataLegacyUserID  = "userId"
	MetadataCustomerEmail = "customer_email"
	MetadataCustomerName  = "customer_name"
)

type LocalPrice struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

type Pricing struct {
	Local *LocalPrice `json:"local,omitempty"`
}

// Notification is a provider payment outcome as delivered to subscribers.
// Providers fill whichever identifier and amount fields they have.
type Notification struct {
	DeliveryID string           `json:"delivery_id,omitempty"`
	Status     string           `json:"status"`
	Provider   string           `json:"provider,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Pricing    *Pricing         `json:"pricing,omitempty"`
	PaymentID  string           `json:"payment_id,omitempty"`
	OrderID    string           `json:"order_id,omitempty"`
	ChargeID   string           `json:"charge_id,omitempty"`
	Metadata   map[string]any   `json:"metadata,omitempty"`
}

// ResolveStatus maps raw provider status spellings onto an order status.
// Unrecognized values map to pending.
func ResolveStatus(raw string) models.OrderStatus {
	switch raw {
	case "COMPLETED", "confirmed":
		return models.OrderStatusCompleted
	case "FAILED", "failed":
		return models.OrderStatusFailed
	case "CANCELLED", "cancelled":
		return models.OrderStatusCancelled
	default:
		return models.OrderStatusPending
	}
}

// ResolveAmount prefers a direct non-zero amount, then the local pricing
// amount, then zero.
func (n Notification) ResolveAmount() decimal.Decimal {
	if n.Amount != nil && !n.Amount.IsZero() {
		return *n.Amount
	}
	if n.Pricing != nil && n.Pricing.Local != nil && n.Pricing.Local.Amount != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(n.Pricing.Local.Amount)); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// CorrelationID returns the first available provider identifier.
func (n Notification) CorrelationID() *string {
	for _, id := range []string{n.PaymentID, n.OrderID, n.ChargeID} {
		if id != "" {
			return &id
		}
	}
	return nil
}

// ProductID extracts the product identifier from metadata. Metadata that
// went through JSON carries numbers as float64 and some providers echo
// values back as strings, so both are accepted.
func (n Notification) ProductID() (uint, bool) {
	if n.Metadata == nil {
		return 0, false
	}
	return toID(n.Metadata[MetadataProductID])
}

func (n Notification) MetadataString(key string) *string {
	if n.Metadata == nil {
		return nil
	}
	switch v := n.Metadata[key].(type) {
	case string:
		if v == "" {
			return nil
		}
		return &v
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		return &s
	case int:
		s := strconv.Itoa(v)
		return &s
	case uint:
		s := strconv.FormatUint(uint64(v), 10)
		return &s
	case json.Number:
		s := v.String()
		return &s
	default:
		return nil
	}
}

func toID(v any) (uint, bool) {
	switch id := v.(type) {
	case float64:
		if id <= 0 || id != float64(uint(id)) {
			return 0, false
		}
		return uint(id), true
	case int:
		if id <= 0 {
			return 0, false
		}
		return uint(id), true
	case int64:
		if id <= 0 {
			return 0, false
		}
		return uint(id), true
	case uint:
		return id, id > 0
	case json.Number:
		n, err := strconv.ParseUint(id.String(), 10, 64)
		if err != nil || n == 0 {
			return 0, false
		}
		return uint(n), true
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
		if err != nil || n == 0 {
			return 0, false
		}
		return uint(n), true
	default:
		return 0, false
	}
}

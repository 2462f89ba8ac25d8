package coinbase

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments"
)

const (
	Provider        = "coinbase"
	SignatureHeader = "X-CC-Webhook-Signature"
)

const (
	EventChargeConfirmed = "charge:confirmed"
	EventChargeFailed    = "charge:failed"
	EventChargeCancelled = "charge:cancelled"
	EventChargeExpired   = "charge:expired"
)

// VerifySignature checks the hex HMAC-SHA256 of body under secret.
// Without a secret every delivery is refused.
func VerifySignature(secret string, body []byte, signature string) error {
	if secret == "" {
		return payments.ErrWebhookNotConfigured
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) == 0 {
		return payments.ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return payments.ErrInvalidSignature
	}
	return nil
}

type Event struct {
	ID    string `json:"id"`
	Event struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			ID       string            `json:"id"`
			Code     string            `json:"code"`
			Metadata map[string]any    `json:"metadata"`
			Pricing  *payments.Pricing `json:"pricing"`
		} `json:"data"`
	} `json:"event"`
}

func ParseWebhook(body []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("decode coinbase webhook: %w", err)
	}
	if e.Event.Type == "" {
		return nil, fmt.Errorf("decode coinbase webhook: missing event.type")
	}
	return &e, nil
}

func (e *Event) Type() string { return e.Event.Type }

// Notification maps the charge event onto a payment outcome. The boolean
// is false for event types the shop does not act on, such as
// charge:created and charge:pending.
func (e *Event) Notification() (payments.Outcome, payments.Notification, bool) {
	var outcome payments.Outcome
	switch e.Event.Type {
	case EventChargeConfirmed:
		outcome = payments.OutcomeCompleted
	case EventChargeFailed:
		outcome = payments.OutcomeFailed
	case EventChargeCancelled, EventChargeExpired:
		outcome = payments.OutcomeCancelled
	default:
		return "", payments.Notification{}, false
	}

	deliveryID := e.Event.ID
	if deliveryID == "" {
		deliveryID = e.ID
	}
	chargeID := e.Event.Data.Code
	if chargeID == "" {
		chargeID = e.Event.Data.ID
	}

	return outcome, payments.Notification{
		DeliveryID: deliveryID,
		Provider:   Provider,
		ChargeID:   chargeID,
		Pricing:    e.Event.Data.Pricing,
		Metadata:   e.Event.Data.Metadata,
	}, true
}

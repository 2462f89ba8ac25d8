package paypal

import (
	"encoding/json"
	"fmt"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments"

	"github.com/shopspring/decimal"
)

const Provider = "paypal"

const (
	EventOrderApproved   = "CHECKOUT.ORDER.APPROVED"
	EventOrderVoided     = "CHECKOUT.ORDER.VOIDED"
	EventCaptureComplete = "PAYMENT.CAPTURE.COMPLETED"
	EventCaptureDenied   = "PAYMENT.CAPTURE.DENIED"
	EventCaptureDeclined = "PAYMENT.CAPTURE.DECLINED"
)

type Event struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Resource  json.RawMessage `json:"resource"`
}

type captureResource struct {
	ID                string  `json:"id"`
	Status            string  `json:"status"`
	CustomID          string  `json:"custom_id"`
	Amount            *amount `json:"amount"`
	SupplementaryData struct {
		RelatedIDs struct {
			OrderID string `json:"order_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data"`
}

type orderResource struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

func ParseWebhook(body []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("decode paypal webhook: %w", err)
	}
	if e.EventType == "" {
		return nil, fmt.Errorf("decode paypal webhook: missing event_type")
	}
	return &e, nil
}

// ApprovedOrderID returns the order id of a CHECKOUT.ORDER.APPROVED event,
// which must be captured before PayPal reports an outcome.
func (e *Event) ApprovedOrderID() (string, bool) {
	if e.EventType != EventOrderApproved {
		return "", false
	}
	var res orderResource
	if err := json.Unmarshal(e.Resource, &res); err != nil || res.ID == "" {
		return "", false
	}
	return res.ID, true
}

// Notification maps the event onto a payment outcome. The boolean is false
// for event types the shop does not act on.
func (e *Event) Notification() (payments.Outcome, payments.Notification, bool, error) {
	switch e.EventType {
	case EventCaptureComplete, EventCaptureDenied, EventCaptureDeclined:
		var res captureResource
		if err := json.Unmarshal(e.Resource, &res); err != nil {
			return "", payments.Notification{}, false, fmt.Errorf("decode capture resource: %w", err)
		}
		outcome := payments.OutcomeFailed
		if e.EventType == EventCaptureComplete {
			outcome = payments.OutcomeCompleted
		}
		n := payments.Notification{
			DeliveryID: e.ID,
			Provider:   Provider,
			PaymentID:  res.ID,
			OrderID:    res.SupplementaryData.RelatedIDs.OrderID,
			Amount:     parseAmount(res.Amount),
			Metadata:   decodeCustomID(res.CustomID),
		}
		return outcome, n, true, nil

	case EventOrderVoided:
		var res orderResource
		if err := json.Unmarshal(e.Resource, &res); err != nil {
			return "", payments.Notification{}, false, fmt.Errorf("decode order resource: %w", err)
		}
		n := payments.Notification{
			DeliveryID: e.ID,
			Provider:   Provider,
			OrderID:    res.ID,
		}
		if len(res.PurchaseUnits) > 0 {
			n.Amount = parseAmount(&res.PurchaseUnits[0].Amount)
			n.Metadata = decodeCustomID(res.PurchaseUnits[0].CustomID)
		}
		return payments.OutcomeCancelled, n, true, nil

	default:
		return "", payments.Notification{}, false, nil
	}
}

func parseAmount(a *amount) *decimal.Decimal {
	if a == nil || a.Value == "" {
		return nil
	}
	d, err := decimal.NewFromString(a.Value)
	if err != nil {
		return nil
	}
	return &d
}

func decodeCustomID(customID string) map[string]any {
	if customID == "" {
		return nil
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(customID), &metadata); err != nil {
		return nil
	}
	return metadata
}

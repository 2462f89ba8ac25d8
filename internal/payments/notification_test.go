package payments

import (
	"encoding/json"
	"testing"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/models"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStatus(t *testing.T) {
	tests := map[string]models.OrderStatus{
		"COMPLETED": models.OrderStatusCompleted,
		"confirmed": models.OrderStatusCompleted,
		"FAILED":    models.OrderStatusFailed,
		"failed":    models.OrderStatusFailed,
		"CANCELLED": models.OrderStatusCancelled,
		"cancelled": models.OrderStatusCancelled,
		"completed": models.OrderStatusPending,
		"CONFIRMED": models.OrderStatusPending,
		"":          models.OrderStatusPending,
		"PENDING":   models.OrderStatusPending,
	}

	for raw, want := range tests {
		assert.Equal(t, want, ResolveStatus(raw), "status %q", raw)
	}
}

func TestResolveStatusIsTotal(t *testing.T) {
	known := map[string]bool{
		"COMPLETED": true, "confirmed": true,
		"FAILED": true, "failed": true,
		"CANCELLED": true, "cancelled": true,
	}

	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("unknown statuses map to pending", prop.ForAll(
		func(raw string) bool {
			if known[raw] {
				return true
			}
			return ResolveStatus(raw) == models.OrderStatusPending
		},
		gen.AnyString(),
	))

	properties.Property("mapping is deterministic", prop.ForAll(
		func(raw string) bool {
			return ResolveStatus(raw) == ResolveStatus(raw)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestResolveAmount(t *testing.T) {
	direct := decimal.RequireFromString("12.5")
	zero := decimal.Zero

	tests := []struct {
		name string
		n    Notification
		want string
	}{
		{name: "direct amount", n: Notification{Amount: &direct}, want: "12.5"},
		{name: "local pricing", n: Notification{Pricing: &Pricing{Local: &LocalPrice{Amount: "7.25"}}}, want: "7.25"},
		{name: "direct wins", n: Notification{Amount: &direct, Pricing: &Pricing{Local: &LocalPrice{Amount: "7.25"}}}, want: "12.5"},
		{name: "zero direct falls back", n: Notification{Amount: &zero, Pricing: &Pricing{Local: &LocalPrice{Amount: "7.25"}}}, want: "7.25"},
		{name: "neither", n: Notification{}, want: "0"},
		{name: "unparsable pricing", n: Notification{Pricing: &Pricing{Local: &LocalPrice{Amount: "abc"}}}, want: "0"},
		{name: "empty local", n: Notification{Pricing: &Pricing{}}, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, decimal.RequireFromString(tt.want).Equal(tt.n.ResolveAmount()), "got %s", tt.n.ResolveAmount())
		})
	}
}

func TestResolveAmountFromPricingProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("local pricing amount round-trips", prop.ForAll(
		func(cents int64) bool {
			d := decimal.New(cents, -2)
			n := Notification{Pricing: &Pricing{Local: &LocalPrice{Amount: d.StringFixed(2)}}}
			return n.ResolveAmount().Equal(d)
		},
		gen.Int64Range(0, 100000000),
	))

	properties.TestingRun(t)
}

func TestCorrelationID(t *testing.T) {
	assert.Nil(t, Notification{}.CorrelationID())
	assert.Equal(t, "pay", *Notification{PaymentID: "pay", OrderID: "ord", ChargeID: "chg"}.CorrelationID())
	assert.Equal(t, "ord", *Notification{OrderID: "ord", ChargeID: "chg"}.CorrelationID())
	assert.Equal(t, "chg", *Notification{ChargeID: "chg"}.CorrelationID())
}

func TestProductID(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		want     uint
		ok       bool
	}{
		{name: "nil metadata", metadata: nil},
		{name: "missing key", metadata: map[string]any{"user_id": "u1"}},
		{name: "float", metadata: map[string]any{"product_id": float64(3)}, want: 3, ok: true},
		{name: "int", metadata: map[string]any{"product_id": 4}, want: 4, ok: true},
		{name: "string", metadata: map[string]any{"product_id": "5"}, want: 5, ok: true},
		{name: "json number", metadata: map[string]any{"product_id": json.Number("6")}, want: 6, ok: true},
		{name: "zero", metadata: map[string]any{"product_id": float64(0)}},
		{name: "fraction", metadata: map[string]any{"product_id": 1.5}},
		{name: "garbage", metadata: map[string]any{"product_id": "abc"}},
		{name: "null", metadata: map[string]any{"product_id": nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := Notification{Metadata: tt.metadata}.ProductID()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestNotificationJSON(t *testing.T) {
	var n Notification
	require.NoError(t, json.Unmarshal([]byte(`{
		"status": "COMPLETED",
		"amount": 20,
		"metadata": {"product_id": 1, "user_id": "u-1"}
	}`), &n))

	id, ok := n.ProductID()
	require.True(t, ok)
	assert.Equal(t, uint(1), id)
	assert.True(t, decimal.NewFromInt(20).Equal(n.ResolveAmount()))
	assert.Equal(t, "u-1", *n.MetadataString(MetadataUserID))
	assert.Nil(t, n.MetadataString(MetadataCustomerEmail))
}

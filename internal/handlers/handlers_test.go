package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/actions"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/middleware"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/models"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments/coinbase"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments/paypal"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/services"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/store"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catalogStore struct {
	products map[uint]*models.Product
}

func (s *catalogStore) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (s *catalogStore) ListActiveProducts(ctx context.Context, category string) ([]models.Product, error) {
	out := []models.Product{}
	for _, p := range s.products {
		if p.Active {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *catalogStore) CreateProduct(ctx context.Context, p *models.Product) error {
	p.ID = uint(len(s.products) + 1)
	s.products[p.ID] = p
	return nil
}

func (s *catalogStore) UpdateProduct(ctx context.Context, id uint, updates map[string]any) error {
	return nil
}

func (s *catalogStore) DeleteProduct(ctx context.Context, id uint) error {
	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *catalogStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	return []models.Category{}, nil
}

func (s *catalogStore) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	return nil, store.ErrNotFound
}

func (s *catalogStore) CreateCategory(ctx context.Context, c *models.Category) error {
	return nil
}

func (s *catalogStore) UpdateCategory(ctx context.Context, id uint, updates map[string]any) error {
	return nil
}

func (s *catalogStore) DeleteCategory(ctx context.Context, id uint) error {
	return nil
}

func (s *catalogStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	return []models.Order{}, nil
}

type fakePayPal struct {
	orders    []payments.Purchase
	captured  []string
	verify    error
	createErr error
}

func (f *fakePayPal) CreateOrder(ctx context.Context, p payments.Purchase) (*payments.ApprovalOrder, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.orders = append(f.orders, p)
	return &payments.ApprovalOrder{OrderID: "ORDER-1", ApprovalURL: "https://paypal.test/approve/ORDER-1"}, nil
}

func (f *fakePayPal) CaptureOrder(ctx context.Context, orderID string) error {
	f.captured = append(f.captured, orderID)
	return nil
}

func (f *fakePayPal) VerifyWebhook(ctx context.Context, header http.Header, body []byte) error {
	return f.verify
}

type recordingDispatcher struct {
	outcomes      []payments.Outcome
	notifications []payments.Notification
	err           error
}

func (d *recordingDispatcher) Publish(ctx context.Context, outcome payments.Outcome, n payments.Notification) error {
	if d.err != nil {
		return d.err
	}
	d.outcomes = append(d.outcomes, outcome)
	d.notifications = append(d.notifications, n)
	return nil
}

func newCatalogStore() *catalogStore {
	return &catalogStore{products: map[uint]*models.Product{
		1: {ID: 1, Name: "VIP Pass", Price: decimal.RequireFromString("19.90"), Active: true},
	}}
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	return e
}

func serve(e *echo.Echo, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestProductRoutes(t *testing.T) {
	e := newEcho()
	h := NewCatalogHandler(services.NewCatalogService(newCatalogStore(), nil))
	e.GET("/products/list", h.ListProducts)
	e.GET("/product/:id", h.GetProduct)
	e.DELETE("/product/delete/:id", h.DeleteProduct)

	t.Run("list uses the success envelope", func(t *testing.T) {
		rec := serve(e, http.MethodGet, "/products/list", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Contains(t, body, "error")
		assert.Nil(t, body["error"])
		assert.Len(t, body["products"], 1)
	})

	t.Run("missing product is 404", func(t *testing.T) {
		rec := serve(e, http.MethodGet, "/product/42", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "product not found", decodeBody(t, rec)["error"])
	})

	t.Run("non numeric id is 400", func(t *testing.T) {
		rec := serve(e, http.MethodGet, "/product/abc", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete reports success", func(t *testing.T) {
		rec := serve(e, http.MethodDelete, "/product/delete/1", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decodeBody(t, rec)["success"])
	})
}

func TestCreateProductValidation(t *testing.T) {
	registry, err := actions.NewRegistry(nil)
	require.NoError(t, err)

	e := newEcho()
	h := NewCatalogHandler(services.NewCatalogService(newCatalogStore(), registry))
	e.POST("/product/create", h.CreateProduct)

	rec := serve(e, http.MethodPost, "/product/create", `{"name":"Hat"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e, http.MethodPost, "/product/create", `{"name":"Hat","price":"5","action":"grant-role"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e, http.MethodPost, "/product/create", `{"name":"Hat","price":"5"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	product := decodeBody(t, rec)["product"].(map[string]any)
	assert.Equal(t, "Hat", product["name"])
}

func TestAdminRoutesUsePredicate(t *testing.T) {
	registry, err := actions.NewRegistry(map[string]actions.Entry{
		"grant-role": actions.HandlerFunc(func(ctx context.Context, metadata map[string]any, product *models.Product, params map[string]any) error {
			return nil
		}),
	})
	require.NoError(t, err)

	deny := func(c echo.Context) (bool, error) { return false, nil }

	e := newEcho()
	h := NewAdminHandler(registry, deny)
	e.GET("/actions/list", h.ListActions, middleware.AdminOnly(deny))
	e.GET("/admin/check", h.Check)

	rec := serve(e, http.MethodGet, "/actions/list", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeBody(t, rec)["error"])

	rec = serve(e, http.MethodGet, "/admin/check", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["isAdmin"])

	open := newEcho()
	oh := NewAdminHandler(registry, nil)
	open.GET("/actions/list", oh.ListActions, middleware.AdminOnly(nil))
	open.GET("/admin/check", oh.Check)

	rec = serve(open, http.MethodGet, "/actions/list", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody(t, rec)["actions"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "grant-role", list[0].(map[string]any)["key"])

	rec = serve(open, http.MethodGet, "/admin/check", "", nil)
	assert.Equal(t, false, decodeBody(t, rec)["isAdmin"])
}

func TestCheckoutCreate(t *testing.T) {
	pp := &fakePayPal{}

	t.Run("paypal approval", func(t *testing.T) {
		e := newEcho()
		enrich := func(c echo.Context) (map[string]any, error) {
			return map[string]any{"user_id": "7"}, nil
		}
		h := NewCheckoutHandler(services.NewCheckoutService(newCatalogStore(), pp, nil, "usd"), enrich)
		e.POST("/payment/create", h.Create)

		rec := serve(e, http.MethodPost, "/payment/create", `{"product_id":1,"payment_method":"paypal"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, "https://paypal.test/approve/ORDER-1", body["approvalUrl"])
		assert.Equal(t, "ORDER-1", body["orderId"])
		assert.NotContains(t, body, "hostedUrl")

		require.Len(t, pp.orders, 1)
		assert.Equal(t, "7", pp.orders[0].Metadata["user_id"])
		assert.Equal(t, uint(1), pp.orders[0].Metadata["product_id"])
	})

	t.Run("string product id is accepted", func(t *testing.T) {
		e := newEcho()
		h := NewCheckoutHandler(services.NewCheckoutService(newCatalogStore(), pp, nil, "usd"), nil)
		e.POST("/payment/create", h.Create)

		rec := serve(e, http.MethodPost, "/payment/create", `{"product_id":"1","payment_method":"paypal"}`, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unauthorized enrichment stops before the provider", func(t *testing.T) {
		calls := len(pp.orders)
		e := newEcho()
		h := NewCheckoutHandler(services.NewCheckoutService(newCatalogStore(), pp, nil, "usd"), ClaimsEnricher(true))
		e.POST("/payment/create", h.Create)

		rec := serve(e, http.MethodPost, "/payment/create", `{"product_id":1,"payment_method":"paypal"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthorized", decodeBody(t, rec)["error"])
		assert.Len(t, pp.orders, calls)
	})

	t.Run("unconfigured method is 400", func(t *testing.T) {
		e := newEcho()
		h := NewCheckoutHandler(services.NewCheckoutService(newCatalogStore(), pp, nil, "usd"), nil)
		e.POST("/payment/create", h.Create)

		rec := serve(e, http.MethodPost, "/payment/create", `{"product_id":1,"payment_method":"crypto"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("metadata too large for the provider is 400", func(t *testing.T) {
		tooLarge := &fakePayPal{createErr: fmt.Errorf("%w: paypal custom_id holds 127 bytes, got 300", payments.ErrMetadataTooLarge)}
		e := newEcho()
		h := NewCheckoutHandler(services.NewCheckoutService(newCatalogStore(), tooLarge, nil, "usd"), nil)
		e.POST("/payment/create", h.Create)

		rec := serve(e, http.MethodPost, "/payment/create", `{"product_id":1,"payment_method":"paypal"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing product id is 400", func(t *testing.T) {
		e := newEcho()
		h := NewCheckoutHandler(services.NewCheckoutService(newCatalogStore(), pp, nil, "usd"), nil)
		e.POST("/payment/create", h.Create)

		rec := serve(e, http.MethodPost, "/payment/create", `{"payment_method":"paypal"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestClaimsEnricher(t *testing.T) {
	e := echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	extra, err := ClaimsEnricher(false)(c)
	require.NoError(t, err)
	assert.Nil(t, extra)

	c.Set(string(middleware.UserIDKey), uint(7))
	c.Set(string(middleware.EmailKey), "buyer@example.com")
	extra, err = ClaimsEnricher(true)(c)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"user_id": "7", "customer_email": "buyer@example.com"}, extra)
}

func TestPayPalWebhook(t *testing.T) {
	t.Run("approved order is captured", func(t *testing.T) {
		pp := &fakePayPal{}
		dispatcher := &recordingDispatcher{}
		e := newEcho()
		e.POST("/webhooks/paypal", NewWebhookHandler(pp, "", dispatcher).PayPal)

		rec := serve(e, http.MethodPost, "/webhooks/paypal",
			`{"id":"WH-1","event_type":"CHECKOUT.ORDER.APPROVED","resource":{"id":"ORDER-1","status":"APPROVED"}}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"ORDER-1"}, pp.captured)
		assert.Empty(t, dispatcher.outcomes)
	})

	t.Run("completed capture is dispatched", func(t *testing.T) {
		dispatcher := &recordingDispatcher{}
		e := newEcho()
		e.POST("/webhooks/paypal", NewWebhookHandler(&fakePayPal{}, "", dispatcher).PayPal)

		rec := serve(e, http.MethodPost, "/webhooks/paypal", `{
			"id": "WH-2",
			"event_type": "PAYMENT.CAPTURE.COMPLETED",
			"resource": {
				"id": "CAPTURE-1",
				"status": "COMPLETED",
				"custom_id": "{\"product_id\":1}",
				"amount": {"currency_code": "USD", "value": "19.90"}
			}
		}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decodeBody(t, rec)["received"])

		require.Len(t, dispatcher.outcomes, 1)
		assert.Equal(t, payments.OutcomeCompleted, dispatcher.outcomes[0])
		n := dispatcher.notifications[0]
		assert.Equal(t, "WH-2", n.DeliveryID)
		assert.Equal(t, "CAPTURE-1", n.PaymentID)
		id, ok := n.ProductID()
		require.True(t, ok)
		assert.Equal(t, uint(1), id)
	})

	t.Run("rejected signature", func(t *testing.T) {
		dispatcher := &recordingDispatcher{}
		e := newEcho()
		e.POST("/webhooks/paypal", NewWebhookHandler(&fakePayPal{verify: payments.ErrInvalidSignature}, "", dispatcher).PayPal)

		rec := serve(e, http.MethodPost, "/webhooks/paypal", `{"id":"WH-3","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{}}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, dispatcher.outcomes)
	})

	t.Run("dispatch failure is a 500", func(t *testing.T) {
		dispatcher := &recordingDispatcher{err: errors.New("store unavailable")}
		e := newEcho()
		e.POST("/webhooks/paypal", NewWebhookHandler(&fakePayPal{}, "", dispatcher).PayPal)

		rec := serve(e, http.MethodPost, "/webhooks/paypal", `{"id":"WH-4","event_type":"CHECKOUT.ORDER.VOIDED","resource":{"id":"ORDER-2"}}`, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "store unavailable", decodeBody(t, rec)["error"])
	})

	t.Run("not configured", func(t *testing.T) {
		e := newEcho()
		e.POST("/webhooks/paypal", NewWebhookHandler(nil, "", &recordingDispatcher{}).PayPal)

		rec := serve(e, http.MethodPost, "/webhooks/paypal", `{}`, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("refused without a webhook id", func(t *testing.T) {
		dispatcher := &recordingDispatcher{}
		client := paypal.NewClient(paypal.Config{ClientID: "client", ClientSecret: "secret", BaseURL: "http://127.0.0.1:1"})
		e := newEcho()
		e.POST("/webhooks/paypal", NewWebhookHandler(client, "", dispatcher).PayPal)

		rec := serve(e, http.MethodPost, "/webhooks/paypal", `{
			"id": "WH-5",
			"event_type": "PAYMENT.CAPTURE.COMPLETED",
			"resource": {"id": "CAPTURE-9", "custom_id": "{\"product_id\":1}", "amount": {"currency_code": "USD", "value": "1.00"}}
		}`, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, dispatcher.outcomes)
	})
}

func TestCoinbaseWebhook(t *testing.T) {
	const secret = "shhh"
	sign := func(body string) http.Header {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(body))
		return http.Header{coinbase.SignatureHeader: []string{hex.EncodeToString(mac.Sum(nil))}}
	}

	confirmed := `{"id":"1","event":{"id":"EVT-1","type":"charge:confirmed","data":{"id":"c1","code":"CODE1","metadata":{"product_id":"1"},"pricing":{"local":{"amount":"19.90","currency":"USD"}}}}}`

	t.Run("signed confirmed charge is dispatched", func(t *testing.T) {
		dispatcher := &recordingDispatcher{}
		e := newEcho()
		e.POST("/webhooks/coinbase", NewWebhookHandler(nil, secret, dispatcher).Coinbase)

		rec := serve(e, http.MethodPost, "/webhooks/coinbase", confirmed, sign(confirmed))
		require.Equal(t, http.StatusOK, rec.Code)

		require.Len(t, dispatcher.outcomes, 1)
		assert.Equal(t, payments.OutcomeCompleted, dispatcher.outcomes[0])
		n := dispatcher.notifications[0]
		assert.Equal(t, "EVT-1", n.DeliveryID)
		assert.Equal(t, "CODE1", n.ChargeID)
		assert.True(t, decimal.RequireFromString("19.90").Equal(n.ResolveAmount()))
	})

	t.Run("bad signature", func(t *testing.T) {
		dispatcher := &recordingDispatcher{}
		e := newEcho()
		e.POST("/webhooks/coinbase", NewWebhookHandler(nil, secret, dispatcher).Coinbase)

		rec := serve(e, http.MethodPost, "/webhooks/coinbase", confirmed, http.Header{coinbase.SignatureHeader: []string{"00ff"}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, dispatcher.outcomes)
	})

	t.Run("ignored event type", func(t *testing.T) {
		dispatcher := &recordingDispatcher{}
		e := newEcho()
		e.POST("/webhooks/coinbase", NewWebhookHandler(nil, secret, dispatcher).Coinbase)

		body := `{"event":{"id":"EVT-2","type":"charge:pending","data":{}}}`
		rec := serve(e, http.MethodPost, "/webhooks/coinbase", body, sign(body))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, dispatcher.outcomes)
	})

	t.Run("missing delivery id gets one", func(t *testing.T) {
		dispatcher := &recordingDispatcher{}
		e := newEcho()
		e.POST("/webhooks/coinbase", NewWebhookHandler(nil, secret, dispatcher).Coinbase)

		body := `{"event":{"type":"charge:failed","data":{"code":"CODE2"}}}`
		rec := serve(e, http.MethodPost, "/webhooks/coinbase", body, sign(body))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, dispatcher.notifications, 1)
		assert.NotEmpty(t, dispatcher.notifications[0].DeliveryID)
	})

	t.Run("malformed body", func(t *testing.T) {
		e := newEcho()
		e.POST("/webhooks/coinbase", NewWebhookHandler(nil, secret, &recordingDispatcher{}).Coinbase)

		rec := serve(e, http.MethodPost, "/webhooks/coinbase", `{`, sign(`{`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("refused without a secret", func(t *testing.T) {
		dispatcher := &recordingDispatcher{}
		e := newEcho()
		e.POST("/webhooks/coinbase", NewWebhookHandler(nil, "", dispatcher).Coinbase)

		forged := `{"event":{"id":"EVT-3","type":"charge:confirmed","data":{"code":"FORGED","metadata":{"product_id":1,"user_id":"someone"}}}}`
		rec := serve(e, http.MethodPost, "/webhooks/coinbase", forged, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, dispatcher.outcomes)
	})
}

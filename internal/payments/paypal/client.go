// Package paypal talks to the PayPal Orders v2 API and decodes its webhooks.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// customIDLimit is PayPal's maximum length for purchase_unit.custom_id.
const customIDLimit = 127

type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	WebhookID    string
	ReturnURL    string
	CancelURL    string
	Currency     string
}

type Client struct {
	cfg  Config
	http *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Currency == "" {
		cfg.Currency = "EUR"
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	Description string `json:"description,omitempty"`
	CustomID    string `json:"custom_id,omitempty"`
	Amount      amount `json:"amount"`
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []link `json:"links"`
}

func (c *Client) CreateOrder(ctx context.Context, p payments.Purchase) (*payments.ApprovalOrder, error) {
	customID, err := encodeCustomID(p.Metadata)
	if err != nil {
		return nil, err
	}

	currency := p.Currency
	if currency == "" {
		currency = c.cfg.Currency
	}

	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []purchaseUnit{{
			Description: p.Title,
			CustomID:    customID,
			Amount:      amount{CurrencyCode: currency, Value: p.Price.StringFixed(2)},
		}},
	}
	if c.cfg.ReturnURL != "" || c.cfg.CancelURL != "" {
		body["application_context"] = map[string]string{
			"return_url": c.cfg.ReturnURL,
			"cancel_url": c.cfg.CancelURL,
		}
	}

	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", body, &resp); err != nil {
		return nil, err
	}

	for _, l := range resp.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			return &payments.ApprovalOrder{ApprovalURL: l.Href, OrderID: resp.ID}, nil
		}
	}
	return nil, fmt.Errorf("%w: paypal order %s has no approval link", payments.ErrProvider, resp.ID)
}

// CaptureOrder captures an approved order. PayPal then sends a
// PAYMENT.CAPTURE.* webhook with the outcome.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) error {
	var resp orderResponse
	return c.do(ctx, http.MethodPost, "/v2/checkout/orders/"+orderID+"/capture", struct{}{}, &resp)
}

// VerifyWebhook checks a webhook delivery with PayPal. Without a configured
// webhook id every delivery is refused.
func (c *Client) VerifyWebhook(ctx context.Context, header http.Header, body []byte) error {
	if c.cfg.WebhookID == "" {
		return payments.ErrWebhookNotConfigured
	}

	req := map[string]any{
		"auth_algo":         header.Get("Paypal-Auth-Algo"),
		"cert_url":          header.Get("Paypal-Cert-Url"),
		"transmission_id":   header.Get("Paypal-Transmission-Id"),
		"transmission_sig":  header.Get("Paypal-Transmission-Sig"),
		"transmission_time": header.Get("Paypal-Transmission-Time"),
		"webhook_id":        c.cfg.WebhookID,
		"webhook_event":     json.RawMessage(body),
	}

	var resp struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", req, &resp); err != nil {
		return err
	}
	if resp.VerificationStatus != "SUCCESS" {
		return payments.ErrInvalidSignature
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", payments.ErrProvider, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", payments.ErrProvider, err)
	}
	if res.StatusCode >= 300 {
		return fmt.Errorf("%w: paypal %s %s returned %d: %s", payments.ErrProvider, method, path, res.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiresAt) {
		return c.token, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second

	tok, err := backoff.Retry(ctx, func() (*tokenResponse, error) {
		return c.fetchToken(ctx)
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(3),
	)
	if err != nil {
		return "", fmt.Errorf("%w: paypal token: %v", payments.ErrProvider, err)
	}

	c.token = tok.AccessToken
	// Refresh a minute before PayPal's expiry.
	c.expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func (c *Client) fetchToken(ctx context.Context) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return nil, backoff.Permanent(fmt.Errorf("paypal rejected client credentials (%d)", res.StatusCode))
	}
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("paypal token endpoint returned %d", res.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(res.Body).Decode(&tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, backoff.Permanent(fmt.Errorf("paypal token response without access_token"))
	}
	return &tok, nil
}

// customIDKeys survive when the full metadata does not fit in custom_id.
var customIDKeys = []string{
	payments.MetadataProductID,
	payments.MetadataUserID,
	payments.MetadataLegacyUserID,
}

// encodeCustomID packs metadata into custom_id. Oversized metadata is cut
// down to the keys orders are recorded from; if even those do not fit the
// purchase is rejected.
func encodeCustomID(metadata map[string]any) (string, error) {
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	if len(encoded) <= customIDLimit {
		return string(encoded), nil
	}

	trimmed := make(map[string]any, len(customIDKeys))
	for _, key := range customIDKeys {
		if v, ok := metadata[key]; ok {
			trimmed[key] = v
		}
	}
	if encoded, err = json.Marshal(trimmed); err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	if len(encoded) > customIDLimit {
		return "", fmt.Errorf("%w: paypal custom_id holds %d bytes, got %d", payments.ErrMetadataTooLarge, customIDLimit, len(encoded))
	}
	return string(encoded), nil
}

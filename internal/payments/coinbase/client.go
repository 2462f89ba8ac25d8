// Package coinbase creates Coinbase Commerce charges and decodes their
// signed webhooks.
package coinbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultBaseURL = "https://api.commerce.coinbase.com"
	apiVersion     = "2018-03-22"
)

type Config struct {
	APIKey   string
	BaseURL  string
	Currency string
}

type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
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

type chargeRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	PricingType string              `json:"pricing_type"`
	LocalPrice  payments.LocalPrice `json:"local_price"`
	Metadata    map[string]any      `json:"metadata,omitempty"`
}

type chargeResponse struct {
	Data struct {
		ID        string `json:"id"`
		Code      string `json:"code"`
		HostedURL string `json:"hosted_url"`
	} `json:"data"`
}

func (c *Client) CreateCharge(ctx context.Context, p payments.Purchase) (*payments.HostedCharge, error) {
	currency := p.Currency
	if currency == "" {
		currency = c.cfg.Currency
	}

	body, err := json.Marshal(chargeRequest{
		Name:        p.Title,
		Description: p.Title,
		PricingType: "fixed_price",
		LocalPrice:  payments.LocalPrice{Amount: p.Price.StringFixed(2), Currency: currency},
		Metadata:    p.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("encode charge: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CC-Api-Key", c.cfg.APIKey)
	req.Header.Set("X-CC-Version", apiVersion)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payments.ErrProvider, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payments.ErrProvider, err)
	}
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: coinbase charge returned %d: %s", payments.ErrProvider, res.StatusCode, strings.TrimSpace(string(data)))
	}

	var out chargeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode charge: %v", payments.ErrProvider, err)
	}
	if out.Data.HostedURL == "" {
		return nil, fmt.Errorf("%w: coinbase charge %s has no hosted_url", payments.ErrProvider, out.Data.Code)
	}
	return &payments.HostedCharge{HostedURL: out.Data.HostedURL, ChargeCode: out.Data.Code}, nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port        string
	Environment string

	DatabaseURL string

	// RedisURL enables asynchronous webhook processing when set.
	RedisURL string

	JWTSecret string

	BasePath             string
	CheckoutRequiresAuth bool
	Currency             string

	PayPal   PayPalConfig
	Coinbase CoinbaseConfig

	KafkaBrokers []string
	KafkaTopic   string

	OTelServiceName string
	OTelEndpoint    string
}

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	WebhookID    string
	ReturnURL    string
	CancelURL    string
}

func (p PayPalConfig) Enabled() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

type CoinbaseConfig struct {
	APIKey        string
	WebhookSecret string
	BaseURL       string
}

func (c CoinbaseConfig) Enabled() bool {
	return c.APIKey != ""
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		BasePath:        getEnv("SHOP_BASE_PATH", "/shop"),
		Currency:        strings.ToUpper(getEnv("PAYMENT_CURRENCY", "EUR")),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "shop.orders"),
		OTelServiceName: getEnv("OTEL_SERVICE_NAME", "dsync-shop-api"),
		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		PayPal: PayPalConfig{
			ClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
			ClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),
			BaseURL:      getEnv("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
			WebhookID:    getEnv("PAYPAL_WEBHOOK_ID", ""),
			ReturnURL:    getEnv("PAYPAL_RETURN_URL", ""),
			CancelURL:    getEnv("PAYPAL_CANCEL_URL", ""),
		},
		Coinbase: CoinbaseConfig{
			APIKey:        getEnv("COINBASE_API_KEY", ""),
			WebhookSecret: getEnv("COINBASE_WEBHOOK_SECRET", ""),
			BaseURL:       getEnv("COINBASE_BASE_URL", "https://api.commerce.coinbase.com"),
		},
	}

	requiresAuth, err := strconv.ParseBool(getEnv("CHECKOUT_REQUIRES_AUTH", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid CHECKOUT_REQUIRES_AUTH: %w", err)
	}
	cfg.CheckoutRequiresAuth = requiresAuth

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if !strings.HasPrefix(c.BasePath, "/") {
		return fmt.Errorf("SHOP_BASE_PATH must start with '/'")
	}
	if c.PayPal.WebhookID != "" && !c.PayPal.Enabled() {
		return fmt.Errorf("PAYPAL_WEBHOOK_ID requires PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET")
	}
	if c.PayPal.Enabled() && c.PayPal.WebhookID == "" && !c.IsDevelopment() {
		return fmt.Errorf("PAYPAL_WEBHOOK_ID is required when PayPal is enabled")
	}
	if c.Coinbase.Enabled() && c.Coinbase.WebhookSecret == "" {
		return fmt.Errorf("COINBASE_WEBHOOK_SECRET is required when COINBASE_API_KEY is set")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) AsyncWebhooks() bool {
	return c.RedisURL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

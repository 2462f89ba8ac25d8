package shop

import (
	"github.com/NETWORK-Z-Dev/dSyncShop/config"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/actions"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/handlers"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/middleware"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments/coinbase"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments/paypal"

	"gorm.io/gorm"
)

// FromConfig derives Options for the bundled binaries. Providers without
// credentials stay disabled. The returned close func releases the Kafka
// writer behind the publish-order action, if one was created.
func FromConfig(cfg *config.Config, db *gorm.DB) (Options, func() error) {
	opts := Options{
		DB:                    db,
		Actions:               map[string]actions.Entry{},
		CoinbaseWebhookSecret: cfg.Coinbase.WebhookSecret,
		Currency:              cfg.Currency,
		IsAdmin:               middleware.ClaimsAdmin,
		Enrich:                handlers.ClaimsEnricher(cfg.CheckoutRequiresAuth),
	}

	if cfg.PayPal.Enabled() {
		opts.PayPal = paypal.NewClient(paypal.Config{
			ClientID:     cfg.PayPal.ClientID,
			ClientSecret: cfg.PayPal.ClientSecret,
			BaseURL:      cfg.PayPal.BaseURL,
			WebhookID:    cfg.PayPal.WebhookID,
			ReturnURL:    cfg.PayPal.ReturnURL,
			CancelURL:    cfg.PayPal.CancelURL,
			Currency:     cfg.Currency,
		})
	}

	if cfg.Coinbase.Enabled() {
		opts.Coinbase = coinbase.NewClient(coinbase.Config{
			APIKey:   cfg.Coinbase.APIKey,
			BaseURL:  cfg.Coinbase.BaseURL,
			Currency: cfg.Currency,
		})
	}

	closeFn := func() error { return nil }
	if len(cfg.KafkaBrokers) > 0 {
		writer := actions.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		opts.Actions[actions.PublishOrderKey] = actions.PublishOrder(writer)
		closeFn = writer.Close
	}

	return opts, closeFn
}

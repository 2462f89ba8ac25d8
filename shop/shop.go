// Package shop wires the catalog, checkout and order services and mounts
// their routes on a host echo group.
package shop

import (
	"errors"
	"fmt"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/actions"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/database"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/handlers"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/middleware"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments/coinbase"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments/paypal"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/services"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/store"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type (
	ActionEntry       = actions.Entry
	ActionDefinition  = actions.Definition
	ActionHandlerFunc = actions.HandlerFunc
	ActionParam       = actions.Param
	Hub               = payments.Hub
	Notification      = payments.Notification
	Dispatcher        = payments.Dispatcher
	AdminPredicate    = middleware.AdminPredicate
	Enricher          = handlers.Enricher
)

type Options struct {
	DB *gorm.DB

	// Hub receives normalized payment outcomes. Subscribers registered on
	// it before New run ahead of order materialization. When Dispatcher
	// queues deliveries, outcomes are published on the hub of the process
	// draining the queue, not on this one; register host subscribers with
	// Observe so that process gets them too.
	Hub *payments.Hub

	// Observe is called with the hub before order materialization is
	// attached. Processes built from the same Options share subscribers.
	Observe func(hub *payments.Hub)

	Actions map[string]actions.Entry

	PayPal                *paypal.Client
	Coinbase              *coinbase.Client
	CoinbaseWebhookSecret string
	Currency              string

	IsAdmin AdminPredicate
	Enrich  Enricher

	// Dispatcher replaces Hub as the target of webhook deliveries, e.g. a
	// queue drained by a worker built with the same Observe.
	Dispatcher Dispatcher

	Migrate bool
}

type Shop struct {
	Hub      *payments.Hub
	Registry *actions.Registry
	Catalog  *services.CatalogService
	Checkout *services.CheckoutService
	Orders   *services.OrderService

	dispatcher payments.Dispatcher
	opts       Options
}

// New builds the shop and attaches order materialization to the hub.
func New(opts Options) (*Shop, error) {
	if opts.DB == nil {
		return nil, errors.New("shop: database is required")
	}

	if opts.Migrate {
		if err := database.Migrate(opts.DB); err != nil {
			return nil, fmt.Errorf("migrate shop tables: %w", err)
		}
	}

	registry, err := actions.NewRegistry(opts.Actions)
	if err != nil {
		return nil, err
	}

	hub := opts.Hub
	if hub == nil {
		hub = payments.NewHub()
	}

	if opts.Observe != nil {
		opts.Observe(hub)
	}

	st := store.New(opts.DB)

	var orderCreator payments.OrderCreator
	if opts.PayPal != nil {
		orderCreator = opts.PayPal
	}
	var chargeCreator payments.ChargeCreator
	if opts.Coinbase != nil {
		chargeCreator = opts.Coinbase
	}

	orders := services.NewOrderService(st, registry)
	orders.Attach(hub)

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = hub
	}

	return &Shop{
		Hub:        hub,
		Registry:   registry,
		Catalog:    services.NewCatalogService(st, registry),
		Checkout:   services.NewCheckoutService(st, orderCreator, chargeCreator, opts.Currency),
		Orders:     orders,
		dispatcher: dispatcher,
		opts:       opts,
	}, nil
}

// Mount registers the shop routes on g. Admin routes are guarded by
// Options.IsAdmin and are open when it is nil.
func (s *Shop) Mount(g *echo.Group) {
	catalog := handlers.NewCatalogHandler(s.Catalog)
	checkout := handlers.NewCheckoutHandler(s.Checkout, s.opts.Enrich)
	admin := handlers.NewAdminHandler(s.Registry, s.opts.IsAdmin)

	var pp handlers.PayPalWebhooks
	if s.opts.PayPal != nil {
		pp = s.opts.PayPal
	}
	webhooks := handlers.NewWebhookHandler(pp, s.opts.CoinbaseWebhookSecret, s.dispatcher)

	adminOnly := middleware.AdminOnly(s.opts.IsAdmin)

	g.GET("/products/list", catalog.ListProducts)
	g.GET("/products/list/:category", catalog.ListProducts)
	g.GET("/product/:id", catalog.GetProduct)
	g.POST("/product/create", catalog.CreateProduct, adminOnly)
	g.POST("/product/update/:id", catalog.UpdateProduct, adminOnly)
	g.DELETE("/product/delete/:id", catalog.DeleteProduct, adminOnly)

	g.GET("/categories/list", catalog.ListCategories)
	g.POST("/category/create", catalog.CreateCategory, adminOnly)
	g.POST("/category/update/:id", catalog.UpdateCategory, adminOnly)
	g.DELETE("/category/delete/:id", catalog.DeleteCategory, adminOnly)

	g.POST("/payment/create", checkout.Create)

	g.GET("/actions/list", admin.ListActions, adminOnly)
	g.GET("/admin/check", admin.Check)
	g.GET("/orders/list", catalog.ListOrders, adminOnly)

	g.POST("/webhooks/paypal", webhooks.PayPal)
	g.POST("/webhooks/coinbase", webhooks.Coinbase)
}

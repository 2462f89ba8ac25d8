package services

import (
	"context"
	"fmt"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/actions"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/logging"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/models"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var (
	ordersMaterializedCounter metric.Int64Counter
	ordersDroppedCounter      metric.Int64Counter
	actionsExecutedCounter    metric.Int64Counter
)

// OrderService turns payment notifications into recorded orders and runs
// the purchased product's action once a payment completes.
type OrderService struct {
	store    OrderStore
	registry *actions.Registry
}

func NewOrderService(store OrderStore, registry *actions.Registry) *OrderService {
	var err error
	ordersMaterializedCounter, err = meter.Int64Counter(
		"orders.materialized",
		metric.WithDescription("Total number of orders recorded from payment notifications"),
	)
	if err != nil {
		logging.Logger().Error().Err(err).Msg("failed to create orders materialized counter")
	}

	ordersDroppedCounter, err = meter.Int64Counter(
		"orders.dropped",
		metric.WithDescription("Total number of payment notifications dropped for missing product_id"),
	)
	if err != nil {
		logging.Logger().Error().Err(err).Msg("failed to create orders dropped counter")
	}

	actionsExecutedCounter, err = meter.Int64Counter(
		"product_actions.executed",
		metric.WithDescription("Total number of product actions executed"),
	)
	if err != nil {
		logging.Logger().Error().Err(err).Msg("failed to create product actions counter")
	}

	return &OrderService{store: store, registry: registry}
}

// Attach subscribes the service to every payment outcome on hub. Hosts that
// want their own observers to run first subscribe them before calling
// Attach.
func (s *OrderService) Attach(hub *payments.Hub) {
	materialize := func(ctx context.Context, n payments.Notification) error {
		_, err := s.Materialize(ctx, n)
		return err
	}
	hub.OnCompleted(materialize)
	hub.OnFailed(materialize)
	hub.OnCancelled(materialize)
}

// Materialize records one order and one order line for n. A notification
// without a product id in its metadata is logged and dropped: no rows are
// written and (nil, nil) is returned. Product action failures are logged and
// never affect the recorded order.
func (s *OrderService) Materialize(ctx context.Context, n payments.Notification) (*models.Order, error) {
	ctx, span := tracer.Start(ctx, "order.materialize")
	defer span.End()

	amount := n.ResolveAmount()
	status := payments.ResolveStatus(n.Status)

	span.SetAttributes(
		attribute.String("payment.provider", n.Provider),
		attribute.String("payment.status", n.Status),
		attribute.String("order.status", string(status)),
	)

	productID, ok := n.ProductID()
	if !ok {
		logging.Error(ctx).
			Str("provider", n.Provider).
			Str("status", n.Status).
			Interface("metadata", n.Metadata).
			Msg("no product_id in payment metadata, event dropped")
		if ordersDroppedCounter != nil {
			ordersDroppedCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("provider", n.Provider),
			))
		}
		span.SetAttributes(attribute.Bool("order.dropped", true))
		return nil, nil
	}

	order := &models.Order{
		CustomerEmail: n.MetadataString(payments.MetadataCustomerEmail),
		CustomerName:  n.MetadataString(payments.MetadataCustomerName),
		CustomID:      customID(n),
		TotalAmount:   amount,
		Status:        status,
		PaymentMethod: nonEmpty(n.Provider),
		PaymentID:     n.CorrelationID(),
	}
	item := &models.OrderItem{
		ProductID: productID,
		Quantity:  1,
		Price:     amount,
	}

	if err := s.store.RecordOrder(ctx, order, item); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("record order: %w", err)
	}
	order.Items = []models.OrderItem{*item}

	if ordersMaterializedCounter != nil {
		ordersMaterializedCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", string(status)),
			attribute.String("provider", n.Provider),
		))
	}

	span.SetAttributes(
		attribute.Int64("order.id", int64(order.ID)),
		attribute.Int64("product.id", int64(productID)),
	)

	logging.Info(ctx).
		Uint("order_id", order.ID).
		Uint("product_id", productID).
		Str("status", string(status)).
		Str("amount", amount.String()).
		Msg("order recorded")

	if status == models.OrderStatusCompleted {
		s.runProductAction(ctx, productID, n.Metadata)
	}

	return order, nil
}

func (s *OrderService) runProductAction(ctx context.Context, productID uint, metadata map[string]any) {
	ctx, span := tracer.Start(ctx, "order.product_action")
	defer span.End()

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		span.RecordError(err)
		logging.Error(ctx).Err(err).Uint("product_id", productID).Msg("failed to load product for action")
		return
	}
	if product.Action == nil || *product.Action == "" {
		return
	}

	key := *product.Action
	span.SetAttributes(attribute.String("action.key", key))

	def, ok := s.registry.Resolve(key)
	if !ok {
		logging.Warn(ctx).
			Str("action", key).
			Uint("product_id", productID).
			Msg("product action not registered")
		return
	}

	if metadata == nil {
		metadata = map[string]any{}
	}

	err = invokeAction(ctx, def, metadata, product)
	if actionsExecutedCounter != nil {
		actionsExecutedCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("action", key),
			attribute.Bool("success", err == nil),
		))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logging.Error(ctx).
			Err(err).
			Str("action", key).
			Uint("product_id", productID).
			Msg("product action failed")
		return
	}

	logging.Info(ctx).
		Str("action", key).
		Uint("product_id", productID).
		Msg("product action executed")
}

func invokeAction(ctx context.Context, def actions.Definition, metadata map[string]any, product *models.Product) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action %s panicked: %v", def.Key, r)
		}
	}()
	return def.Handler(ctx, metadata, product, product.DecodeActionParams())
}

func customID(n payments.Notification) *string {
	if id := n.MetadataString(payments.MetadataUserID); id != nil {
		return id
	}
	return n.MetadataString(payments.MetadataLegacyUserID)
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

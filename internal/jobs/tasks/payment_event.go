package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/logging"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
)

const TypePaymentEvent = "payment:event"

var (
	tracer        = otel.Tracer("dsync-shop-worker")
	meter         = otel.Meter("dsync-shop-worker")
	jobsCompleted metric.Int64Counter
	jobsFailed    metric.Int64Counter
	jobsDuration  metric.Float64Histogram
)

func init() {
	var err error

	jobsCompleted, err = meter.Int64Counter(
		"jobs.completed",
		metric.WithDescription("Total number of jobs completed successfully"),
	)
	if err != nil {
		logging.Logger().Error().Err(err).Msg("failed to create jobs completed counter")
	}

	jobsFailed, err = meter.Int64Counter(
		"jobs.failed",
		metric.WithDescription("Total number of jobs failed"),
	)
	if err != nil {
		logging.Logger().Error().Err(err).Msg("failed to create jobs failed counter")
	}

	jobsDuration, err = meter.Float64Histogram(
		"jobs.duration_ms",
		metric.WithDescription("Job processing duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		logging.Logger().Error().Err(err).Msg("failed to create jobs duration histogram")
	}
}

// PaymentEventPayload is a payment outcome queued for the worker.
type PaymentEventPayload struct {
	Outcome      payments.Outcome      `json:"outcome"`
	Notification payments.Notification `json:"notification"`
	TraceContext map[string]string     `json:"trace_context"`
}

// PaymentEventHandler publishes queued payment outcomes on a dispatcher,
// normally the worker's payments.Hub.
type PaymentEventHandler struct {
	dispatcher payments.Dispatcher
}

func NewPaymentEventHandler(dispatcher payments.Dispatcher) *PaymentEventHandler {
	return &PaymentEventHandler{dispatcher: dispatcher}
}

func (h *PaymentEventHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	start := time.Now()

	var payload PaymentEventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		recordJobMetrics(ctx, TypePaymentEvent, false, time.Since(start))
		return fmt.Errorf("decode payment event: %v: %w", err, asynq.SkipRetry)
	}

	parentCtx := otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(payload.TraceContext))

	ctx, span := tracer.Start(parentCtx, "job.payment_event")
	defer span.End()

	span.SetAttributes(
		attribute.String("job.type", TypePaymentEvent),
		attribute.String("payment.outcome", string(payload.Outcome)),
		attribute.String("payment.provider", payload.Notification.Provider),
		attribute.String("payment.delivery_id", payload.Notification.DeliveryID),
	)

	logging.Info(ctx).
		Str("outcome", string(payload.Outcome)).
		Str("provider", payload.Notification.Provider).
		Str("delivery_id", payload.Notification.DeliveryID).
		Msg("processing payment event")

	if err := h.dispatcher.Publish(ctx, payload.Outcome, payload.Notification); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordJobMetrics(ctx, TypePaymentEvent, false, time.Since(start))
		return err
	}

	span.SetStatus(codes.Ok, "payment event processed")
	recordJobMetrics(ctx, TypePaymentEvent, true, time.Since(start))

	return nil
}

func recordJobMetrics(ctx context.Context, jobType string, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("job.type", jobType))

	if success {
		if jobsCompleted != nil {
			jobsCompleted.Add(ctx, 1, attrs)
		}
	} else if jobsFailed != nil {
		jobsFailed.Add(ctx, 1, attrs)
	}

	if jobsDuration != nil {
		jobsDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

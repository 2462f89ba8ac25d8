package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/jobs/tasks"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/logging"
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/payments"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
)

const DefaultQueue = "default"

var (
	tracer       = otel.Tracer("dsync-shop")
	meter        = otel.Meter("dsync-shop")
	jobsEnqueued metric.Int64Counter
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client queues payment outcomes for the worker. It satisfies
// payments.Dispatcher so webhook handlers can use it in place of a Hub.
type Client struct {
	client enqueuer
}

var _ payments.Dispatcher = (*Client)(nil)

func NewClient(redisAddr string) *Client {
	return newClient(asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}))
}

func newClient(e enqueuer) *Client {
	var err error
	jobsEnqueued, err = meter.Int64Counter(
		"jobs.enqueued",
		metric.WithDescription("Total number of jobs enqueued"),
	)
	if err != nil {
		logging.Logger().Error().Err(err).Msg("failed to create jobs enqueued counter")
	}

	return &Client{client: e}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Publish enqueues the outcome. Tasks are never retried: a failed payment
// event is only processed again when the provider redelivers it.
func (c *Client) Publish(ctx context.Context, outcome payments.Outcome, n payments.Notification) error {
	ctx, span := tracer.Start(ctx, "job.enqueue.payment_event")
	defer span.End()

	if !outcome.Valid() {
		return fmt.Errorf("unknown payment outcome %q", outcome)
	}

	span.SetAttributes(
		attribute.String("job.type", tasks.TypePaymentEvent),
		attribute.String("payment.outcome", string(outcome)),
		attribute.String("payment.provider", n.Provider),
	)

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	payloadBytes, err := json.Marshal(tasks.PaymentEventPayload{
		Outcome:      outcome,
		Notification: n,
		TraceContext: carrier,
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(tasks.TypePaymentEvent, payloadBytes)
	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(DefaultQueue),
		asynq.MaxRetry(0),
		asynq.TaskID(uuid.NewString()),
	)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if jobsEnqueued != nil {
		jobsEnqueued.Add(ctx, 1, metric.WithAttributes(
			attribute.String("job.type", tasks.TypePaymentEvent),
		))
	}

	span.SetAttributes(
		attribute.String("job.id", info.ID),
		attribute.String("job.queue", info.Queue),
	)

	logging.Info(ctx).
		Str("job_id", info.ID).
		Str("job_type", tasks.TypePaymentEvent).
		Str("outcome", string(outcome)).
		Str("delivery_id", n.DeliveryID).
		Msg("job enqueued")

	return nil
}

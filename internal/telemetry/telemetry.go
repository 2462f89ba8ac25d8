// Package telemetry exports the shop's spans and metrics over OTLP/HTTP.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Version is reported as service.version.
var Version = "0.1.0"

const (
	namespace      = "dsync-shop"
	metricInterval = time.Minute
)

// Settings name the process being exported. The API and the worker report
// under the same namespace with different service names.
type Settings struct {
	Service     string
	Endpoint    string
	Environment string
}

type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init installs the W3C propagators and, when an endpoint is set, the OTLP
// trace and metric providers. Propagation stays on without an endpoint so
// that queued payment events keep their webhook's trace.
func Init(ctx context.Context, s Settings) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if s.Endpoint == "" {
		return noopShutdown, nil
	}

	res, err := shopResource(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", s.Service, err)
	}

	host := collectorHost(s.Endpoint)

	spans, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(host),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("span exporter: %w", err)
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spans),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)

	metrics, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(host),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, errors.Join(
			fmt.Errorf("metric exporter: %w", err),
			tracerProvider.Shutdown(ctx),
		)
	}
	meterProvider := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(metrics, metric.WithInterval(metricInterval))),
		metric.WithResource(res),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)

	return func(ctx context.Context) error {
		return errors.Join(
			tracerProvider.Shutdown(ctx),
			meterProvider.Shutdown(ctx),
		)
	}, nil
}

func shopResource(ctx context.Context, s Settings) (*resource.Resource, error) {
	env := s.Environment
	if env == "" {
		env = "development"
	}

	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(s.Service),
			semconv.ServiceVersion(Version),
			semconv.ServiceNamespace(namespace),
			attribute.String("deployment.environment", env),
		),
	)
}

// collectorHost strips the scheme and trailing slash from OTEL_ENDPOINT;
// the exporters take host:port.
func collectorHost(endpoint string) string {
	for _, scheme := range []string{"http://", "https://"} {
		endpoint = strings.TrimPrefix(endpoint, scheme)
	}
	return strings.TrimRight(endpoint, "/")
}

package middleware

import (
	"sync"
	"time"

	"github.com/NETWORK-Z-Dev/dSyncShop/internal/logging"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter           = otel.Meter("dsync-shop")
	metricsOnce     sync.Once
	metricsErr      error
	requestCounter  metric.Int64Counter
	requestDuration metric.Float64Histogram
	activeRequests  metric.Int64UpDownCounter
)

// InitMetrics creates the HTTP instruments on the global meter provider.
// It only runs once. Metrics calls it on first use when the host did not.
func InitMetrics() error {
	metricsOnce.Do(func() {
		metricsErr = initMetrics()
	})
	return metricsErr
}

func initMetrics() error {
	var err error

	requestCounter, err = meter.Int64Counter(
		"shop.http.request.total",
		metric.WithDescription("Total number of shop HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	requestDuration, err = meter.Float64Histogram(
		"shop.http.request.duration",
		metric.WithDescription("Shop HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	activeRequests, err = meter.Int64UpDownCounter(
		"shop.http.active_requests",
		metric.WithDescription("Number of active shop HTTP requests"),
		metric.WithUnit("{request}"),
	)
	return err
}

func Metrics() echo.MiddlewareFunc {
	if err := InitMetrics(); err != nil {
		logging.Logger().Error().Err(err).Msg("failed to initialize http metrics")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			ctx := c.Request().Context()

			routeAttrs := metric.WithAttributes(
				attribute.String("http.method", c.Request().Method),
				attribute.String("http.route", c.Path()),
			)

			if activeRequests != nil {
				activeRequests.Add(ctx, 1, routeAttrs)
				defer activeRequests.Add(ctx, -1, routeAttrs)
			}

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok && !c.Response().Committed {
				status = he.Code
			}
			attrs := metric.WithAttributes(
				attribute.String("http.method", c.Request().Method),
				attribute.String("http.route", c.Path()),
				attribute.Int("http.status_code", status),
			)

			if requestCounter != nil {
				requestCounter.Add(ctx, 1, attrs)
			}
			if requestDuration != nil {
				requestDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
			}

			return err
		}
	}
}

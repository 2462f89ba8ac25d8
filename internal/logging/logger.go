// Package logging holds the shop's zerolog logger. Events started from a
// request or job context carry the active span's ids so log lines join the
// trace of the webhook or checkout that produced them.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

const (
	traceIDField = "traceId"
	spanIDField  = "spanId"
)

// Discards until Init runs.
var logger = zerolog.Nop()

// Init configures the process logger. Development gets colored console
// output at debug level with callers; everything else is JSON at info.
func Init(isDevelopment bool, service string) {
	zerolog.TimeFieldFormat = time.RFC3339

	if !isDevelopment {
		logger = New(os.Stdout, service).Level(zerolog.InfoLevel)
		return
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger = New(console, service).
		Level(zerolog.DebugLevel).
		With().
		Caller().
		Logger()
}

// New builds a logger in the shop's format. Tests use it to capture output.
func New(w io.Writer, service string) zerolog.Logger {
	fields := zerolog.New(w).With().Timestamp()
	if service != "" {
		fields = fields.Str("service", service)
	}
	return fields.Logger()
}

func SetLogger(l zerolog.Logger) {
	logger = l
}

// Logger is for process lifecycle messages that have no request context.
func Logger() *zerolog.Logger {
	return &logger
}

// WithContext returns the process logger, tagged with the span ids when ctx
// carries a valid span.
func WithContext(ctx context.Context) zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return logger
	}

	return logger.With().
		Str(traceIDField, sc.TraceID().String()).
		Str(spanIDField, sc.SpanID().String()).
		Logger()
}

func event(ctx context.Context, level zerolog.Level) *zerolog.Event {
	l := WithContext(ctx)
	return l.WithLevel(level)
}

func Debug(ctx context.Context) *zerolog.Event { return event(ctx, zerolog.DebugLevel) }

func Info(ctx context.Context) *zerolog.Event { return event(ctx, zerolog.InfoLevel) }

func Warn(ctx context.Context) *zerolog.Event { return event(ctx, zerolog.WarnLevel) }

func Error(ctx context.Context) *zerolog.Event { return event(ctx, zerolog.ErrorLevel) }

package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/pos-orders/internal/domain/order"
)

const instrumentationName = "github.com/xenking/pos-orders/internal/storage/postgres"

// Option configures a store component.
type Option func(*options)

type options struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// telemetry traces, times and logs every store operation.
type telemetry struct {
	tracer   trace.Tracer
	duration metric.Float64Histogram
	failures metric.Int64Counter
}

func newTelemetry(o options) (*telemetry, error) {
	meter := o.meterProvider.Meter(instrumentationName)

	duration, err := meter.Float64Histogram("pos.store.duration",
		metric.WithDescription("Duration of order store operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create duration histogram")
	}

	failures, err := meter.Int64Counter("pos.store.failures",
		metric.WithDescription("Failed order store operations"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create failures counter")
	}

	return &telemetry{
		tracer:   o.tracerProvider.Tracer(instrumentationName),
		duration: duration,
		failures: failures,
	}, nil
}

// start opens a span for op. The returned function must be called with the
// operation's final error; it records the outcome and logs failures.
func (t *telemetry) start(ctx context.Context, op string) (context.Context, func(err error)) {
	ctx, span := t.tracer.Start(ctx, op, trace.WithSpanKind(trace.SpanKindClient))
	begin := time.Now()

	return ctx, func(err error) {
		defer span.End()

		attrs := metric.WithAttributes(attribute.String("op", op))
		t.duration.Record(ctx, time.Since(begin).Seconds(), attrs)
		if err == nil {
			return
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.failures.Add(ctx, 1, attrs)

		lg := zctx.From(ctx).With(zap.String("op", op))
		if errors.Is(err, order.ErrNotFound) || errors.Is(err, order.ErrNotPersisted) || errors.Is(err, ErrSchemaMissing) {
			lg.Warn("Order store check failed", zap.Error(err))
			return
		}
		lg.Error("Order store operation failed", zap.Error(err))
	}
}

package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/singleflight"

	"github.com/xenking/drinkhub/internal/domain/discount"
	"github.com/xenking/drinkhub/internal/domain/fault"
	"github.com/xenking/drinkhub/internal/domain/ledger"
	"github.com/xenking/drinkhub/internal/domain/revenue"
)

const instrumentationName = "github.com/xenking/drinkhub/internal/domain/order"

// Service finalizes carts into orders and drives the order lifecycle.
type Service struct {
	store     Store
	discounts *discount.Validator
	ledger    *ledger.Ledger
	revenue   *revenue.Reconciler
	cache     ViewCache
	views     singleflight.Group

	now   func() time.Time
	newID func() string

	tp        trace.TracerProvider
	mp        metric.MeterProvider
	tracer    trace.Tracer
	checkouts metric.Int64Counter
	updates   metric.Int64Counter
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables projection caching.
func WithCache(c ViewCache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithTracerProvider sets the tracer provider used for service spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tp = tp
	}
}

// WithMeterProvider sets the meter provider used for service counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) {
		s.mp = mp
	}
}

// NewService creates an order Service backed by store.
func NewService(store Store, opts ...Option) (*Service, error) {
	s := &Service{
		store:     store,
		discounts: discount.NewValidator(),
		ledger:    ledger.New(),
		revenue:   revenue.NewReconciler(),
		cache:     noopCache{},
		now:       time.Now,
		newID:     uuid.NewString,
		tp:        tracenoop.NewTracerProvider(),
		mp:        metricnoop.NewMeterProvider(),
	}
	for _, o := range opts {
		o(s)
	}

	s.tracer = s.tp.Tracer(instrumentationName)
	meter := s.mp.Meter(instrumentationName)
	var err error
	if s.checkouts, err = meter.Int64Counter("orders.checkout.total",
		metric.WithDescription("Checkout attempts by result"),
	); err != nil {
		return nil, errors.Wrap(err, "create checkout counter")
	}
	if s.updates, err = meter.Int64Counter("orders.lifecycle.total",
		metric.WithDescription("Lifecycle updates by result"),
	); err != nil {
		return nil, errors.Wrap(err, "create lifecycle counter")
	}
	return s, nil
}

// observe records the outcome of an operation on its span and counter.
func observe(ctx context.Context, span trace.Span, counter metric.Int64Counter, err error) {
	result := "ok"
	if err != nil {
		result = fault.KindOf(err).String()
		span.RecordError(err)
		if fault.KindOf(err) == fault.Internal {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	span.End()
}

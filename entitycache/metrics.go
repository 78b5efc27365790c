package entitycache

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"
)

const instrumentationName = "github.com/goliatone/go-entitycache/entitycache"

type metrics struct {
	hits        metric.Int64Counter
	misses      metric.Int64Counter
	errors      metric.Int64Counter
	invalidated metric.Int64Counter
	attrs       metric.MeasurementOption
}

func newMetrics(meter metric.Meter, namespace string) (*metrics, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	var (
		m    = &metrics{attrs: metric.WithAttributeSet(attribute.NewSet(attribute.String("namespace", namespace)))}
		errs error
		err  error
	)

	m.hits, err = meter.Int64Counter("entitycache.hits", metric.WithDescription("Cache lookups served from the key/value store"))
	errs = multierr.Append(errs, err)
	m.misses, err = meter.Int64Counter("entitycache.misses", metric.WithDescription("Cache lookups that fell through to the store"))
	errs = multierr.Append(errs, err)
	m.errors, err = meter.Int64Counter("entitycache.errors", metric.WithDescription("Key/value store or codec failures"))
	errs = multierr.Append(errs, err)
	m.invalidated, err = meter.Int64Counter("entitycache.invalidated_keys", metric.WithDescription("Keys deleted by invalidation"))
	errs = multierr.Append(errs, err)

	return m, errs
}

func (m *metrics) hit(ctx context.Context) {
	m.hits.Add(ctx, 1, m.attrs)
}

func (m *metrics) miss(ctx context.Context) {
	m.misses.Add(ctx, 1, m.attrs)
}

func (m *metrics) failure(ctx context.Context) {
	m.errors.Add(ctx, 1, m.attrs)
}

func (m *metrics) deleted(ctx context.Context, n int64) {
	if n > 0 {
		m.invalidated.Add(ctx, n, m.attrs)
	}
}

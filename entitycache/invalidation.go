package entitycache

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/goliatone/go-entitycache/cache"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Target is one unit of a cascade: a named set of keys to delete. Keys may
// need I/O to resolve, for example reading an indirection pointer.
type Target struct {
	Name string
	Keys func(ctx context.Context) ([]string, error)
}

// Keys returns a target for a fixed list of keys.
func Keys(name string, keys ...string) Target {
	return Target{
		Name: name,
		Keys: func(context.Context) ([]string, error) { return keys, nil },
	}
}

// NamespaceTarget returns a target deleting identifier from ns. Useful for
// aggregates owned by other entities.
func NamespaceTarget(ns cache.Namespace, identifier string) Target {
	return Keys(ns.Key(identifier), ns.Key(identifier))
}

// TargetError records the failure of a single target.
type TargetError struct {
	Target string
	Keys   []string
	Err    error
}

func (e TargetError) Error() string {
	return fmt.Sprintf("invalidate %s: %v", e.Target, e.Err)
}

func (e TargetError) Unwrap() error {
	return e.Err
}

// InvalidationError collects every target that could not be deleted.
type InvalidationError struct {
	Failures []TargetError
}

func (e *InvalidationError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return "entitycache: " + strings.Join(parts, "; ")
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *InvalidationError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Invalidator runs cascades against a key/value store. Targets run
// concurrently and fail independently; nothing is rolled back.
type Invalidator struct {
	store       cache.KeyValueStore
	logger      *zap.Logger
	metrics     *metrics
	concurrency int
}

// InvalidatorOption customizes an Invalidator.
type InvalidatorOption func(*Invalidator)

// WithInvalidatorLogger sets the logger used to report failed targets.
func WithInvalidatorLogger(logger *zap.Logger) InvalidatorOption {
	return func(i *Invalidator) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithInvalidatorConcurrency bounds the number of targets run at once.
func WithInvalidatorConcurrency(n int) InvalidatorOption {
	return func(i *Invalidator) {
		if n > 0 {
			i.concurrency = n
		}
	}
}

// WithInvalidatorMeter sets the meter used for the invalidated keys counter.
func WithInvalidatorMeter(meter metric.Meter) InvalidatorOption {
	return func(i *Invalidator) {
		if m, err := newMetrics(meter, "cascade"); err == nil {
			i.metrics = m
		}
	}
}

// NewInvalidator creates an Invalidator over store.
func NewInvalidator(store cache.KeyValueStore, opts ...InvalidatorOption) *Invalidator {
	i := &Invalidator{
		store:       store,
		logger:      zap.NewNop(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.metrics == nil {
		i.metrics, _ = newMetrics(nil, "cascade")
	}
	return i
}

// Invalidate deletes every target and returns the number of keys removed.
// A non-nil error is always an *InvalidationError.
func (i *Invalidator) Invalidate(ctx context.Context, operation string, targets ...Target) (int64, error) {
	if len(targets) == 0 {
		return 0, nil
	}

	var (
		deleted  atomic.Int64
		failures = make([]*TargetError, len(targets))
	)

	g := new(errgroup.Group)
	g.SetLimit(i.concurrency)
	for idx, target := range targets {
		g.Go(func() error {
			keys, err := target.Keys(ctx)
			if err != nil {
				failures[idx] = &TargetError{Target: target.Name, Err: err}
				return nil
			}
			if len(keys) == 0 {
				return nil
			}

			n, err := i.store.Delete(ctx, keys...)
			deleted.Add(n)
			if err != nil {
				failures[idx] = &TargetError{Target: target.Name, Keys: keys, Err: err}
			}
			return nil
		})
	}
	_ = g.Wait()

	total := deleted.Load()
	if i.metrics != nil {
		i.metrics.deleted(ctx, total)
	}

	var invErr *InvalidationError
	for _, f := range failures {
		if f == nil {
			continue
		}
		if invErr == nil {
			invErr = &InvalidationError{}
		}
		invErr.Failures = append(invErr.Failures, *f)
		i.logger.Warn("cache invalidation failed",
			zap.String("operation", operation),
			zap.String("target", f.Target),
			zap.Strings("keys", f.Keys),
			zap.Error(f.Err),
		)
	}

	if invErr != nil {
		return total, invErr
	}
	return total, nil
}

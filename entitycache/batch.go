package entitycache

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// GetMany resolves ids through the cache and loads the misses with a single
// call to fetch. Duplicate and empty ids are dropped. Fetched records are
// written back concurrently. The result is unordered.
//
// Lookup and populate failures are isolated per id; only a fetch error fails
// the whole call.
func (c *EntityCache[T]) GetMany(ctx context.Context, ids []string, fetch BatchFetchFn[T]) ([]T, error) {
	unique := Dedupe(ids)
	if len(unique) == 0 {
		return nil, nil
	}

	values := make([]T, len(unique))
	found := make([]bool, len(unique))

	g := new(errgroup.Group)
	g.SetLimit(c.concurrency)
	for i, id := range unique {
		g.Go(func() error {
			values[i], found[i] = c.Get(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	results := make([]T, 0, len(unique))
	misses := make([]string, 0, len(unique))
	for i, id := range unique {
		if found[i] {
			results = append(results, values[i])
			continue
		}
		misses = append(misses, id)
	}

	if len(misses) == 0 || fetch == nil {
		return results, nil
	}

	fetched, err := fetch(ctx, misses)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("batch resolved",
		zap.Int("hits", len(results)),
		zap.Int("misses", len(misses)),
		zap.Int("fetched", len(fetched)),
	)

	c.SetMany(ctx, fetched)

	return append(results, fetched...), nil
}

// Dedupe returns ids without duplicates or empty strings, keeping the first
// occurrence order.
func Dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// IndexBy maps records by the key returned from key.
func IndexBy[T any](records []T, key func(T) string) map[string]T {
	out := make(map[string]T, len(records))
	for _, r := range records {
		out[key(r)] = r
	}
	return out
}

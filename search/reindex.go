package search

import (
	"context"
	"fmt"

	"github.com/goliatone/go-entitycache/model"
	"github.com/goliatone/go-entitycache/store"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of projects pushed per reindex request.
const DefaultBatchSize = 1000

// ProjectIDLister pages through project ids.
type ProjectIDLister interface {
	ListIDs(ctx context.Context, query store.ProjectIDQuery) ([]string, error)
}

// Clearer is implemented by indexes that can drop every document.
type Clearer interface {
	ClearDocuments(ctx context.Context) error
}

// Reindexer rebuilds the index from the store, walking indexable project ids
// in id order.
type Reindexer struct {
	ids       ProjectIDLister
	index     Index
	batchSize int
	logger    *zap.Logger
}

// NewReindexer creates a Reindexer. batchSize <= 0 uses DefaultBatchSize.
func NewReindexer(ids ProjectIDLister, index Index, batchSize int, logger *zap.Logger) *Reindexer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reindexer{ids: ids, index: index, batchSize: batchSize, logger: logger.Named("reindex")}
}

// Run adds every indexable project to the index and returns how many ids
// were submitted. With clear set, existing documents are dropped first when
// the index supports it.
func (r *Reindexer) Run(ctx context.Context, clear bool) (int, error) {
	if clear {
		if c, ok := r.index.(Clearer); ok {
			if err := c.ClearDocuments(ctx); err != nil {
				return 0, fmt.Errorf("search: clear index: %w", err)
			}
		}
	}

	total := 0
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		ids, err := r.ids.ListIDs(ctx, store.ProjectIDQuery{
			Visibilities: []model.ProjectVisibility{model.VisibilityListed},
			Statuses:     []model.PublishingStatus{model.StatusPublished},
			After:        cursor,
			Limit:        r.batchSize,
		})
		if err != nil {
			return total, fmt.Errorf("search: list project ids after %q: %w", cursor, err)
		}
		if len(ids) == 0 {
			break
		}

		if err := r.index.AddDocuments(ctx, ids); err != nil {
			return total, fmt.Errorf("search: add batch after %q: %w", cursor, err)
		}
		total += len(ids)
		r.logger.Debug("batch indexed", zap.Int("size", len(ids)), zap.Int("total", total))

		if len(ids) < r.batchSize {
			break
		}
		cursor = ids[len(ids)-1]
	}

	r.logger.Info("reindex complete", zap.Int("projects", total))
	return total, nil
}

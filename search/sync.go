package search

import (
	"context"

	"github.com/goliatone/go-entitycache/model"
	"go.uber.org/zap"
)

// Index is the external search index. Calls are fire and forget from the
// caller's point of view: failures are logged and repaired by the next sync.
type Index interface {
	AddDocuments(ctx context.Context, ids []string) error
	UpdateDocuments(ctx context.Context, ids []string) error
	RemoveDocuments(ctx context.Context, ids []string) error
}

// Syncer applies indexability transitions to an Index. A Syncer with a nil
// index only computes actions.
type Syncer struct {
	index  Index
	logger *zap.Logger
}

// NewSyncer creates a Syncer. index may be nil when search is disabled.
func NewSyncer(index Index, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{index: index, logger: logger.Named("search")}
}

// ProjectCreated adds p to the index when it is born indexable.
func (s *Syncer) ProjectCreated(ctx context.Context, p model.Project) Action {
	action := Creation(SnapshotOf(p))
	s.apply(ctx, action, p.ID)
	return action
}

// ProjectUpdated diffs the two project states and applies the result.
func (s *Syncer) ProjectUpdated(ctx context.Context, before, after model.Project) Action {
	action := Transition(SnapshotOf(before), SnapshotOf(after))
	s.apply(ctx, action, after.ID)
	return action
}

// ProjectDeleted removes p from the index when it was indexable.
func (s *Syncer) ProjectDeleted(ctx context.Context, p model.Project) Action {
	action := Removal(SnapshotOf(p))
	s.apply(ctx, action, p.ID)
	return action
}

// Refresh pushes an update for an indexable project whose indexed fields
// changed outside of the project record, for example its versions.
func (s *Syncer) Refresh(ctx context.Context, p model.Project) Action {
	if StateOf(p.Visibility, p.Status) != Indexable {
		return ActionNone
	}
	s.apply(ctx, ActionUpdate, p.ID)
	return ActionUpdate
}

func (s *Syncer) apply(ctx context.Context, action Action, id string) {
	if s.index == nil || action == ActionNone || id == "" {
		return
	}

	ids := []string{id}
	var err error
	switch action {
	case ActionAdd:
		err = s.index.AddDocuments(ctx, ids)
	case ActionUpdate:
		err = s.index.UpdateDocuments(ctx, ids)
	case ActionRemove:
		err = s.index.RemoveDocuments(ctx, ids)
	}

	if err != nil {
		s.logger.Error("search index sync failed",
			zap.String("action", action.String()),
			zap.String("project_id", id),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("search index synced", zap.String("action", action.String()), zap.String("project_id", id))
}

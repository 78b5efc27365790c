package search

import (
	"slices"
	"time"

	"github.com/goliatone/go-entitycache/model"
)

// State tells whether a project belongs in the search index.
type State int

const (
	NotIndexable State = iota
	Indexable
)

func (s State) String() string {
	if s == Indexable {
		return "indexable"
	}
	return "not-indexable"
}

// StateOf derives the index state from the two persisted fields. Only listed,
// published projects are searchable.
func StateOf(visibility model.ProjectVisibility, status model.PublishingStatus) State {
	if visibility == model.VisibilityListed && status == model.StatusPublished {
		return Indexable
	}
	return NotIndexable
}

// Action is the index operation a transition requires.
type Action int

const (
	ActionNone Action = iota
	ActionAdd
	ActionUpdate
	ActionRemove
)

func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionUpdate:
		return "update"
	case ActionRemove:
		return "remove"
	default:
		return "none"
	}
}

// Snapshot holds the project fields that decide indexability and ranking.
type Snapshot struct {
	Visibility     model.ProjectVisibility
	Status         model.PublishingStatus
	Loaders        []string
	GameVersions   []string
	Categories     []string
	Downloads      int64
	IconFileID     string
	OrganizationID string
	DateUpdated    time.Time
}

// SnapshotOf captures the ranking relevant fields of p.
func SnapshotOf(p model.Project) Snapshot {
	return Snapshot{
		Visibility:     p.Visibility,
		Status:         p.Status,
		Loaders:        p.Loaders,
		GameVersions:   p.GameVersions,
		Categories:     p.Categories,
		Downloads:      p.Downloads,
		IconFileID:     p.IconFileID,
		OrganizationID: p.OrganizationID,
		DateUpdated:    p.DateUpdated,
	}
}

// State returns the index state of the snapshot.
func (s Snapshot) State() State {
	return StateOf(s.Visibility, s.Status)
}

// RankingEqual reports whether no field used by the index differs.
func (s Snapshot) RankingEqual(o Snapshot) bool {
	return s.Visibility == o.Visibility &&
		s.Status == o.Status &&
		s.Downloads == o.Downloads &&
		s.IconFileID == o.IconFileID &&
		s.OrganizationID == o.OrganizationID &&
		s.DateUpdated.Equal(o.DateUpdated) &&
		slices.Equal(s.Loaders, o.Loaders) &&
		slices.Equal(s.GameVersions, o.GameVersions) &&
		slices.Equal(s.Categories, o.Categories)
}

// Transition returns the action needed to move the index from before to
// after:
//
//	NotIndexable -> NotIndexable  none
//	NotIndexable -> Indexable     add
//	Indexable    -> Indexable     update, only when a ranking field changed
//	Indexable    -> NotIndexable  remove
func Transition(before, after Snapshot) Action {
	was, is := before.State(), after.State()
	switch {
	case was == NotIndexable && is == Indexable:
		return ActionAdd
	case was == Indexable && is == NotIndexable:
		return ActionRemove
	case was == Indexable && is == Indexable:
		if before.RankingEqual(after) {
			return ActionNone
		}
		return ActionUpdate
	default:
		return ActionNone
	}
}

// Removal returns the action for a deleted project.
func Removal(deleted Snapshot) Action {
	if deleted.State() == Indexable {
		return ActionRemove
	}
	return ActionNone
}

// Creation returns the action for a new project.
func Creation(created Snapshot) Action {
	if created.State() == Indexable {
		return ActionAdd
	}
	return ActionNone
}

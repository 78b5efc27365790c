package search_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/goliatone/go-entitycache/model"
	"github.com/goliatone/go-entitycache/pkg/testsupport"
	"github.com/goliatone/go-entitycache/search"
	"github.com/goliatone/go-entitycache/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type idLister struct {
	ids     []string
	queries []store.ProjectIDQuery
	err     error
}

func (l *idLister) ListIDs(ctx context.Context, q store.ProjectIDQuery) ([]string, error) {
	l.queries = append(l.queries, q)
	if l.err != nil {
		return nil, l.err
	}
	start := sort.SearchStrings(l.ids, q.After)
	if start < len(l.ids) && l.ids[start] == q.After {
		start++
	}
	end := min(start+q.Limit, len(l.ids))
	return l.ids[start:end], nil
}

func projectIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("p_%05d", i)
	}
	return ids
}

type clearingIndex struct {
	*testsupport.RecordingIndex
	cleared int
}

func (c *clearingIndex) ClearDocuments(ctx context.Context) error {
	c.cleared++
	return nil
}

func TestReindexer_WalksInBatches(t *testing.T) {
	lister := &idLister{ids: projectIDs(2500)}
	index := &clearingIndex{RecordingIndex: testsupport.NewRecordingIndex()}

	n, err := search.NewReindexer(lister, index, 1000, nil).Run(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2500, n)
	assert.Equal(t, 1, index.cleared)

	calls := index.Calls()
	require.Len(t, calls, 3)
	assert.Len(t, calls[0].IDs, 1000)
	assert.Len(t, calls[2].IDs, 500)

	require.Len(t, lister.queries, 3)
	assert.Equal(t, "", lister.queries[0].After)
	assert.Equal(t, "p_00999", lister.queries[1].After)
	assert.Equal(t, []model.ProjectVisibility{model.VisibilityListed}, lister.queries[0].Visibilities)
	assert.Equal(t, []model.PublishingStatus{model.StatusPublished}, lister.queries[0].Statuses)
}

func TestReindexer_ExactMultipleEndsOnEmptyPage(t *testing.T) {
	lister := &idLister{ids: projectIDs(4)}
	index := testsupport.NewRecordingIndex()

	n, err := search.NewReindexer(lister, index, 2, nil).Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Len(t, index.Calls(), 2)
	assert.Len(t, lister.queries, 3)
}

func TestReindexer_Errors(t *testing.T) {
	listErr := errors.New("db down")
	_, err := search.NewReindexer(&idLister{err: listErr}, testsupport.NewRecordingIndex(), 0, nil).Run(context.Background(), false)
	assert.ErrorIs(t, err, listErr)

	index := testsupport.NewRecordingIndex()
	indexErr := errors.New("search down")
	index.FailWith(indexErr)
	_, err = search.NewReindexer(&idLister{ids: projectIDs(3)}, index, 0, nil).Run(context.Background(), false)
	assert.ErrorIs(t, err, indexErr)
}

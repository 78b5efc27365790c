package entitycache

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-entitycache/pkg/testsupport"
	"github.com/goliatone/go-entitycache/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func widgetIDs(ws []widget) []string {
	ids := make([]string, len(ws))
	for i, w := range ws {
		ids[i] = w.ID
	}
	return ids
}

func seededWidgets() *testsupport.MemoryStore[widget] {
	return testsupport.NewMemoryStore(
		func(w widget) string { return w.ID },
		func(w widget) string { return w.Slug },
		widget{ID: "a", Slug: "alpha"},
		widget{ID: "b", Slug: "bravo"},
		widget{ID: "c", Slug: "charlie"},
	)
}

func TestGetMany_PartialHit(t *testing.T) {
	ctx := context.Background()
	kv := testsupport.NewMemoryKV()
	c := newWidgetCache(t, kv, true)
	rows := seededWidgets()

	require.NoError(t, c.Set(ctx, widget{ID: "a", Slug: "alpha"}))

	got, err := c.GetMany(ctx, []string{"a", "b", "c"}, rows.FindMany)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, widgetIDs(got))

	calls := rows.FindManyCalls()
	require.Len(t, calls, 1)
	assert.ElementsMatch(t, []string{"b", "c"}, calls[0])

	// misses were written back
	for _, id := range []string{"b", "c"} {
		_, ok := c.Get(ctx, id)
		assert.True(t, ok, id)
	}
}

func TestGetMany_DuplicateIDs(t *testing.T) {
	ctx := context.Background()
	c := newWidgetCache(t, testsupport.NewMemoryKV(), true)
	rows := seededWidgets()

	got, err := c.GetMany(ctx, []string{"a", "b", "a", "", "c"}, rows.FindMany)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, widgetIDs(got))

	calls := rows.FindManyCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"a", "b", "c"}, calls[0])
}

func TestGetMany_AllHitsSkipFetch(t *testing.T) {
	ctx := context.Background()
	c := newWidgetCache(t, testsupport.NewMemoryKV(), true)
	rows := seededWidgets()

	c.SetMany(ctx, rows.Rows())

	got, err := c.GetMany(ctx, []string{"c", "a"}, rows.FindMany)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Zero(t, rows.CallCount("FindMany"))
}

func TestGetMany_MissingRecordsAreOmitted(t *testing.T) {
	ctx := context.Background()
	c := newWidgetCache(t, testsupport.NewMemoryKV(), true)
	rows := seededWidgets()

	got, err := c.GetMany(ctx, []string{"a", "zulu"}, rows.FindMany)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, widgetIDs(got))
}

func TestGetMany_FetchErrorFailsCall(t *testing.T) {
	ctx := context.Background()
	c := newWidgetCache(t, testsupport.NewMemoryKV(), true)
	rows := seededWidgets()

	boom := errors.New("too many connections")
	rows.Fail("FindMany", boom)

	got, err := c.GetMany(ctx, []string{"a", "b"}, rows.FindMany)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, got)
}

func TestGetMany_LookupFailureIsAMiss(t *testing.T) {
	ctx := context.Background()
	kv := testsupport.NewMemoryKV()
	c := newWidgetCache(t, kv, true)
	rows := seededWidgets()

	c.SetMany(ctx, rows.Rows())
	kv.Fail("get", "project-details:b", errors.New("timeout"))

	got, err := c.GetMany(ctx, []string{"a", "b", "c"}, rows.FindMany)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, widgetIDs(got))

	calls := rows.FindManyCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"b"}, calls[0])
}

func TestGetMany_PopulateFailureStillReturnsRecords(t *testing.T) {
	ctx := context.Background()
	kv := testsupport.NewMemoryKV()
	c := newWidgetCache(t, kv, true)
	rows := seededWidgets()

	kv.Fail("set", "", errors.New("OOM command not allowed"))

	got, err := c.GetMany(ctx, []string{"a", "b"}, rows.FindMany)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Empty(t, kv.Keys())
}

func TestGetMany_EmptyInput(t *testing.T) {
	c := newWidgetCache(t, testsupport.NewMemoryKV(), true)

	got, err := c.GetMany(context.Background(), nil, func(context.Context, []string) ([]widget, error) {
		t.Fatal("fetch must not be called")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetMany_NotFoundFromFetch(t *testing.T) {
	c := newWidgetCache(t, testsupport.NewMemoryKV(), true)

	_, err := c.GetMany(context.Background(), []string{"x"}, func(context.Context, []string) ([]widget, error) {
		return nil, store.NotFound("widget", "id=x")
	})
	assert.True(t, store.IsNotFound(err), "got %v", err)
}

func TestDedupe(t *testing.T) {
	assert.Nil(t, Dedupe(nil))
	assert.Equal(t, []string{"b", "a", "c"}, Dedupe([]string{"b", "a", "", "b", "c", "a"}))
}

func TestIndexBy(t *testing.T) {
	idx := IndexBy([]widget{{ID: "a"}, {ID: "b"}}, func(w widget) string { return w.ID })
	assert.Len(t, idx, 2)
	assert.Equal(t, "b", idx["b"].ID)
}

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supbro-dev/Wagner-agent/task"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func fullDetail() task.Detail {
	return task.Detail{
		Target:        task.Ptr("daily order count"),
		QueryParam:    task.Ptr("last 7 days"),
		DataOperation: task.Ptr("count by day"),
		DataFormat:    task.Ptr(task.FormatTable),
	}
}

func TestStore_SaveAndFind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &task.Record{BusinessKey: "acme", Name: "daily-orders", Detail: fullDetail()}
	id, err := store.Save(ctx, rec)
	require.NoError(t, err)
	assert.NotZero(t, id)

	byID, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "daily-orders", byID.Name)
	assert.Equal(t, "acme", byID.BusinessKey)
	assert.True(t, byID.Detail.Equal(&rec.Detail))

	byName, err := store.FindByName(ctx, "acme", "daily-orders")
	require.NoError(t, err)
	assert.Equal(t, id, byName.ID)

	_, err = store.FindByName(ctx, "other-tenant", "daily-orders")
	assert.ErrorIs(t, err, task.ErrNotFound)
}

func TestStore_SaveIsIdempotentPerID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &task.Record{BusinessKey: "acme", Name: "daily-orders", Detail: fullDetail()}
	id, err := store.Save(ctx, rec)
	require.NoError(t, err)

	// Saving again with the id updates in place instead of duplicating.
	rec.Detail.QueryParam = task.Ptr("last 30 days")
	id2, err := store.Save(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	found, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "last 30 days", *found.Detail.QueryParam)

	recent, err := store.FrequentlyUsed(ctx, "acme", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, recent) // never executed yet
}

func TestStore_SoftDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &task.Record{BusinessKey: "acme", Name: "daily-orders", Detail: fullDetail()}
	id, err := store.Save(ctx, rec)
	require.NoError(t, err)

	require.NoError(t, store.SoftDelete(ctx, id, "acme"))

	_, err = store.FindByID(ctx, id)
	assert.ErrorIs(t, err, task.ErrNotFound)
	_, err = store.FindByName(ctx, "acme", "daily-orders")
	assert.ErrorIs(t, err, task.ErrNotFound)

	// Deleting twice reports not found.
	assert.ErrorIs(t, store.SoftDelete(ctx, id, "acme"), task.ErrNotFound)

	// The name is reusable after deletion.
	again := &task.Record{BusinessKey: "acme", Name: "daily-orders", Detail: fullDetail()}
	id2, err := store.Save(ctx, again)
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
}

func TestStore_BumpInvokeCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &task.Record{BusinessKey: "acme", Name: "daily-orders", Detail: fullDetail()}
	id, err := store.Save(ctx, rec)
	require.NoError(t, err)

	require.NoError(t, store.BumpInvokeCount(ctx, id, "acme"))
	require.NoError(t, store.BumpInvokeCount(ctx, id, "acme"))

	found, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 2, found.InvokeTimes)
	assert.False(t, found.ExecutedAt.IsZero())

	assert.ErrorIs(t, store.BumpInvokeCount(ctx, 9999, "acme"), task.ErrNotFound)
}

func TestStore_RecentlyAndFrequentlyUsed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var ids []int64
	for _, name := range []string{"a", "b", "c"} {
		rec := &task.Record{BusinessKey: "acme", Name: name, Detail: fullDetail()}
		id, err := store.Save(ctx, rec)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	// a executed once, b three times, c never.
	require.NoError(t, store.BumpInvokeCount(ctx, ids[0], "acme"))
	for range 3 {
		require.NoError(t, store.BumpInvokeCount(ctx, ids[1], "acme"))
	}

	recent, err := store.RecentlyUsed(ctx, "acme", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].Name) // most recently executed first

	frequent, err := store.FrequentlyUsed(ctx, "acme", []int64{ids[1]}, 10)
	require.NoError(t, err)
	require.Len(t, frequent, 1)
	assert.Equal(t, "a", frequent[0].Name)
}

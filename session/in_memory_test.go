package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supbro-dev/Wagner-agent/core"
)

func TestInMemoryStore_LazyCreateAndClone(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", sess.ID)

	// Mutating the returned clone must not leak into the store.
	sess.SetState("k", "local")
	again, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	_, ok := again.GetState("k")
	assert.False(t, ok)
}

func TestInMemoryStore_AppendEventAndDelta(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.AppendEvent(ctx, "s1", core.NewUserMessageEvent("t1", "hi")))
	require.NoError(t, store.ApplyDelta(ctx, "s1", map[string]any{"a": 1}))

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, sess.GetEvents(), 1)
	v, ok := sess.GetState("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestInMemoryStore_DeltaNilDeletesKey(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.ApplyDelta(ctx, "s1", map[string]any{"a": 1}))
	require.NoError(t, store.ApplyDelta(ctx, "s1", map[string]any{"a": nil}))

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	_, ok := sess.GetState("a")
	assert.False(t, ok)
}

package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_SearchScopesAreIsolated(t *testing.T) {
	store := NewInMemoryStore(0)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "user asked about monday orders", "acme:s1"))
	require.NoError(t, store.Record(ctx, "user asked about refunds", "other:s9"))

	hits, err := store.Search(ctx, "orders", "acme:s1")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Content, "monday orders")

	hits, err = store.Search(ctx, "orders", "other:s9")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestInMemoryStore_SearchRanksByWordOverlap(t *testing.T) {
	store := NewInMemoryStore(0)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "weekly revenue by region", "s"))
	require.NoError(t, store.Record(ctx, "weekly order count by region and channel", "s"))

	hits, err := store.Search(ctx, "weekly order count", "s")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Contains(t, hits[0].Content, "order count")
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestInMemoryStore_SearchCapsHits(t *testing.T) {
	store := NewInMemoryStore(2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, fmt.Sprintf("orders note %d", i), "s"))
	}
	hits, err := store.Search(ctx, "orders", "s")
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestInMemoryStore_EmptyQuery(t *testing.T) {
	store := NewInMemoryStore(0)
	ctx := context.Background()
	require.NoError(t, store.Record(ctx, "anything", "s"))

	hits, err := store.Search(ctx, "   ", "s")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

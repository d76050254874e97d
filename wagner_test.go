package wagner

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supbro-dev/Wagner-agent/model"
	"github.com/supbro-dev/Wagner-agent/task/sqlite"
)

func newTestManager(t *testing.T, maxAnalysts int) (*Manager, *model.ScriptedModel) {
	t.Helper()

	tasks, err := sqlite.NewStore(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { tasks.Close() })

	scripted := model.NewScriptedModel()
	resolver := resolverFunc(func(_ context.Context, businessKey string) (*AgentDefinition, error) {
		return &AgentDefinition{
			BusinessKey:  businessKey,
			SystemPrompt: "You are the analyst for " + businessKey + ".",
		}, nil
	})

	mgr, err := NewManager(Options{
		Model:       scripted,
		TaskStore:   tasks,
		Resolver:    resolver,
		MaxAnalysts: maxAnalysts,
	})
	require.NoError(t, err)
	return mgr, scripted
}

type resolverFunc func(ctx context.Context, businessKey string) (*AgentDefinition, error)

func (f resolverFunc) Resolve(ctx context.Context, businessKey string) (*AgentDefinition, error) {
	return f(ctx, businessKey)
}

func TestNewManager_RequiresCoreServices(t *testing.T) {
	_, err := NewManager(Options{})
	assert.ErrorContains(t, err, "model is required")

	_, err = NewManager(Options{Model: model.NewScriptedModel()})
	assert.ErrorContains(t, err, "task store is required")
}

func TestManager_CachesAnalystPerBusinessKey(t *testing.T) {
	mgr, _ := newTestManager(t, 4)
	ctx := context.Background()

	a1, err := mgr.Analyst(ctx, "acme")
	require.NoError(t, err)
	a2, err := mgr.Analyst(ctx, "acme")
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.Equal(t, "acme", a1.BusinessKey())
	assert.Equal(t, 1, mgr.Len())
}

func TestManager_EvictsLeastRecentlyUsed(t *testing.T) {
	mgr, _ := newTestManager(t, 2)
	ctx := context.Background()

	first, err := mgr.Analyst(ctx, "tenant-0")
	require.NoError(t, err)
	_, err = mgr.Analyst(ctx, "tenant-1")
	require.NoError(t, err)

	// Touch tenant-0 so tenant-1 becomes the eviction candidate.
	touched, err := mgr.Analyst(ctx, "tenant-0")
	require.NoError(t, err)
	assert.Same(t, first, touched)

	_, err = mgr.Analyst(ctx, "tenant-2")
	require.NoError(t, err)
	assert.Equal(t, 2, mgr.Len())

	// tenant-1 was evicted; re-resolving builds a fresh analyst.
	kept, err := mgr.Analyst(ctx, "tenant-0")
	require.NoError(t, err)
	assert.Same(t, first, kept)

	rebuilt, err := mgr.Analyst(ctx, "tenant-1")
	require.NoError(t, err)
	assert.NotNil(t, rebuilt)
	assert.Equal(t, 2, mgr.Len())
}

func TestManager_ResolverErrorSurfaces(t *testing.T) {
	mgr, _ := newTestManager(t, 2)

	mgr.opts.Resolver = NewStaticResolver(&AgentDefinition{BusinessKey: "known"})
	_, err := mgr.Analyst(context.Background(), "unknown")
	assert.ErrorContains(t, err, `no agent defined for business key "unknown"`)
	assert.Equal(t, 0, mgr.Len())
}

func TestStaticResolver_Resolve(t *testing.T) {
	r := NewStaticResolver(
		&AgentDefinition{BusinessKey: "a", SystemPrompt: "prompt a"},
		&AgentDefinition{BusinessKey: "b", SystemPrompt: "prompt b"},
	)

	def, err := r.Resolve(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "prompt b", def.SystemPrompt)

	_, err = r.Resolve(context.Background(), "c")
	assert.Error(t, err)
}

func TestAnalyst_AskRunsATurn(t *testing.T) {
	mgr, scripted := newTestManager(t, 2)
	ctx := context.Background()

	a, err := mgr.Analyst(ctx, "acme")
	require.NoError(t, err)

	// Classifier turn, then the default reply turn.
	scripted.EnqueueText(`{"intent_type": "default"}`)
	scripted.EnqueueText("Hello! Ask me about your order data.")

	reply, err := a.Ask(ctx, "session-1", "hi there")
	require.NoError(t, err)
	assert.Contains(t, reply, "order data")
}

func TestManager_ConcurrentResolveSingleEntry(t *testing.T) {
	mgr, _ := newTestManager(t, 4)
	ctx := context.Background()

	results := make(chan *Analyst, 8)
	for i := 0; i < 8; i++ {
		go func() {
			a, err := mgr.Analyst(ctx, "acme")
			if err != nil {
				results <- nil
				return
			}
			results <- a
		}()
	}

	var first *Analyst
	for i := 0; i < 8; i++ {
		a := <-results
		require.NotNil(t, a, fmt.Sprintf("resolve %d failed", i))
		if first == nil {
			first = a
		} else {
			assert.Same(t, first, a)
		}
	}
	assert.Equal(t, 1, mgr.Len())
}

// Package wagner provides a high-level façade over the workflow engine for
// building conversational data analyst agents. Most applications interact
// with this package by:
//  1. Defining agents (system prompt plus business data tools) per business key
//  2. Creating a Manager via NewManager() with shared stores
//  3. Resolving an Analyst per (business key, session) and driving turns
//     through Ask / Stream and Resume / StreamResume
//
// The façade delegates orchestration to workflow.Engine while keeping setup
// ergonomics concise. All defaults are safe for local development; production
// deployments supply durable session stores, a retrieval index, and a
// structured logger.
package wagner

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/supbro-dev/Wagner-agent/core"
	"github.com/supbro-dev/Wagner-agent/logging"
	"github.com/supbro-dev/Wagner-agent/memory"
	"github.com/supbro-dev/Wagner-agent/model"
	"github.com/supbro-dev/Wagner-agent/session"
	"github.com/supbro-dev/Wagner-agent/task"
	"github.com/supbro-dev/Wagner-agent/tool"
	"github.com/supbro-dev/Wagner-agent/workflow"
)

// DefaultMaxAnalysts caps how many per-business-key engines the manager keeps
// alive before evicting the least recently used one.
const DefaultMaxAnalysts = 32

// AgentDefinition describes one analyst agent: the tenant it serves, its
// system prompt, and the business data tools it may call.
type AgentDefinition struct {
	BusinessKey  string
	SystemPrompt string
	Tools        []tool.Tool
}

// AgentResolver supplies the agent definition for a business key. It is
// consulted lazily, the first time a business key is seen.
type AgentResolver interface {
	Resolve(ctx context.Context, businessKey string) (*AgentDefinition, error)
}

// StaticResolver resolves agents from a fixed definition set.
type StaticResolver map[string]*AgentDefinition

// NewStaticResolver builds a resolver from the given definitions.
func NewStaticResolver(defs ...*AgentDefinition) StaticResolver {
	r := make(StaticResolver, len(defs))
	for _, def := range defs {
		r[def.BusinessKey] = def
	}
	return r
}

// Resolve implements AgentResolver.
func (r StaticResolver) Resolve(_ context.Context, businessKey string) (*AgentDefinition, error) {
	def, ok := r[businessKey]
	if !ok {
		return nil, fmt.Errorf("wagner: no agent defined for business key %q", businessKey)
	}
	return def, nil
}

// Analyst is one conversational data analyst bound to a business key. It is
// a thin wrapper over the workflow engine; all methods are safe for
// concurrent use.
type Analyst struct {
	engine *workflow.Engine
}

// BusinessKey returns the tenant this analyst serves.
func (a *Analyst) BusinessKey() string { return a.engine.BusinessKey() }

// Ask runs one synchronous turn and returns the reply text.
func (a *Analyst) Ask(ctx context.Context, sessionID, utterance string) (string, error) {
	return a.engine.Ask(ctx, sessionID, utterance)
}

// Stream runs one turn and returns the event stream.
func (a *Analyst) Stream(ctx context.Context, sessionID, utterance string) (<-chan core.Event, <-chan error, error) {
	return a.engine.Stream(ctx, sessionID, utterance)
}

// Resume answers a pending confirmation synchronously.
func (a *Analyst) Resume(ctx context.Context, sessionID, resumeType string) (string, *core.InterruptRequest, error) {
	return a.engine.Resume(ctx, sessionID, resumeType)
}

// StreamResume answers a pending confirmation and streams the rest of the
// suspended turn.
func (a *Analyst) StreamResume(ctx context.Context, sessionID, resumeType string) (<-chan core.Event, <-chan error, error) {
	return a.engine.StreamResume(ctx, sessionID, resumeType)
}

// StateProperties returns the named workflow state properties of a session.
func (a *Analyst) StateProperties(ctx context.Context, sessionID string, names []string) (map[string]any, error) {
	return a.engine.StateProperties(ctx, sessionID, names)
}

// FrequentTaskNames returns the tenant's recently and frequently executed
// task names, for welcome suggestions.
func (a *Analyst) FrequentTaskNames(ctx context.Context) ([]string, error) {
	return a.engine.FrequentTaskNames(ctx)
}

// Options configures a Manager. Model, TaskStore and Resolver are required;
// any unset service falls back to an in-memory implementation.
type Options struct {
	Model     model.Model
	TaskStore task.Store
	Resolver  AgentResolver

	// SessionStore defaults to an in-memory store.
	SessionStore core.SessionStore
	// RetrieverFor supplies the fuzzy task lookup index for a business key.
	// Nil disables fuzzy lookup.
	RetrieverFor func(businessKey string) task.Retriever
	// MemoryStore defaults to an in-memory store.
	MemoryStore core.MemoryStore
	// Logger defaults to a no-op logger.
	Logger logging.Logger

	// MaxAnalysts bounds the engine cache (default DefaultMaxAnalysts).
	MaxAnalysts int
	// MaxToolRounds bounds tool dispatch per turn (default engine's).
	MaxToolRounds int
}

// Manager caches one Analyst per business key with LRU eviction. Evicted
// analysts lose no data: sessions and tasks live in the shared stores, so a
// re-resolved analyst picks up where the evicted one stopped.
type Manager struct {
	opts Options

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
}

type managerEntry struct {
	businessKey string
	analyst     *Analyst
}

// NewManager validates the options and builds a Manager.
func NewManager(opts Options) (*Manager, error) {
	if opts.Model == nil {
		return nil, fmt.Errorf("wagner: model is required")
	}
	if opts.TaskStore == nil {
		return nil, fmt.Errorf("wagner: task store is required")
	}
	if opts.Resolver == nil {
		return nil, fmt.Errorf("wagner: agent resolver is required")
	}
	if opts.SessionStore == nil {
		opts.SessionStore = session.NewInMemoryStore()
	}
	if opts.MemoryStore == nil {
		opts.MemoryStore = memory.NewInMemoryStore(0)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.MaxAnalysts <= 0 {
		opts.MaxAnalysts = DefaultMaxAnalysts
	}
	return &Manager{
		opts:    opts,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}, nil
}

// Analyst returns the analyst for a business key, building it on first use.
func (m *Manager) Analyst(ctx context.Context, businessKey string) (*Analyst, error) {
	m.mu.Lock()
	if el, ok := m.entries[businessKey]; ok {
		m.order.MoveToFront(el)
		a := el.Value.(*managerEntry).analyst
		m.mu.Unlock()
		return a, nil
	}
	m.mu.Unlock()

	// Resolution and engine construction happen outside the lock; a racing
	// resolve for the same key is harmless, the first insert wins.
	def, err := m.opts.Resolver.Resolve(ctx, businessKey)
	if err != nil {
		return nil, err
	}
	var retriever task.Retriever
	if m.opts.RetrieverFor != nil {
		retriever = m.opts.RetrieverFor(businessKey)
	}
	engine, err := workflow.New(workflow.Config{
		BusinessKey:   businessKey,
		SystemPrompt:  def.SystemPrompt,
		Model:         m.opts.Model,
		Tools:         def.Tools,
		TaskStore:     m.opts.TaskStore,
		SessionStore:  m.opts.SessionStore,
		Retriever:     retriever,
		MemoryStore:   m.opts.MemoryStore,
		Logger:        m.opts.Logger,
		MaxToolRounds: m.opts.MaxToolRounds,
	})
	if err != nil {
		return nil, fmt.Errorf("building analyst for %q: %w", businessKey, err)
	}
	analyst := &Analyst{engine: engine}

	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.entries[businessKey]; ok {
		m.order.MoveToFront(el)
		return el.Value.(*managerEntry).analyst, nil
	}
	el := m.order.PushFront(&managerEntry{businessKey: businessKey, analyst: analyst})
	m.entries[businessKey] = el
	for m.order.Len() > m.opts.MaxAnalysts {
		oldest := m.order.Back()
		entry := oldest.Value.(*managerEntry)
		m.order.Remove(oldest)
		delete(m.entries, entry.businessKey)
		m.opts.Logger.Debug("wagner.analyst.evicted", "business_key", entry.businessKey)
	}
	return analyst, nil
}

// Len returns the number of cached analysts.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

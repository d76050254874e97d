package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/supbro-dev/Wagner-agent/core"
	"github.com/supbro-dev/Wagner-agent/logging"
	"github.com/supbro-dev/Wagner-agent/model"
	"github.com/supbro-dev/Wagner-agent/schema"
	"github.com/supbro-dev/Wagner-agent/task"
	"github.com/supbro-dev/Wagner-agent/tool"
)

// DefaultMaxToolRounds caps how many tool-dispatch rounds a single turn may
// perform before the turn fails.
const DefaultMaxToolRounds = 8

// DefaultRetrievalTopK is how many fuzzy lookup candidates are considered.
const DefaultRetrievalTopK = 3

// RecordExecutionToolName is the internal tool the execute node calls to bump
// a task's execution counter.
const RecordExecutionToolName = "record_task_execution"

// DeleteTaskToolName is the confirmation-guarded deletion tool.
const DeleteTaskToolName = "delete_task"

// Config assembles an Engine. Model, TaskStore and SessionStore are required;
// Retriever and MemoryStore are optional capabilities.
type Config struct {
	BusinessKey   string
	SystemPrompt  string
	Model         model.Model
	Tools         []tool.Tool // business data tools offered to query/execute nodes
	TaskStore     task.Store
	SessionStore  core.SessionStore
	Retriever     task.Retriever
	MemoryStore   core.MemoryStore
	Logger        logging.Logger
	MaxToolRounds int
	RetrievalTopK int
}

// Engine runs the workflow graph for one business key. It is safe for
// concurrent use; turns within a single session are serialized.
type Engine struct {
	businessKey   string
	systemPrompt  string
	model         model.Model
	decoder       *schema.Decoder
	queryTools    *tool.Registry
	executeTools  *tool.Registry
	deleteTools   *tool.Registry
	tasks         task.Store
	sessions      core.SessionStore
	retriever     task.Retriever
	memory        core.MemoryStore
	logger        logging.Logger
	maxToolRounds int
	topK          int

	mu       sync.Mutex
	inflight map[string]bool
}

// New validates the config and builds an Engine. The business tools are
// augmented with the execution-recording tool for the execute node and a
// confirmation-guarded delete tool for the delete node.
func New(cfg Config) (*Engine, error) {
	if cfg.BusinessKey == "" {
		return nil, fmt.Errorf("workflow: business key is required")
	}
	if cfg.Model == nil {
		return nil, fmt.Errorf("workflow: model is required")
	}
	if cfg.TaskStore == nil {
		return nil, fmt.Errorf("workflow: task store is required")
	}
	if cfg.SessionStore == nil {
		return nil, fmt.Errorf("workflow: session store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NoOpLogger{}
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = DefaultMaxToolRounds
	}
	if cfg.RetrievalTopK <= 0 {
		cfg.RetrievalTopK = DefaultRetrievalTopK
	}

	e := &Engine{
		businessKey:   cfg.BusinessKey,
		systemPrompt:  cfg.SystemPrompt,
		model:         cfg.Model,
		decoder:       schema.NewDecoder(cfg.Model),
		tasks:         cfg.TaskStore,
		sessions:      cfg.SessionStore,
		retriever:     cfg.Retriever,
		memory:        cfg.MemoryStore,
		logger:        cfg.Logger,
		maxToolRounds: cfg.MaxToolRounds,
		topK:          cfg.RetrievalTopK,
		inflight:      make(map[string]bool),
	}

	queryTools, err := tool.NewRegistry(cfg.Tools...)
	if err != nil {
		return nil, err
	}
	e.queryTools = queryTools

	executeTools, err := queryTools.Merge(e.recordExecutionTool())
	if err != nil {
		return nil, err
	}
	e.executeTools = executeTools

	deleteTools, err := tool.NewRegistry(e.deleteTaskTool())
	if err != nil {
		return nil, err
	}
	e.deleteTools = deleteTools

	return e, nil
}

// recordExecutionTool bumps the execution counter of a task. The execute node
// instructs the model to call it exactly once after presenting results.
func (e *Engine) recordExecutionTool() tool.Tool {
	type args struct {
		TaskID int64 `json:"taskId" description:"Id of the task that was executed"`
	}
	return tool.NewFunctionToolFromStruct(
		RecordExecutionToolName,
		"Record that a saved task has been executed once.",
		args{},
		func(ctx context.Context, a map[string]any) (any, error) {
			id, err := int64Arg(a, "taskId")
			if err != nil {
				return nil, err
			}
			if err := e.tasks.BumpInvokeCount(ctx, id, e.businessKey); err != nil {
				return nil, err
			}
			return "recorded", nil
		},
		tool.WithLogger(e.logger),
	)
}

// deleteTaskTool soft-deletes a task and removes it from the retrieval index.
// It is wrapped so every call first raises a confirmation interrupt.
func (e *Engine) deleteTaskTool() tool.Tool {
	type args struct {
		ID       int64  `json:"id" description:"Id of the task to delete"`
		TaskName string `json:"taskName" description:"Name of the task to delete"`
	}
	inner := tool.NewFunctionToolFromStruct(
		DeleteTaskToolName,
		"Permanently remove a saved query task.",
		args{},
		func(ctx context.Context, a map[string]any) (any, error) {
			id, err := int64Arg(a, "id")
			if err != nil {
				return nil, err
			}
			if err := e.tasks.SoftDelete(ctx, id, e.businessKey); err != nil {
				return nil, err
			}
			if e.retriever != nil {
				if err := e.retriever.Remove(ctx, id); err != nil {
					e.logger.Warn("workflow.retriever.remove_failed", "task_id", id, "error", err.Error())
				}
			}
			name, _ := a["taskName"].(string)
			return fmt.Sprintf("task %q deleted", name), nil
		},
		tool.WithLogger(e.logger),
	)
	describe := func(a map[string]any) string {
		name, _ := a["taskName"].(string)
		return fmt.Sprintf("Delete the task %q? This cannot be undone.", name)
	}
	return tool.WithConfirmation(inner, describe, core.DefaultResumeOptions())
}

func int64Arg(args map[string]any, key string) (int64, error) {
	switch v := args[key].(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case string:
		var id int64
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &id); err != nil {
			return 0, fmt.Errorf("argument %q is not a number: %q", key, v)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("argument %q is missing or not a number", key)
	}
}

func (e *Engine) registryFor(node Node, st *State) *tool.Registry {
	switch node {
	case NodeToolsForDelete, NodeDeleteTask:
		return e.deleteTools
	case NodeToolsForTask, NodeExecuteTask:
		// Test runs share the dispatch node with execute but were never
		// offered the execution-recording tool, so they must not resolve it.
		if st != nil && st.Intent == schema.IntentTestRun {
			return e.queryTools
		}
		return e.executeTools
	default:
		return e.queryTools
	}
}

// acquire marks the session busy; false means a turn is already running.
func (e *Engine) acquire(sessionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight[sessionID] {
		return false
	}
	e.inflight[sessionID] = true
	return true
}

func (e *Engine) release(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, sessionID)
}

// BusinessKey returns the tenant this engine serves.
func (e *Engine) BusinessKey() string { return e.businessKey }

// Stream starts a turn for the utterance and returns the event stream. An
// empty utterance produces a welcome turn. Events arrive strictly in graph
// order; the channel closes when the turn completes, suspends on an
// interrupt, or fails (the error channel then carries the failure).
func (e *Engine) Stream(ctx context.Context, sessionID, utterance string) (<-chan core.Event, <-chan error, error) {
	if !e.acquire(sessionID) {
		return nil, nil, ErrTurnInFlight
	}

	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		e.release(sessionID)
		return nil, nil, fmt.Errorf("loading session: %w", err)
	}
	st, err := loadState(sess)
	if err != nil {
		e.release(sessionID)
		return nil, nil, err
	}

	// A fresh question abandons any suspended tool call.
	if pos, err := loadPosition(sess); err != nil {
		e.release(sessionID)
		return nil, nil, err
	} else if pos != nil {
		action := ""
		if pos.Pending != nil {
			action = pos.Pending.Name
		}
		e.logger.Warn("workflow.interrupt.abandoned", "session_id", sessionID, "action", action)
		if err := e.sessions.ApplyDelta(ctx, sessionID, map[string]any{stateKeyPosition: nil}); err != nil {
			e.release(sessionID)
			return nil, nil, err
		}
		sess.ApplyStateDelta(map[string]any{stateKeyPosition: nil})
	}

	turnID := core.NewID()
	st.ToolRounds = 0
	st.PendingData = nil
	st.LastRunMsgID = ""

	if utterance != "" {
		userEv := core.NewUserMessageEvent(turnID, utterance)
		if err := e.sessions.AppendEvent(ctx, sessionID, userEv); err != nil {
			e.release(sessionID)
			return nil, nil, fmt.Errorf("recording user message: %w", err)
		}
		sess.AddEvent(userEv)
	}

	r := &turnRunner{
		e:         e,
		ctx:       ctx,
		sessionID: sessionID,
		turnID:    turnID,
		sess:      sess,
		st:        st,
		out:       make(chan core.Event, 64),
		errCh:     make(chan error, 1),
	}
	go r.run(NodeIntentClassifier)
	return r.out, r.errCh, nil
}

// StreamResume answers a pending interrupt and resumes the suspended turn,
// returning the remainder of its event stream. Resume types other than accept
// and cancel are protocol errors.
func (e *Engine) StreamResume(ctx context.Context, sessionID, resumeType string) (<-chan core.Event, <-chan error, error) {
	if resumeType != core.ResumeAccept && resumeType != core.ResumeCancel {
		return nil, nil, fmt.Errorf("%w: unknown resume type %q", ErrProtocol, resumeType)
	}
	if !e.acquire(sessionID) {
		return nil, nil, ErrTurnInFlight
	}

	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		e.release(sessionID)
		return nil, nil, fmt.Errorf("loading session: %w", err)
	}
	st, err := loadState(sess)
	if err != nil {
		e.release(sessionID)
		return nil, nil, err
	}
	pos, err := loadPosition(sess)
	if err != nil {
		e.release(sessionID)
		return nil, nil, err
	}
	if pos == nil || pos.Pending == nil {
		e.release(sessionID)
		return nil, nil, ErrNoPendingInterrupt
	}

	r := &turnRunner{
		e:         e,
		ctx:       ctx,
		sessionID: sessionID,
		turnID:    core.NewID(),
		sess:      sess,
		st:        st,
		out:       make(chan core.Event, 64),
		errCh:     make(chan error, 1),
	}
	go r.resume(pos, resumeType)
	return r.out, r.errCh, nil
}

// Ask runs a full turn synchronously and returns the assistant's final text.
// If the turn suspends on an interrupt, the interrupt's description is
// returned as the reply and the request is available via StateProperties or a
// subsequent Resume.
func (e *Engine) Ask(ctx context.Context, sessionID, utterance string) (string, error) {
	events, errCh, err := e.Stream(ctx, sessionID, utterance)
	if err != nil {
		return "", err
	}
	return drainText(events, errCh)
}

// Resume answers a pending interrupt synchronously. When the resumed turn
// raises another interrupt it is returned instead of text.
func (e *Engine) Resume(ctx context.Context, sessionID, resumeType string) (string, *core.InterruptRequest, error) {
	events, errCh, err := e.StreamResume(ctx, sessionID, resumeType)
	if err != nil {
		return "", nil, err
	}
	var interrupt *core.InterruptRequest
	var texts []string
	for ev := range events {
		if ev.Interrupt != nil {
			interrupt = ev.Interrupt
		}
		if !ev.IsPartial() && ev.Content != nil && ev.Content.Role == "assistant" {
			if text := ev.Text(); text != "" {
				texts = append(texts, text)
			}
		}
	}
	if err := <-errCh; err != nil {
		return "", nil, err
	}
	return strings.Join(texts, "\n"), interrupt, nil
}

func drainText(events <-chan core.Event, errCh <-chan error) (string, error) {
	var texts []string
	var interrupt *core.InterruptRequest
	for ev := range events {
		if ev.Interrupt != nil {
			interrupt = ev.Interrupt
		}
		if !ev.IsPartial() && ev.Content != nil && ev.Content.Role == "assistant" {
			if text := ev.Text(); text != "" {
				texts = append(texts, text)
			}
		}
	}
	if err := <-errCh; err != nil {
		return "", err
	}
	if len(texts) == 0 && interrupt != nil {
		return interrupt.Description, nil
	}
	return strings.Join(texts, "\n"), nil
}

// StateProperties returns the named workflow state properties for a session.
// The synthetic property "is_integrated" reports template completeness. An
// empty name list returns everything.
func (e *Engine) StateProperties(ctx context.Context, sessionID string, names []string) (map[string]any, error) {
	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	st, err := loadState(sess)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encoding state: %w", err)
	}
	all := map[string]any{}
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}
	all["is_integrated"] = st.TaskDetail.IsIntegrated()

	if pos, err := loadPosition(sess); err == nil && pos != nil && pos.Interrupt != nil {
		all["interrupt"] = pos.Interrupt
	}

	if len(names) == 0 {
		return all, nil
	}
	out := make(map[string]any, len(names))
	for _, name := range names {
		if v, ok := all[name]; ok {
			out[name] = v
		}
	}
	return out, nil
}

// FrequentTaskNames returns up to three recently executed task names merged
// with up to three frequently executed ones, recents first, without
// duplicates.
func (e *Engine) FrequentTaskNames(ctx context.Context) ([]string, error) {
	recent, err := e.tasks.RecentlyUsed(ctx, e.businessKey, 3)
	if err != nil {
		return nil, fmt.Errorf("listing recent tasks: %w", err)
	}
	var names []string
	var excludeIDs []int64
	for _, rec := range recent {
		names = append(names, rec.Name)
		excludeIDs = append(excludeIDs, rec.ID)
	}
	frequent, err := e.tasks.FrequentlyUsed(ctx, e.businessKey, excludeIDs, 3)
	if err != nil {
		return nil, fmt.Errorf("listing frequent tasks: %w", err)
	}
	for _, rec := range frequent {
		names = append(names, rec.Name)
	}
	return names, nil
}

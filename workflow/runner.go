package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/supbro-dev/Wagner-agent/core"
	"github.com/supbro-dev/Wagner-agent/model"
	"github.com/supbro-dev/Wagner-agent/schema"
	"github.com/supbro-dev/Wagner-agent/task"
	"github.com/supbro-dev/Wagner-agent/tool"
)

// turnRunner drives one turn of the workflow graph for one session. It owns
// the output channels and the in-memory copies of session and state; every
// mutation is written through the session store before the corresponding
// event is emitted, so a consumer never observes output ahead of persistence.
type turnRunner struct {
	e         *Engine
	ctx       context.Context
	sessionID string
	turnID    string
	sess      *core.Session
	st        *State
	out       chan core.Event
	errCh     chan error

	suspended bool
	lastEvent *core.Event         // final assistant event of the latest chat node
	lastCalls []core.FunctionCall // tool calls issued by that event
}

func (r *turnRunner) run(start Node) {
	defer r.finish()
	r.loop(start)
}

// resume answers a pending confirmation and continues the suspended turn.
// The position has already been validated by the engine.
func (r *turnRunner) resume(pos *Position, resumeType string) {
	defer r.finish()

	// The position is consumed regardless of outcome.
	delta := map[string]any{stateKeyPosition: nil}
	if err := r.e.sessions.ApplyDelta(r.ctx, r.sessionID, delta); err != nil {
		r.fail(pos.Node, fmt.Errorf("clearing position: %w", err))
		return
	}
	r.sess.ApplyStateDelta(delta)

	call := *pos.Pending
	var result any
	var callErr error
	if resumeType == core.ResumeAccept {
		result, callErr = r.executeAccepted(pos.Node, call)
	} else {
		result = tool.CancelledResult
	}
	ev := core.NewFunctionResponseEvent(r.turnID, string(pos.Node), call.ID, call.Name, result, callErr)
	ev.Node = string(pos.Node)
	if err := r.appendEvent(ev); err != nil {
		r.fail(pos.Node, err)
		return
	}

	if err := r.runCalls(pos.Node, pos.Remaining); err != nil {
		r.fail(pos.Node, err)
		return
	}
	if r.suspended {
		return
	}
	r.loop(afterToolDispatch(pos.Node, r.st))
}

// executeAccepted runs the confirmed call against the underlying tool,
// bypassing the confirmation guard, with the original arguments.
func (r *turnRunner) executeAccepted(node Node, call core.FunctionCall) (any, error) {
	reg := r.e.registryFor(node, r.st)
	t, ok := reg.Get(call.Name)
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", call.Name)
	}
	if guarded, ok := t.(*tool.ConfirmedTool); ok {
		t = guarded.Unwrap()
	}
	args, err := parseCallArguments(call.Arguments)
	if err != nil {
		return nil, err
	}
	return t.Call(r.ctx, args)
}

func (r *turnRunner) finish() {
	r.e.release(r.sessionID)
	close(r.out)
	close(r.errCh)
}

func (r *turnRunner) loop(start Node) {
	node := start
	for node != NodeEnd {
		if err := r.ctx.Err(); err != nil {
			r.fail(node, err)
			return
		}
		next, err := r.step(node)
		if err != nil {
			r.fail(node, err)
			return
		}
		if r.suspended {
			return
		}
		node = next
	}
	r.complete()
}

func (r *turnRunner) step(node Node) (Node, error) {
	switch node {
	case NodeIntentClassifier:
		return r.classifyIntent()
	case NodeFindTask:
		return r.findTask()
	case NodeFindTaskInStore:
		return r.findTaskInStore()
	case NodeSameNameOnCreate:
		return r.sameNameOnCreate()
	case NodeCreateTask:
		return r.createTask()
	case NodeEditTask:
		return r.editTask()
	case NodeHowToImprove:
		return r.chatTurn(node, howToImproveInstructions(r.e.systemPrompt, r.st), nil)
	case NodeDefaultReply:
		return r.defaultReply()
	case NodeQueryData:
		return r.chatTurn(node, queryInstructions(r.e.systemPrompt), r.e.queryTools)
	case NodeExecuteTask:
		return r.chatTurn(node, executeInstructions(r.e.systemPrompt, r.st, RecordExecutionToolName), r.e.executeTools)
	case NodeTestRunTask:
		return r.chatTurn(node, testRunInstructions(r.e.systemPrompt, r.st), r.e.queryTools)
	case NodeDeleteTask:
		return r.chatTurn(node, deleteInstructions(r.e.systemPrompt, r.st), r.e.deleteTools)
	case NodeSaveTask:
		return r.saveTask()
	case NodeConvertFormat:
		return r.convertFormat()
	case NodeToolsForTask, NodeToolsForQuery, NodeToolsForDelete:
		return r.dispatchTools(node)
	default:
		return NodeEnd, fmt.Errorf("%w: unknown node %q", ErrProtocol, node)
	}
}

// classifyIntent decides what the user wants from the conversation so far.
// A turn with no user message yet (the welcome turn) is a default reply. Task
// scoped intents whose payload names neither a task nor an id are downgraded,
// so the model can never route the graph into a lookup it cannot perform.
func (r *turnRunner) classifyIntent() (Node, error) {
	contents := r.contents()
	if !hasUserContent(contents) {
		r.st.Intent = schema.IntentDefault
	} else {
		var intent schema.Intent
		if err := r.e.decoder.Decode(r.ctx, intentInstructions(r.e.systemPrompt), contents, &intent); err != nil {
			r.e.logger.Warn("workflow.intent.decode_failed", "session_id", r.sessionID, "error", err.Error())
			intent = schema.Intent{IntentType: schema.IntentDefault}
		}
		if !schema.KnownIntent(intent.IntentType) {
			intent.IntentType = schema.IntentDefault
		}
		// A task scoped label is only actionable when the payload itself
		// names or identifies the task; the session remembering one from an
		// earlier turn is not enough.
		if schema.TaskScoped(intent.IntentType) && intent.TaskName == "" && intent.TaskID == "" {
			intent.IntentType = schema.IntentDefault
		}

		// Naming a different task while creating or editing abandons the
		// task being worked on.
		switching := intent.IntentType == schema.IntentCreate || intent.IntentType == schema.IntentEdit
		if switching && intent.TaskName != "" && r.st.TaskName != "" && intent.TaskName != r.st.TaskName {
			r.st.ResetTaskContext()
		}
		if intent.TaskName != "" {
			r.st.TaskName = intent.TaskName
		}
		if intent.TaskID != "" {
			if id, err := strconv.ParseInt(strings.TrimSpace(intent.TaskID), 10, 64); err == nil && id > 0 {
				r.st.TaskID = id
			}
		}
		r.st.Intent = intent.IntentType
	}

	if err := r.persistState(); err != nil {
		return NodeEnd, err
	}
	r.emitStep(NodeIntentClassifier, map[string]any{
		"intent":   r.st.Intent,
		"taskId":   r.st.TaskID,
		"taskName": r.st.TaskName,
	})
	return afterIntentClassifier(r.st), nil
}

// findTask performs the exact lookup, by id when the user gave one, by name
// otherwise. A miss is a routing outcome, not an error.
func (r *turnRunner) findTask() (Node, error) {
	var rec *task.Record
	var err error
	switch {
	case r.st.TaskID != 0:
		rec, err = r.e.tasks.FindByID(r.ctx, r.st.TaskID)
		if err == nil && rec.BusinessKey != r.e.businessKey {
			rec, err = nil, task.ErrNotFound
		}
	case r.st.TaskName != "":
		rec, err = r.e.tasks.FindByName(r.ctx, r.e.businessKey, r.st.TaskName)
	default:
		err = task.ErrNotFound
	}
	switch {
	case err == nil:
		r.adoptRecord(rec)
	case errors.Is(err, task.ErrNotFound):
		r.st.TaskFound = false
	default:
		return NodeEnd, fmt.Errorf("looking up task: %w", err)
	}

	if err := r.persistState(); err != nil {
		return NodeEnd, err
	}
	r.emitStep(NodeFindTask, map[string]any{
		"found":    r.st.TaskFound,
		"taskId":   r.st.TaskID,
		"taskName": r.st.TaskName,
	})
	return afterFindTask(r.st), nil
}

// findTaskInStore falls back to the fuzzy retrieval index. Index failures
// degrade to a miss; the graph then proceeds to task creation.
func (r *turnRunner) findTaskInStore() (Node, error) {
	r.st.TaskFound = false
	var candidates []string
	if r.e.retriever != nil && r.st.TaskName != "" {
		hits, err := r.e.retriever.Search(r.ctx, r.st.TaskName, r.e.topK)
		if err != nil {
			r.e.logger.Warn("workflow.retriever.search_failed", "session_id", r.sessionID, "error", err.Error())
		} else if len(hits) > 0 {
			best := hits[0]
			detail := best.Detail
			r.st.TaskID = best.ID
			r.st.TaskName = best.Name
			r.st.TaskDetail = &detail
			r.st.TaskFound = true
			r.st.FirstTimeCreate = false
			for _, h := range hits {
				candidates = append(candidates, h.Name)
			}
		}
	}

	if err := r.persistState(); err != nil {
		return NodeEnd, err
	}
	r.emitStep(NodeFindTaskInStore, map[string]any{
		"found":      r.st.TaskFound,
		"taskName":   r.st.TaskName,
		"candidates": candidates,
	})
	return afterFindTaskInStore(r.st), nil
}

func (r *turnRunner) sameNameOnCreate() (Node, error) {
	msg := fmt.Sprintf(
		"A task named %q already exists (id %d). You can execute it, edit it, or pick a different name for the new task.",
		r.st.TaskName, r.st.TaskID)
	ev := core.NewMessageEvent(r.turnID, "assistant", msg)
	ev.Node = string(NodeSameNameOnCreate)
	if err := r.appendEvent(ev); err != nil {
		return NodeEnd, err
	}
	return NodeEnd, nil
}

// createTask extracts template fields from the conversation and merges them
// into the task being built. The first pass keeps the empty template: the
// naming utterance carries no field values yet, and decoding it anyway would
// invite hallucinated fields.
func (r *turnRunner) createTask() (Node, error) {
	if r.st.FirstTimeCreate {
		r.st.FirstTimeCreate = false
		if r.st.TaskDetail == nil {
			r.st.TaskDetail = &task.Detail{}
		}
		if err := r.persistState(); err != nil {
			return NodeEnd, err
		}
		r.emitStep(NodeCreateTask, map[string]any{"taskDetail": *r.st.TaskDetail, "firstPass": true})
		return NodeHowToImprove, nil
	}

	patch, err := r.extractTemplate()
	if err != nil {
		return NodeEnd, err
	}
	base := task.Detail{}
	if r.st.TaskDetail != nil {
		base = *r.st.TaskDetail
	}
	merged := base.Merge(patch)
	r.st.TaskDetail = &merged

	if err := r.persistState(); err != nil {
		return NodeEnd, err
	}
	r.emitStep(NodeCreateTask, map[string]any{"taskDetail": merged})
	return NodeHowToImprove, nil
}

// editTask applies template changes to the current task without persisting
// them; the user has to save explicitly.
func (r *turnRunner) editTask() (Node, error) {
	patch, err := r.extractTemplate()
	if err != nil {
		return NodeEnd, err
	}
	base := task.Detail{}
	if r.st.TaskDetail != nil {
		base = *r.st.TaskDetail
	}
	merged := base.Merge(patch)
	changed := !merged.Equal(r.st.TaskDetail)
	r.st.TaskDetail = &merged

	if err := r.persistState(); err != nil {
		return NodeEnd, err
	}
	r.emitStep(NodeEditTask, map[string]any{"taskDetail": merged, "changed": changed})
	return NodeHowToImprove, nil
}

func (r *turnRunner) extractTemplate() (task.Detail, error) {
	var tpl schema.TaskTemplate
	instructions := templateInstructions(r.e.systemPrompt, r.st.TaskDetail)
	if err := r.e.decoder.Decode(r.ctx, instructions, r.contents(), &tpl); err != nil {
		return task.Detail{}, fmt.Errorf("extracting task template: %w", err)
	}
	return task.Detail{
		Target:        tpl.Target,
		QueryParam:    tpl.QueryParam,
		DataOperation: tpl.DataOperation,
		DataFormat:    tpl.DataFormat,
	}, nil
}

// defaultReply answers off-domain turns. It enriches the instructions with
// the user's frequent tasks and recalled memories, and records the exchange
// afterwards. All enrichment is best effort.
func (r *turnRunner) defaultReply() (Node, error) {
	frequent, err := r.e.FrequentTaskNames(r.ctx)
	if err != nil {
		r.e.logger.Warn("workflow.frequent_tasks_failed", "session_id", r.sessionID, "error", err.Error())
		frequent = nil
	}

	userText := lastUserText(r.sess.GetConversationHistory())
	var memories []string
	if r.e.memory != nil && userText != "" {
		records, err := r.e.memory.Search(r.ctx, userText, r.memoryScope())
		if err != nil {
			r.e.logger.Warn("workflow.memory.search_failed", "session_id", r.sessionID, "error", err.Error())
		}
		for _, rec := range records {
			memories = append(memories, rec.Content)
		}
	}

	next, err := r.chatTurn(NodeDefaultReply, defaultInstructions(r.e.systemPrompt, frequent, memories), nil)
	if err != nil {
		return next, err
	}

	if r.e.memory != nil && userText != "" && r.lastEvent != nil {
		interaction := fmt.Sprintf("user: %s\nassistant: %s", userText, r.lastEvent.Text())
		if err := r.e.memory.Record(r.ctx, interaction, r.memoryScope()); err != nil {
			r.e.logger.Warn("workflow.memory.record_failed", "session_id", r.sessionID, "error", err.Error())
		}
	}
	return next, nil
}

// saveTask persists the integrated template. Saving an already saved task
// updates it in place, so repeating "save" is harmless.
func (r *turnRunner) saveTask() (Node, error) {
	if !r.st.TaskDetail.IsIntegrated() {
		return NodeHowToImprove, nil
	}
	if r.st.TaskName == "" {
		ev := core.NewMessageEvent(r.turnID, "assistant",
			"The task needs a name before it can be saved. What should it be called?")
		ev.Node = string(NodeSaveTask)
		if err := r.appendEvent(ev); err != nil {
			return NodeEnd, err
		}
		return NodeEnd, nil
	}

	rec := &task.Record{
		ID:          r.st.TaskID,
		BusinessKey: r.e.businessKey,
		Name:        r.st.TaskName,
		Detail:      *r.st.TaskDetail,
	}
	id, err := r.e.tasks.Save(r.ctx, rec)
	if err != nil {
		return NodeEnd, fmt.Errorf("saving task: %w", err)
	}
	r.st.TaskID = id
	r.st.Intent = schema.IntentEdit
	if err := r.persistState(); err != nil {
		return NodeEnd, err
	}

	if r.e.retriever != nil {
		rec.ID = id
		if err := r.e.retriever.Index(r.ctx, rec); err != nil {
			r.e.logger.Warn("workflow.retriever.index_failed", "task_id", id, "error", err.Error())
		}
	}

	ev := core.NewMessageEvent(r.turnID, "assistant",
		fmt.Sprintf("Task %q saved (id %d). You can execute it any time.", r.st.TaskName, id))
	ev.Node = string(NodeSaveTask)
	if err := r.appendEvent(ev); err != nil {
		return NodeEnd, err
	}
	return NodeEnd, nil
}

// convertFormat renders the latest execution reply into the task's declared
// data format. Conversion failures never fail the turn: the textual reply
// has already been delivered.
func (r *turnRunner) convertFormat() (Node, error) {
	if r.lastEvent == nil || r.lastEvent.Text() == "" {
		return NodeEnd, nil
	}
	var format string
	if r.st.TaskDetail != nil && r.st.TaskDetail.DataFormat != nil {
		format = *r.st.TaskDetail.DataFormat
	}
	if format != schema.FormatTable && format != schema.FormatLineChart {
		return NodeEnd, nil
	}

	contents := []core.Content{{
		Role:  "user",
		Parts: []core.Part{core.TextPart{Text: r.lastEvent.Text()}},
	}}
	var payload any
	var decodeErr error
	switch format {
	case schema.FormatLineChart:
		var chart schema.LineChart
		decodeErr = r.e.decoder.Decode(r.ctx, convertInstructions(format), contents, &chart)
		payload = chart
	default:
		var table schema.Table
		decodeErr = r.e.decoder.Decode(r.ctx, convertInstructions(format), contents, &table)
		payload = table
	}
	if decodeErr != nil {
		r.e.logger.Warn("workflow.convert_format_failed", "session_id", r.sessionID, "format", format, "error", decodeErr.Error())
		return NodeEnd, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return NodeEnd, fmt.Errorf("encoding formatted data: %w", err)
	}
	r.st.PendingData = &PendingData{Format: format, Payload: raw}
	r.st.LastRunMsgID = r.lastEvent.ID
	if err := r.persistState(); err != nil {
		return NodeEnd, err
	}
	r.emitStep(NodeConvertFormat, map[string]any{
		"format": format,
		"msgId":  r.lastEvent.ID,
		"data":   json.RawMessage(raw),
	})
	return NodeEnd, nil
}

// dispatchTools executes the calls issued by the preceding chat node, one
// round per visit, and returns control to that node.
func (r *turnRunner) dispatchTools(node Node) (Node, error) {
	r.st.ToolRounds++
	if r.st.ToolRounds > r.e.maxToolRounds {
		return NodeEnd, fmt.Errorf("%w: %d rounds", ErrToolRoundsExceeded, r.st.ToolRounds)
	}
	if err := r.persistState(); err != nil {
		return NodeEnd, err
	}
	if err := r.runCalls(node, r.lastCalls); err != nil {
		return NodeEnd, err
	}
	if r.suspended {
		return NodeEnd, nil
	}
	return afterToolDispatch(node, r.st), nil
}

// runCalls executes function calls in order. A confirmation interrupt
// suspends the turn with the pending call and the calls still queued behind
// it; tool failures are recorded as responses and the turn continues.
func (r *turnRunner) runCalls(node Node, calls []core.FunctionCall) error {
	reg := r.e.registryFor(node, r.st)
	for i, call := range calls {
		args, err := parseCallArguments(call.Arguments)
		if err != nil {
			if err := r.appendCallResponse(node, call, nil, err); err != nil {
				return err
			}
			continue
		}

		t, ok := reg.Get(call.Name)
		if !ok {
			err := fmt.Errorf("unknown tool %q", call.Name)
			if err := r.appendCallResponse(node, call, nil, err); err != nil {
				return err
			}
			continue
		}

		result, callErr := t.Call(r.ctx, args)
		var interrupt *tool.InterruptError
		if errors.As(callErr, &interrupt) {
			pending := call
			return r.suspend(&Position{
				Node:      node,
				Pending:   &pending,
				Remaining: calls[i+1:],
				Interrupt: &interrupt.Request,
			})
		}
		if err := r.appendCallResponse(node, call, result, callErr); err != nil {
			return err
		}
	}
	return nil
}

func (r *turnRunner) appendCallResponse(node Node, call core.FunctionCall, result any, callErr error) error {
	ev := core.NewFunctionResponseEvent(r.turnID, string(node), call.ID, call.Name, result, callErr)
	ev.Node = string(node)
	return r.appendEvent(ev)
}

// suspend persists the position and state, announces the interrupt, and
// stops the turn without completing it.
func (r *turnRunner) suspend(pos *Position) error {
	stateText, err := marshalState(r.st)
	if err != nil {
		return err
	}
	posText, err := marshalPosition(pos)
	if err != nil {
		return err
	}
	delta := map[string]any{stateKeyState: stateText, stateKeyPosition: posText}
	if err := r.e.sessions.ApplyDelta(r.ctx, r.sessionID, delta); err != nil {
		return fmt.Errorf("persisting position: %w", err)
	}
	r.sess.ApplyStateDelta(delta)

	ev := core.NewInterruptEvent(r.turnID, string(pos.Node), *pos.Interrupt)
	if err := r.appendEvent(ev); err != nil {
		return err
	}
	r.suspended = true
	return nil
}

// chatTurn runs one streaming model turn for a chat node and routes on the
// resulting assistant message.
func (r *turnRunner) chatTurn(node Node, instructions string, reg *tool.Registry) (Node, error) {
	var tools []model.ToolDefinition
	if reg != nil {
		tools = reg.Definitions()
	}
	ev, err := r.modelTurn(node, instructions, tools)
	if err != nil {
		return NodeEnd, err
	}
	r.lastEvent = ev
	r.lastCalls = ev.GetFunctionCalls()
	return afterChatTurn(node, ev)
}

// modelTurn streams one model response. Partial chunks share the final
// event's id so clients can assemble them into one message; only the final
// event is persisted.
func (r *turnRunner) modelTurn(node Node, instructions string, tools []model.ToolDefinition) (*core.Event, error) {
	req := model.Request{
		Instructions: instructions,
		Contents:     r.contents(),
		Tools:        tools,
		Stream:       true,
	}
	respCh, errCh := r.e.model.Generate(r.ctx, req)

	msgID := core.NewID()
	var final *core.Event
	for resp := range respCh {
		content := resp.Content
		ev := core.NewEvent(r.turnID, "assistant")
		ev.ID = msgID
		ev.Node = string(node)
		ev.Content = &content
		if resp.Partial {
			partial := true
			ev.Partial = &partial
			r.emit(ev)
			continue
		}
		final = &ev
	}
	if err := <-errCh; err != nil {
		return nil, fmt.Errorf("model turn at %s: %w", node, err)
	}
	if final == nil {
		return nil, fmt.Errorf("model turn at %s: stream ended without a final response", node)
	}
	if err := r.appendEvent(*final); err != nil {
		return nil, err
	}
	return final, nil
}

func (r *turnRunner) adoptRecord(rec *task.Record) {
	detail := rec.Detail
	r.st.TaskID = rec.ID
	r.st.TaskName = rec.Name
	r.st.TaskDetail = &detail
	r.st.TaskFound = true
	r.st.FirstTimeCreate = false
}

// persistState writes the workflow state through the session store and into
// the in-memory session.
func (r *turnRunner) persistState() error {
	text, err := marshalState(r.st)
	if err != nil {
		return err
	}
	delta := map[string]any{stateKeyState: text}
	if err := r.e.sessions.ApplyDelta(r.ctx, r.sessionID, delta); err != nil {
		return fmt.Errorf("persisting state: %w", err)
	}
	r.sess.ApplyStateDelta(delta)
	return nil
}

// appendEvent persists an event and only then emits it.
func (r *turnRunner) appendEvent(ev core.Event) error {
	if err := r.e.sessions.AppendEvent(r.ctx, r.sessionID, ev); err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	r.sess.AddEvent(ev)
	r.emit(ev)
	return nil
}

func (r *turnRunner) emitStep(node Node, result map[string]any) {
	r.emit(core.NewStepEvent(r.turnID, string(node), result))
}

func (r *turnRunner) emit(ev core.Event) {
	select {
	case r.out <- ev:
	case <-r.ctx.Done():
	}
}

func (r *turnRunner) complete() {
	ev := core.NewEvent(r.turnID, "workflow")
	done := true
	ev.TurnComplete = &done
	r.emit(ev)
}

func (r *turnRunner) fail(node Node, err error) {
	code := "INTERNAL_ERROR"
	switch {
	case errors.Is(err, ErrProtocol):
		code = "PROTOCOL_ERROR"
	case errors.Is(err, ErrToolRoundsExceeded):
		code = "TOOL_ROUNDS_EXCEEDED"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = "CANCELLED"
	}
	r.e.logger.Error("workflow.turn_failed", "session_id", r.sessionID, "node", string(node), "error", err.Error())
	r.emit(core.NewErrorEvent(r.turnID, string(node), code, err.Error()))
	r.errCh <- err
}

func (r *turnRunner) contents() []core.Content {
	events := r.sess.GetConversationHistory()
	out := make([]core.Content, 0, len(events))
	for _, ev := range events {
		if ev.Content != nil {
			out = append(out, *ev.Content)
		}
	}
	return out
}

func (r *turnRunner) memoryScope() string {
	return r.e.businessKey + ":" + r.sessionID
}

func parseCallArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("malformed tool arguments: %w", err)
	}
	return args, nil
}

func hasUserContent(contents []core.Content) bool {
	for _, c := range contents {
		if c.Role == "user" {
			return true
		}
	}
	return false
}

func lastUserText(events []core.Event) string {
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Content != nil && ev.Content.Role == "user" {
			if text := ev.Text(); text != "" {
				return text
			}
		}
	}
	return ""
}

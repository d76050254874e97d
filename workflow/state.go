// Package workflow implements the conversational state machine that drives a
// data analyst agent: intent classification, task lifecycle (find, create,
// edit, delete, save, execute, test-run), tool dispatch with human
// confirmation interrupts, and a multiplexed streaming event output.
package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/supbro-dev/Wagner-agent/core"
	"github.com/supbro-dev/Wagner-agent/task"
)

// Node identifies one station of the workflow graph.
type Node string

const (
	// NodeIntentClassifier decides what the user wants from the latest turn.
	NodeIntentClassifier Node = "intent_classifier"
	// NodeFindTask looks the task up by id or exact name.
	NodeFindTask Node = "find_task"
	// NodeFindTaskInStore falls back to fuzzy lookup in the retrieval index.
	NodeFindTaskInStore Node = "find_task_in_store"
	// NodeSameNameOnCreate tells the user a task with that name already exists.
	NodeSameNameOnCreate Node = "same_name_on_create"
	// NodeCreateTask extracts template fields for a task being created.
	NodeCreateTask Node = "create_task"
	// NodeEditTask extracts template changes for an existing task.
	NodeEditTask Node = "edit_task"
	// NodeDeleteTask runs the model turn that may request guarded deletion.
	NodeDeleteTask Node = "delete_task"
	// NodeExecuteTask runs a saved task with the business tools.
	NodeExecuteTask Node = "execute_task"
	// NodeTestRunTask runs an unsaved template without bumping counters.
	NodeTestRunTask Node = "test_run_task"
	// NodeQueryData answers ad-hoc data questions with the business tools.
	NodeQueryData Node = "query_data"
	// NodeHowToImprove reports template completeness and what is still missing.
	NodeHowToImprove Node = "how_to_improve_task"
	// NodeSaveTask persists an integrated template.
	NodeSaveTask Node = "save_task"
	// NodeDefaultReply handles greetings and anything outside the task domain.
	NodeDefaultReply Node = "default_reply"
	// NodeConvertFormat renders execution output into the declared data format.
	NodeConvertFormat Node = "convert_format"
	// NodeToolsForTask executes tool calls issued during execute / test-run.
	NodeToolsForTask Node = "tools_for_task"
	// NodeToolsForQuery executes tool calls issued during ad-hoc queries.
	NodeToolsForQuery Node = "tools_for_query_data"
	// NodeToolsForDelete executes the confirmation-guarded delete calls.
	NodeToolsForDelete Node = "tools_for_delete_task"
	// NodeEnd terminates the turn.
	NodeEnd Node = "end"
)

// State is the workflow's task-scoped conversation state. It is serialized
// into session state after every mutating step, so a turn can be resumed by
// any process holding the session.
type State struct {
	Intent          string       `json:"intent,omitempty"`
	TaskID          int64        `json:"taskId,omitempty"`
	TaskName        string       `json:"taskName,omitempty"`
	TaskDetail      *task.Detail `json:"taskDetail,omitempty"`
	TaskFound       bool         `json:"taskFound,omitempty"`
	FirstTimeCreate bool         `json:"firstTimeCreate"`
	ToolRounds      int          `json:"toolRounds,omitempty"`
	LastRunMsgID    string       `json:"lastRunMsgId,omitempty"`
	PendingData     *PendingData `json:"pendingData,omitempty"`
}

// PendingData is the formatted result of the most recent execution or test
// run, kept until the client fetches it.
type PendingData struct {
	Format  string          `json:"format"`
	Payload json.RawMessage `json:"payload"`
}

// NewState returns the state of a fresh session.
func NewState() *State {
	return &State{FirstTimeCreate: true}
}

// ResetTaskContext drops everything tied to the current task. Called when the
// conversation switches to a different task name.
func (s *State) ResetTaskContext() {
	s.TaskID = 0
	s.TaskName = ""
	s.TaskDetail = nil
	s.TaskFound = false
	s.FirstTimeCreate = true
	s.LastRunMsgID = ""
	s.PendingData = nil
}

// Position records where a suspended turn stopped: the tool-dispatch node,
// the call awaiting confirmation, and the calls still queued behind it.
type Position struct {
	Node      Node                   `json:"node"`
	Pending   *core.FunctionCall     `json:"pending,omitempty"`
	Remaining []core.FunctionCall    `json:"remaining,omitempty"`
	Interrupt *core.InterruptRequest `json:"interrupt,omitempty"`
}

// Session state keys holding the serialized workflow state and position.
const (
	stateKeyState    = "workflow_state"
	stateKeyPosition = "workflow_position"
)

func loadState(sess *core.Session) (*State, error) {
	raw, ok := sess.GetState(stateKeyState)
	if !ok {
		return NewState(), nil
	}
	text, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: session state has unexpected type %T", ErrProtocol, raw)
	}
	var st State
	if err := json.Unmarshal([]byte(text), &st); err != nil {
		return nil, fmt.Errorf("%w: decoding session state: %v", ErrProtocol, err)
	}
	return &st, nil
}

func marshalState(st *State) (string, error) {
	raw, err := json.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("encoding workflow state: %w", err)
	}
	return string(raw), nil
}

func loadPosition(sess *core.Session) (*Position, error) {
	raw, ok := sess.GetState(stateKeyPosition)
	if !ok {
		return nil, nil
	}
	text, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: session position has unexpected type %T", ErrProtocol, raw)
	}
	var pos Position
	if err := json.Unmarshal([]byte(text), &pos); err != nil {
		return nil, fmt.Errorf("%w: decoding session position: %v", ErrProtocol, err)
	}
	return &pos, nil
}

func marshalPosition(pos *Position) (string, error) {
	raw, err := json.Marshal(pos)
	if err != nil {
		return "", fmt.Errorf("encoding workflow position: %w", err)
	}
	return string(raw), nil
}

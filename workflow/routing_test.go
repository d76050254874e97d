package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/supbro-dev/Wagner-agent/core"
	"github.com/supbro-dev/Wagner-agent/schema"
	"github.com/supbro-dev/Wagner-agent/task"
)

func integratedDetail() *task.Detail {
	return &task.Detail{
		Target:        task.Ptr("daily orders"),
		QueryParam:    task.Ptr("last 7 days"),
		DataOperation: task.Ptr("count per day"),
		DataFormat:    task.Ptr(task.FormatTable),
	}
}

func TestAfterIntentClassifier(t *testing.T) {
	tests := []struct {
		name string
		st   *State
		want Node
	}{
		{name: "default", st: &State{Intent: schema.IntentDefault}, want: NodeDefaultReply},
		{name: "query data", st: &State{Intent: schema.IntentQueryData}, want: NodeQueryData},
		{name: "others also answered ad hoc", st: &State{Intent: schema.IntentOthers}, want: NodeQueryData},
		{name: "create resolves first", st: &State{Intent: schema.IntentCreate}, want: NodeFindTask},
		{name: "execute resolves first", st: &State{Intent: schema.IntentExecute}, want: NodeFindTask},
		{name: "edit resolves first", st: &State{Intent: schema.IntentEdit}, want: NodeFindTask},
		{name: "delete resolves first", st: &State{Intent: schema.IntentDelete}, want: NodeFindTask},
		{name: "test run resolves first", st: &State{Intent: schema.IntentTestRun}, want: NodeFindTask},
		{
			name: "save with complete template persists",
			st:   &State{Intent: schema.IntentSave, TaskDetail: integratedDetail()},
			want: NodeSaveTask,
		},
		{
			name: "save with incomplete template reports whats missing",
			st:   &State{Intent: schema.IntentSave, TaskDetail: &task.Detail{Target: task.Ptr("x")}},
			want: NodeHowToImprove,
		},
		{
			name: "save with no template reports whats missing",
			st:   &State{Intent: schema.IntentSave},
			want: NodeHowToImprove,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, afterIntentClassifier(tt.st))
		})
	}
}

func TestAfterFindTask(t *testing.T) {
	tests := []struct {
		name   string
		intent string
		found  bool
		want   Node
	}{
		{name: "create miss goes straight to creation", intent: schema.IntentCreate, found: false, want: NodeCreateTask},
		{name: "execute miss tries fuzzy lookup", intent: schema.IntentExecute, found: false, want: NodeFindTaskInStore},
		{name: "delete miss tries fuzzy lookup", intent: schema.IntentDelete, found: false, want: NodeFindTaskInStore},
		{name: "create hit reports duplicate name", intent: schema.IntentCreate, found: true, want: NodeSameNameOnCreate},
		{name: "execute hit", intent: schema.IntentExecute, found: true, want: NodeExecuteTask},
		{name: "test run hit", intent: schema.IntentTestRun, found: true, want: NodeTestRunTask},
		{name: "edit hit", intent: schema.IntentEdit, found: true, want: NodeEditTask},
		{name: "delete hit", intent: schema.IntentDelete, found: true, want: NodeDeleteTask},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &State{Intent: tt.intent, TaskFound: tt.found}
			assert.Equal(t, tt.want, afterFindTask(st))
		})
	}
}

func TestAfterFindTaskInStore(t *testing.T) {
	// Fuzzy miss always enters the creation path.
	st := &State{Intent: schema.IntentExecute, TaskFound: false}
	assert.Equal(t, NodeCreateTask, afterFindTaskInStore(st))

	// Fuzzy hit dispatches by intent like an exact hit.
	st = &State{Intent: schema.IntentExecute, TaskFound: true}
	assert.Equal(t, NodeExecuteTask, afterFindTaskInStore(st))
	st = &State{Intent: schema.IntentEdit, TaskFound: true}
	assert.Equal(t, NodeEditTask, afterFindTaskInStore(st))
	st = &State{Intent: schema.IntentCreate, TaskFound: true}
	assert.Equal(t, NodeSameNameOnCreate, afterFindTaskInStore(st))
}

func assistantMessage(text string) *core.Event {
	ev := core.NewMessageEvent("turn", "assistant", text)
	return &ev
}

func assistantToolCall(name string) *core.Event {
	ev := core.NewFunctionCallsEvent("turn", "assistant", []core.FunctionCall{{ID: "c1", Name: name}})
	return &ev
}

func TestAfterChatTurn(t *testing.T) {
	tests := []struct {
		name string
		node Node
		last *core.Event
		want Node
	}{
		{name: "execute with calls dispatches", node: NodeExecuteTask, last: assistantToolCall("order_stats"), want: NodeToolsForTask},
		{name: "execute without calls converts format", node: NodeExecuteTask, last: assistantMessage("here are your results"), want: NodeConvertFormat},
		{name: "test run with calls dispatches", node: NodeTestRunTask, last: assistantToolCall("order_stats"), want: NodeToolsForTask},
		{name: "test run without calls converts format", node: NodeTestRunTask, last: assistantMessage("done"), want: NodeConvertFormat},
		{name: "query with calls dispatches", node: NodeQueryData, last: assistantToolCall("order_stats"), want: NodeToolsForQuery},
		{name: "query without calls ends", node: NodeQueryData, last: assistantMessage("42"), want: NodeEnd},
		{name: "delete with calls dispatches", node: NodeDeleteTask, last: assistantToolCall("delete_task"), want: NodeToolsForDelete},
		{name: "delete without calls ends", node: NodeDeleteTask, last: assistantMessage("which task?"), want: NodeEnd},
		{name: "plain chat ends", node: NodeDefaultReply, last: assistantMessage("hello"), want: NodeEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := afterChatTurn(tt.node, tt.last)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAfterChatTurn_NonAssistantIsProtocolError(t *testing.T) {
	userEv := core.NewUserMessageEvent("turn", "hi")

	_, err := afterChatTurn(NodeQueryData, &userEv)
	assert.ErrorIs(t, err, ErrProtocol)

	_, err = afterChatTurn(NodeQueryData, nil)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestAfterToolDispatch(t *testing.T) {
	assert.Equal(t, NodeExecuteTask, afterToolDispatch(NodeToolsForTask, &State{Intent: schema.IntentExecute}))
	assert.Equal(t, NodeTestRunTask, afterToolDispatch(NodeToolsForTask, &State{Intent: schema.IntentTestRun}))
	assert.Equal(t, NodeQueryData, afterToolDispatch(NodeToolsForQuery, &State{}))
	assert.Equal(t, NodeDeleteTask, afterToolDispatch(NodeToolsForDelete, &State{}))
}

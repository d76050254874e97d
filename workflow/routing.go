package workflow

import (
	"fmt"

	"github.com/supbro-dev/Wagner-agent/core"
	"github.com/supbro-dev/Wagner-agent/schema"
)

// Routing is kept in pure functions over State (plus the last event where
// tool calls matter) so every edge of the graph is unit-testable without a
// model or a store.

// afterIntentClassifier picks the first station for the classified intent.
// An incomplete template turns a save attempt into a completeness report
// instead of a persistence attempt.
func afterIntentClassifier(st *State) Node {
	switch st.Intent {
	case schema.IntentDefault:
		return NodeDefaultReply
	case schema.IntentQueryData, schema.IntentOthers:
		return NodeQueryData
	case schema.IntentCreate, schema.IntentExecute, schema.IntentEdit,
		schema.IntentDelete, schema.IntentTestRun:
		return NodeFindTask
	case schema.IntentSave:
		if st.TaskDetail.IsIntegrated() {
			return NodeSaveTask
		}
		return NodeHowToImprove
	default:
		return NodeDefaultReply
	}
}

// afterFindTask routes on the result of the exact lookup. A hit dispatches by
// intent; a miss for create goes straight to creation, any other miss tries
// the fuzzy index first.
func afterFindTask(st *State) Node {
	if !st.TaskFound {
		if st.Intent == schema.IntentCreate {
			return NodeCreateTask
		}
		return NodeFindTaskInStore
	}
	switch st.Intent {
	case schema.IntentCreate:
		return NodeSameNameOnCreate
	case schema.IntentExecute:
		return NodeExecuteTask
	case schema.IntentTestRun:
		return NodeTestRunTask
	case schema.IntentEdit:
		return NodeEditTask
	case schema.IntentDelete:
		return NodeDeleteTask
	default:
		return NodeEnd
	}
}

// afterFindTaskInStore routes on the fuzzy lookup. When neither lookup
// succeeds the graph proceeds to task creation.
func afterFindTaskInStore(st *State) Node {
	if !st.TaskFound {
		return NodeCreateTask
	}
	switch st.Intent {
	case schema.IntentCreate:
		return NodeSameNameOnCreate
	case schema.IntentExecute:
		return NodeExecuteTask
	case schema.IntentTestRun:
		return NodeTestRunTask
	case schema.IntentEdit:
		return NodeEditTask
	case schema.IntentDelete:
		return NodeDeleteTask
	default:
		return NodeEnd
	}
}

// afterChatTurn inspects the assistant message that ended a chat node. Tool
// calls route to the matching dispatch node; a plain answer either proceeds
// to format conversion (execute / test-run) or ends the turn.
func afterChatTurn(node Node, last *core.Event) (Node, error) {
	if last == nil || last.Content == nil || last.Content.Role != "assistant" {
		return NodeEnd, fmt.Errorf("%w: expected assistant message after %s", ErrProtocol, node)
	}
	hasCalls := len(last.GetFunctionCalls()) > 0

	switch node {
	case NodeExecuteTask, NodeTestRunTask:
		if hasCalls {
			return NodeToolsForTask, nil
		}
		return NodeConvertFormat, nil
	case NodeQueryData:
		if hasCalls {
			return NodeToolsForQuery, nil
		}
		return NodeEnd, nil
	case NodeDeleteTask:
		if hasCalls {
			return NodeToolsForDelete, nil
		}
		return NodeEnd, nil
	default:
		return NodeEnd, nil
	}
}

// afterToolDispatch returns control to the chat node that issued the calls.
func afterToolDispatch(node Node, st *State) Node {
	switch node {
	case NodeToolsForTask:
		if st.Intent == schema.IntentTestRun {
			return NodeTestRunTask
		}
		return NodeExecuteTask
	case NodeToolsForQuery:
		return NodeQueryData
	case NodeToolsForDelete:
		return NodeDeleteTask
	default:
		return NodeEnd
	}
}

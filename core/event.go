package core

import (
	"time"

	"github.com/google/uuid"
)

// EventActions encodes side-effects or orchestration signals attached to an Event.
// All fields are optional pointers / maps so absence can be distinguished from zero values.
type EventActions struct {
	StateDelta map[string]any `json:"state_delta,omitempty"`
}

// Event is the primary unit of communication between the workflow engine and
// external clients. After emission it should be treated as immutable. It
// captures:
//   - Correlation (TurnID, ID, Author, Node)
//   - Conversational content (optional role-based Parts)
//   - State mutations (Actions.StateDelta)
//   - Interrupt / error metadata
//   - High precision UTC timestamp
//
// Content may be nil for control or error-only events.
type Event struct {
	ID           string            `json:"id"`
	TurnID       string            `json:"turn_id"`
	Author       string            `json:"author"`
	Node         string            `json:"node,omitempty"` // Originating workflow node, empty for user events
	Actions      EventActions      `json:"actions"`
	Timestamp    time.Time         `json:"timestamp"`
	Content      *Content          `json:"content,omitempty"`
	StepResult   map[string]any    `json:"step_result,omitempty"` // Structured step-completion payload
	Partial      *bool             `json:"partial,omitempty"`
	TurnComplete *bool             `json:"turn_complete,omitempty"`
	ErrorCode    *string           `json:"error_code,omitempty"`
	ErrorMessage *string           `json:"error_message,omitempty"`
	Interrupt    *InterruptRequest `json:"interrupt,omitempty"`
}

// NewEvent creates a bare event authored by 'author' bound to a turn.
// Prefer helper constructors for common semantic categories.
func NewEvent(turnID, author string) Event {
	return Event{
		ID:        NewID(),
		TurnID:    turnID,
		Author:    author,
		Timestamp: time.Now().UTC(),
		Actions:   EventActions{},
	}
}

// NewMessageEvent creates an assistant message event with a single text part.
func NewMessageEvent(turnID, author, message string) Event {
	e := NewEvent(turnID, author)
	e.Content = &Content{Role: "assistant", Parts: []Part{TextPart{Text: message}}}
	return e
}

// NewUserMessageEvent creates a user-authored text message event.
func NewUserMessageEvent(turnID, message string) Event {
	e := NewEvent(turnID, "user")
	e.Content = &Content{Role: "user", Parts: []Part{TextPart{Text: message}}}
	return e
}

// NewFunctionCallsEvent represents the assistant requesting execution of one or
// more named functions/tools.
func NewFunctionCallsEvent(turnID, author string, calls []FunctionCall) Event {
	e := NewEvent(turnID, author)
	parts := make([]Part, 0, len(calls))
	for _, call := range calls {
		parts = append(parts, FunctionCallPart{FunctionCall: call})
	}
	e.Content = &Content{Role: "assistant", Parts: parts}
	return e
}

// NewFunctionResponseEvent records the completion result (or error) of a
// tool/function invocation. If err is non-nil its message is copied into the
// response.Error field.
func NewFunctionResponseEvent(turnID, author, id, functionName string, result any, err error) Event {
	e := NewEvent(turnID, author)
	fr := FunctionResponse{ID: id, Name: functionName, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	e.Content = &Content{Role: "tool", Parts: []Part{FunctionResponsePart{FunctionResponse: fr}}}
	return e
}

// NewStepEvent records the structured completion payload of a workflow step
// (matched tasks, retrieved documents, recalled memories, formatted data).
func NewStepEvent(turnID, node string, result map[string]any) Event {
	e := NewEvent(turnID, node)
	e.Node = node
	e.StepResult = result
	return e
}

// NewInterruptEvent signals that the turn is suspended awaiting a resume
// decision for the carried request.
func NewInterruptEvent(turnID, node string, req InterruptRequest) Event {
	e := NewEvent(turnID, node)
	e.Node = node
	e.Interrupt = &req
	return e
}

// NewErrorEvent constructs a terminal error event for a failed turn.
func NewErrorEvent(turnID, author, code, message string) Event {
	e := NewEvent(turnID, author)
	e.ErrorCode = &code
	e.ErrorMessage = &message
	return e
}

// NewID generates a new unique identifier for events and turns.
func NewID() string { return uuid.NewString() }

// IsPartial reports whether this event represents a streaming fragment that
// will be followed by additional events composing the final assistant turn.
func (e Event) IsPartial() bool { return e.Partial != nil && *e.Partial }

// GetFunctionCalls returns any FunctionCall parts contained within the event
// content preserving their original order.
func (e Event) GetFunctionCalls() []FunctionCall {
	if e.Content == nil {
		return nil
	}
	var calls []FunctionCall
	for _, p := range e.Content.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// GetFunctionResponses returns any FunctionResponse parts contained within the
// event content preserving their original order.
func (e Event) GetFunctionResponses() []FunctionResponse {
	if e.Content == nil {
		return nil
	}
	var responses []FunctionResponse
	for _, p := range e.Content.Parts {
		if fr, ok := p.(FunctionResponsePart); ok {
			responses = append(responses, fr.FunctionResponse)
		}
	}
	return responses
}

// IsFinalResponse reports whether this event completes an assistant turn (no
// pending tool calls or responses and not a streaming fragment).
func (e Event) IsFinalResponse() bool {
	return len(e.GetFunctionCalls()) == 0 &&
		len(e.GetFunctionResponses()) == 0 &&
		!e.IsPartial()
}

// Text returns the concatenated text parts of the event content.
func (e Event) Text() string { return e.Content.Text() }

// UnixSeconds returns the timestamp as fractional seconds since Unix epoch.
func (e Event) UnixSeconds() float64 { return float64(e.Timestamp.UnixNano()) / 1e9 }

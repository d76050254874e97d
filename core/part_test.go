package core

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestContent_JSONRoundTrip(t *testing.T) {
	original := Content{
		Role: "assistant",
		Parts: []Part{
			TextPart{Text: "result below", Metadata: map[string]any{"lang": "en"}},
			DataPart{Data: map[string]any{"rows": []any{"a", "b"}}},
			FunctionCallPart{FunctionCall: FunctionCall{ID: "c1", Name: "query_orders", Arguments: `{"day":"monday"}`}},
			FunctionResponsePart{FunctionResponse: FunctionResponse{ID: "c1", Name: "query_orders", Response: map[string]any{"count": float64(3)}}},
		},
	}

	raw, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, tag := range []string{`"type":"text"`, `"type":"data"`, `"type":"function_call"`, `"type":"function_response"`} {
		if !strings.Contains(string(raw), tag) {
			t.Errorf("wire form missing discriminator %s: %s", tag, raw)
		}
	}

	var decoded Content
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Role != "assistant" || len(decoded.Parts) != 4 {
		t.Fatalf("round trip lost parts: %+v", decoded)
	}

	tp, ok := decoded.Parts[0].(TextPart)
	if !ok || tp.Text != "result below" || tp.Metadata["lang"] != "en" {
		t.Errorf("text part mangled: %+v", decoded.Parts[0])
	}
	dp, ok := decoded.Parts[1].(DataPart)
	if !ok || len(dp.Data) == 0 {
		t.Errorf("data part mangled: %+v", decoded.Parts[1])
	}
	fc, ok := decoded.Parts[2].(FunctionCallPart)
	if !ok || fc.FunctionCall.Name != "query_orders" || fc.FunctionCall.Arguments != `{"day":"monday"}` {
		t.Errorf("function call part mangled: %+v", decoded.Parts[2])
	}
	fr, ok := decoded.Parts[3].(FunctionResponsePart)
	if !ok || fr.FunctionResponse.ID != "c1" {
		t.Errorf("function response part mangled: %+v", decoded.Parts[3])
	}
}

func TestContent_UnmarshalRejectsUnknownPartType(t *testing.T) {
	var c Content
	err := json.Unmarshal([]byte(`{"role":"user","parts":[{"type":"image"}]}`), &c)
	if err == nil || !strings.Contains(err.Error(), "unknown part type") {
		t.Fatalf("expected unknown part type error, got %v", err)
	}
}

func TestContent_TextConcatenatesTextParts(t *testing.T) {
	c := &Content{Parts: []Part{
		TextPart{Text: "hello "},
		FunctionCallPart{FunctionCall: FunctionCall{Name: "noop"}},
		TextPart{Text: "world"},
	}}
	if got := c.Text(); got != "hello world" {
		t.Errorf("Text() = %q", got)
	}
	var nilContent *Content
	if nilContent.Text() != "" {
		t.Error("nil content should yield empty text")
	}
}

func TestEvent_FunctionCallAccessorsAndFinality(t *testing.T) {
	callEv := NewFunctionCallsEvent("turn-1", "workflow", []FunctionCall{
		{ID: "c1", Name: "query_orders"},
		{ID: "c2", Name: "record_task_execution"},
	})
	calls := callEv.GetFunctionCalls()
	if len(calls) != 2 || calls[0].Name != "query_orders" || calls[1].Name != "record_task_execution" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
	if callEv.IsFinalResponse() {
		t.Error("event with pending calls is not final")
	}

	respEv := NewFunctionResponseEvent("turn-1", "workflow", "c1", "query_orders", nil, nil)
	if len(respEv.GetFunctionResponses()) != 1 {
		t.Fatal("expected one function response")
	}
	if respEv.IsFinalResponse() {
		t.Error("tool response event is not final")
	}

	if !NewMessageEvent("turn-1", "workflow", "done").IsFinalResponse() {
		t.Error("plain assistant message should be final")
	}
}

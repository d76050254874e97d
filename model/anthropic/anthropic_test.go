package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supbro-dev/Wagner-agent/core"
	"github.com/supbro-dev/Wagner-agent/model"
)

// sseServer replays canned Messages streaming frames.
func sseServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, frame := range frames {
			_, _ = fmt.Fprint(w, frame)
		}
	}))
}

func frame(event, data string) string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)
}

func TestModel_GenerateStreamsTextAndToolCalls(t *testing.T) {
	srv := sseServer(t, []string{
		frame("message_start", `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-3-5-sonnet-20241022","usage":{"input_tokens":10,"output_tokens":1}}}`),
		frame("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`),
		frame("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Daily"}}`),
		frame("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" orders"}}`),
		frame("content_block_stop", `{"type":"content_block_stop","index":0}`),
		frame("content_block_start", `{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"tu_1","name":"order_stats","input":{}}}`),
		frame("content_block_delta", `{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"range\":"}}`),
		frame("content_block_delta", `{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"\"7d\"}"}}`),
		frame("content_block_stop", `{"type":"content_block_stop","index":1}`),
		frame("message_delta", `{"type":"message_delta","delta":{"stop_reason":"tool_use","stop_sequence":null},"usage":{"output_tokens":12}}`),
		frame("message_stop", `{"type":"message_stop"}`),
	})
	defer srv.Close()

	client := sdk.NewClient(option.WithAPIKey("test-key"), option.WithBaseURL(srv.URL))
	m := NewModelFromClient(&client)

	respCh, errCh := m.Generate(context.Background(), model.Request{
		Instructions: "You are a data analyst.",
		Contents: []core.Content{{
			Role:  "user",
			Parts: []core.Part{core.TextPart{Text: "how many orders this week?"}},
		}},
		Stream: true,
	})

	var partials []string
	var final *model.Response
	for resp := range respCh {
		if resp.Partial {
			partials = append(partials, resp.Content.Text())
			continue
		}
		r := resp
		final = &r
	}
	require.NoError(t, <-errCh)

	// Text deltas arrive live, in generation order.
	assert.Equal(t, []string{"Daily", " orders"}, partials)

	require.NotNil(t, final)
	assert.Equal(t, "Daily orders", final.Content.Text())
	assert.Equal(t, "tool_use", final.FinishReason)

	var calls []core.FunctionCall
	for _, p := range final.Content.Parts {
		if fc, ok := p.(core.FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	require.Len(t, calls, 1)
	assert.Equal(t, "tu_1", calls[0].ID)
	assert.Equal(t, "order_stats", calls[0].Name)
	assert.JSONEq(t, `{"range": "7d"}`, calls[0].Arguments)
}

func TestModel_GenerateStreamTextOnly(t *testing.T) {
	srv := sseServer(t, []string{
		frame("message_start", `{"type":"message_start","message":{"id":"msg_2","type":"message","role":"assistant","content":[],"model":"claude-3-5-sonnet-20241022","usage":{"input_tokens":4,"output_tokens":1}}}`),
		frame("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`),
		frame("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello."}}`),
		frame("content_block_stop", `{"type":"content_block_stop","index":0}`),
		frame("message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":3}}`),
		frame("message_stop", `{"type":"message_stop"}`),
	})
	defer srv.Close()

	client := sdk.NewClient(option.WithAPIKey("test-key"), option.WithBaseURL(srv.URL))
	m := NewModelFromClient(&client)

	respCh, errCh := m.Generate(context.Background(), model.Request{
		Contents: []core.Content{{
			Role:  "user",
			Parts: []core.Part{core.TextPart{Text: "hi"}},
		}},
		Stream: true,
	})

	var final *model.Response
	for resp := range respCh {
		if !resp.Partial {
			r := resp
			final = &r
		}
	}
	require.NoError(t, <-errCh)
	require.NotNil(t, final)
	assert.Equal(t, "Hello.", final.Content.Text())
	assert.Equal(t, "end_turn", final.FinishReason)
	assert.Len(t, final.Content.Parts, 1)
}

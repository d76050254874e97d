package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/supbro-dev/Wagner-agent/core"
)

// streamEvents renders a turn's event stream as Server-Sent Events. Token
// fragments become `data: {"msgId","token","node"}` frames, step completions
// carry their structured payload, interrupts carry the confirmation request.
// The stream ends with `event: done` on success (or suspension) and
// `event: error` on failure.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, events <-chan core.Event, errCh <-chan error) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Message ids that already streamed fragments, so their final event is
	// not re-sent as a duplicate token frame.
	streamed := make(map[string]bool)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				if err := <-errCh; err != nil {
					s.sendSSE(w, flusher, "error", map[string]any{"error": err.Error()})
					return
				}
				s.sendSSE(w, flusher, "done", map[string]any{})
				return
			}
			s.sendEvent(w, flusher, ev, streamed)
		}
	}
}

func (s *Server) sendEvent(w http.ResponseWriter, flusher http.Flusher, ev core.Event, streamed map[string]bool) {
	switch {
	case ev.IsPartial():
		streamed[ev.ID] = true
		s.sendSSE(w, flusher, "", map[string]any{
			"msgId": ev.ID,
			"token": ev.Text(),
			"node":  ev.Node,
		})

	case ev.Interrupt != nil:
		s.sendSSE(w, flusher, "", map[string]any{
			"msgId":     ev.ID,
			"interrupt": ev.Interrupt,
		})

	case ev.StepResult != nil:
		s.sendSSE(w, flusher, "", map[string]any{
			"node": ev.Node,
			"step": ev.StepResult,
		})

	case ev.Content != nil && ev.Content.Role == "assistant":
		if len(ev.GetFunctionCalls()) > 0 {
			return // tool calls surface through their response events
		}
		frame := map[string]any{"msgId": ev.ID, "node": ev.Node, "final": true}
		// A non-streaming model produces no fragments; deliver the whole
		// message as one token frame.
		if !streamed[ev.ID] {
			frame["token"] = ev.Text()
		}
		s.sendSSE(w, flusher, "", frame)

	case ev.Content != nil && ev.Content.Role == "tool":
		for _, fr := range ev.GetFunctionResponses() {
			frame := map[string]any{"node": ev.Node, "tool": fr.Name}
			if fr.Error != "" {
				frame["error"] = fr.Error
			} else {
				frame["result"] = fr.Response
			}
			s.sendSSE(w, flusher, "", frame)
		}

	case ev.ErrorCode != nil:
		// The terminal error arrives via errCh as well; this frame carries
		// the code for clients that render it.
		s.sendSSE(w, flusher, "", map[string]any{
			"errorCode":    *ev.ErrorCode,
			"errorMessage": deref(ev.ErrorMessage),
		})
	}
}

// sendSSE writes one frame. An empty event type produces a plain data frame.
func (s *Server) sendSSE(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("server.sse.marshal_failed", "error", err.Error())
		return
	}
	if eventType != "" {
		fmt.Fprintf(w, "event: %s\n", eventType)
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

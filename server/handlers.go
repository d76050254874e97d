package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/supbro-dev/Wagner-agent/workflow"
)

type questionRequest struct {
	BusinessKey string `json:"businessKey"`
	SessionID   string `json:"sessionId"`
	Question    string `json:"question"`
}

type resumeRequest struct {
	BusinessKey string `json:"businessKey"`
	SessionID   string `json:"sessionId"`
	ResumeType  string `json:"resumeType"`
}

// handleQuestion answers one question synchronously. The reply is the final
// assistant text; if the turn suspended on a confirmation, the confirmation
// question is the reply and the interrupt payload is included.
func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BusinessKey == "" || req.SessionID == "" || req.Question == "" {
		respondError(w, http.StatusBadRequest, "businessKey, sessionId and question are required")
		return
	}

	analyst, err := s.manager.Analyst(r.Context(), req.BusinessKey)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	answer, err := analyst.Ask(r.Context(), req.SessionID, req.Question)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"answer": answer})
}

// handleStream answers one question as an SSE stream.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	businessKey := r.URL.Query().Get("businessKey")
	sessionID := r.URL.Query().Get("sessionId")
	question := r.URL.Query().Get("question")
	if businessKey == "" || sessionID == "" || question == "" {
		respondError(w, http.StatusBadRequest, "businessKey, sessionId and question are required")
		return
	}

	analyst, err := s.manager.Analyst(r.Context(), businessKey)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	events, errCh, err := analyst.Stream(r.Context(), sessionID, question)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.streamEvents(w, r, events, errCh)
}

// handleResumeInterrupt answers a pending confirmation synchronously.
func (s *Server) handleResumeInterrupt(w http.ResponseWriter, r *http.Request) {
	var req resumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BusinessKey == "" || req.SessionID == "" || req.ResumeType == "" {
		respondError(w, http.StatusBadRequest, "businessKey, sessionId and resumeType are required")
		return
	}

	analyst, err := s.manager.Analyst(r.Context(), req.BusinessKey)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	answer, interrupt, err := analyst.Resume(r.Context(), req.SessionID, req.ResumeType)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	payload := map[string]any{"answer": answer}
	if interrupt != nil {
		payload["interrupt"] = interrupt
	}
	respondJSON(w, http.StatusOK, payload)
}

// handleResumeInterruptStream answers a pending confirmation as an SSE
// stream.
func (s *Server) handleResumeInterruptStream(w http.ResponseWriter, r *http.Request) {
	businessKey := r.URL.Query().Get("businessKey")
	sessionID := r.URL.Query().Get("sessionId")
	resumeType := r.URL.Query().Get("resumeType")
	if businessKey == "" || sessionID == "" || resumeType == "" {
		respondError(w, http.StatusBadRequest, "businessKey, sessionId and resumeType are required")
		return
	}

	analyst, err := s.manager.Analyst(r.Context(), businessKey)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	events, errCh, err := analyst.StreamResume(r.Context(), sessionID, resumeType)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.streamEvents(w, r, events, errCh)
}

// handleWelcome runs the empty-input welcome turn and returns the greeting
// plus the user's frequently executed tasks.
func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	businessKey := r.URL.Query().Get("businessKey")
	sessionID := r.URL.Query().Get("sessionId")
	if businessKey == "" || sessionID == "" {
		respondError(w, http.StatusBadRequest, "businessKey and sessionId are required")
		return
	}

	analyst, err := s.manager.Analyst(r.Context(), businessKey)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	answer, err := analyst.Ask(r.Context(), sessionID, "")
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	tasks, err := analyst.FrequentTaskNames(r.Context())
	if err != nil {
		s.logger.Warn("server.welcome.frequent_tasks_failed", "business_key", businessKey, "error", err.Error())
		tasks = nil
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"answer":        answer,
		"frequentTasks": tasks,
	})
}

// handleStateProperties returns workflow state properties of a session.
// names is an optional comma-separated filter.
func (s *Server) handleStateProperties(w http.ResponseWriter, r *http.Request) {
	businessKey := r.URL.Query().Get("businessKey")
	sessionID := r.URL.Query().Get("sessionId")
	if businessKey == "" || sessionID == "" {
		respondError(w, http.StatusBadRequest, "businessKey and sessionId are required")
		return
	}
	var names []string
	if raw := r.URL.Query().Get("names"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}

	analyst, err := s.manager.Analyst(r.Context(), businessKey)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	props, err := analyst.StateProperties(r.Context(), sessionID, names)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, props)
}

func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, workflow.ErrTurnInFlight):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrNoPendingInterrupt):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrProtocol):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("server.request_failed", "error", err.Error())
	}
	respondError(w, status, err.Error())
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers are already written; nothing useful left to do.
		_ = err
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"error": message})
}

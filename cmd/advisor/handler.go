package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/m-mizutani/advisor"
)

const maxRequestBytes = 1 << 20

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg})
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		Title       string
		Description string
	}{s.title, s.description}
	if err := indexTmpl.Execute(w, data); err != nil {
		s.logger.Error("failed to render index", slog.Any("error", err))
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type historyResponse struct {
	SessionID string                  `json:"session_id"`
	Messages  []advisor.MessageRecord `json:"messages"`
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := historyResponse{
		SessionID: s.chat.ID(),
		Messages:  s.chat.Export(),
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

type postMessageRequest struct {
	Message string `json:"message"`
}

type postMessageResponse struct {
	Reply           string               `json:"reply"`
	Fallback        bool                 `json:"fallback"`
	Model           string               `json:"model,omitempty"`
	InputTokens     int                  `json:"input_tokens"`
	OutputTokens    int                  `json:"output_tokens"`
	ContextMessages int                  `json:"context_messages"`
	ContextTokens   int                  `json:"context_tokens"`
	Stats           advisor.SessionStats `json:"stats"`
}

func (s *server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reply, err := s.chat.Ask(r.Context(), req.Message)
	if err != nil {
		if errors.Is(err, advisor.ErrEmptyInput) {
			writeError(w, http.StatusBadRequest, "message is empty")
			return
		}
		s.logger.Error("failed to process message", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, postMessageResponse{
		Reply:           reply.Text,
		Fallback:        reply.Fallback,
		Model:           reply.Model,
		InputTokens:     reply.InputTokens,
		OutputTokens:    reply.OutputTokens,
		ContextMessages: reply.ContextMessages,
		ContextTokens:   reply.ContextTokens,
		Stats:           s.chat.Stats(),
	})
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stats := s.chat.Stats()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, stats)
}

func (s *server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	summary := s.chat.Summary()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.chat.Clear()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	t := s.chat.Transcript()
	s.mu.Unlock()

	w.Header().Set("Content-Disposition", `attachment; filename="conversation.json"`)
	writeJSON(w, http.StatusOK, t)
}

func (s *server) handleSave(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.chat.Save(r.Context(), s.repo); err != nil {
		s.logger.Error("failed to save conversation", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to save conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": s.chat.ID()})
}

func (s *server) handleModel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chat.ModelInfo())
}

func (s *server) handlePing(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.Ping(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "connection test failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type listSessionsResponse struct {
	Sessions      []advisor.TranscriptSummary `json:"sessions"`
	NextPageToken string                      `json:"next_page_token,omitempty"`
}

func (s *server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	pageSizeStr := r.URL.Query().Get("page_size")
	pageToken := r.URL.Query().Get("page_token")

	pageSize := advisor.DefaultPageSize
	if pageSizeStr != "" {
		n, err := strconv.Atoi(pageSizeStr)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid page_size parameter")
			return
		}
		pageSize = n
	}

	resp, err := s.repo.List(r.Context(), advisor.ListRequest{
		PageSize:  pageSize,
		PageToken: pageToken,
	})
	if err != nil {
		s.logger.Error("failed to list sessions", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	sessions := resp.Transcripts
	if sessions == nil {
		sessions = []advisor.TranscriptSummary{}
	}

	writeJSON(w, http.StatusOK, listSessionsResponse{
		Sessions:      sessions,
		NextPageToken: resp.NextPageToken,
	})
}

// loadSession writes an error response and returns nil when the transcript is unavailable.
func (s *server) loadSession(w http.ResponseWriter, r *http.Request) *advisor.Transcript {
	sessionID := r.PathValue("id")
	t, err := s.repo.Load(r.Context(), sessionID)
	switch {
	case errors.Is(err, advisor.ErrInvalidSessionID):
		writeError(w, http.StatusBadRequest, "invalid session ID")
		return nil
	case err != nil:
		s.logger.Error("failed to load session", slog.Any("error", err), slog.String("session_id", sessionID))
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return nil
	case t == nil:
		writeError(w, http.StatusNotFound, "session not found")
		return nil
	}
	return t
}

func (s *server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if t := s.loadSession(w, r); t != nil {
		writeJSON(w, http.StatusOK, t)
	}
}

func (s *server) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	t := s.loadSession(w, r)
	if t == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.chat.Resume(t); err != nil {
		s.logger.Error("failed to resume session", slog.Any("error", err))
		writeError(w, http.StatusUnprocessableEntity, "saved session is invalid")
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{
		SessionID: s.chat.ID(),
		Messages:  s.chat.Export(),
	})
}

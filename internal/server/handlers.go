package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/oklog/ulid/v2"

	"github.com/okabe/vidql/internal/domain"
	"github.com/okabe/vidql/internal/session"
)

const defaultHistoryLimit = 50

// QueryRequest is the body of /query and /stream.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId"`
	VideoID   string `json:"videoId"`
}

// QueryResponse is the body of a completed /query.
type QueryResponse struct {
	Response  string            `json:"response"`
	Actions   []string          `json:"actions"`
	Artifacts []domain.Artifact `json:"artifacts"`
	SessionID string            `json:"sessionId"`
}

// ReportRequest is the body of /report.
type ReportRequest struct {
	SessionID string `json:"sessionId"`
	Format    string `json:"format"`
}

// ReportResponse is the body of a completed /report.
type ReportResponse struct {
	FilePath string `json:"filePath"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "missing query")
		return
	}

	result, err := s.engine.Query(r.Context(), req.SessionID, req.Query, req.VideoID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	json.NewEncoder(w).Encode(queryResponse(result))
}

// handleStream emits one JSON object per line: progress chunks, then a
// terminal chunk carrying the full response and artifacts.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "missing query")
		return
	}
	// Chunks carry the session id, so settle it before streaming.
	if req.SessionID == "" {
		req.SessionID = ulid.Make().String()
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, _ := w.(http.Flusher)

	enc := json.NewEncoder(w)
	updates := s.engine.StreamQuery(r.Context(), req.SessionID, req.Query, req.VideoID)
	for u := range updates {
		var chunk any
		if u.Final {
			actions := make([]string, 0, len(u.Actions))
			for _, a := range u.Actions {
				actions = append(actions, string(a))
			}
			chunk = map[string]any{
				"response":  u.Text,
				"actions":   actions,
				"artifacts": u.Artifacts,
				"sessionId": req.SessionID,
			}
		} else {
			chunk = map[string]any{
				"update":    u.Text,
				"progress":  0,
				"sessionId": req.SessionID,
			}
		}
		if err := enc.Encode(chunk); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing sessionId")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	messages, err := s.engine.History(r.Context(), sessionID, limit)
	if err != nil {
		if errors.Is(err, session.ErrUnknownSession) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"sessionId": sessionID,
		"messages":  messages,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "missing sessionId")
		return
	}

	path, err := s.engine.Report(r.Context(), req.SessionID, req.Format)
	if err != nil {
		if errors.Is(err, session.ErrUnknownSession) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		json.NewEncoder(w).Encode(ReportResponse{Success: false, Message: err.Error()})
		return
	}

	json.NewEncoder(w).Encode(ReportResponse{
		FilePath: path,
		Success:  true,
		Message:  "report generated",
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.engine.Sessions(r.Context(), 0)
	json.NewEncoder(w).Encode(sessions)
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	if s.library == nil {
		json.NewEncoder(w).Encode([]any{})
		return
	}
	videos, err := s.library.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	json.NewEncoder(w).Encode(videos)
}

func queryResponse(result domain.QueryResult) QueryResponse {
	actions := make([]string, 0, len(result.Actions))
	for _, a := range result.Actions {
		actions = append(actions, string(a))
	}
	artifacts := result.Artifacts
	if artifacts == nil {
		artifacts = []domain.Artifact{}
	}
	return QueryResponse{
		Response:  result.Response,
		Actions:   actions,
		Artifacts: artifacts,
		SessionID: result.SessionID,
	}
}

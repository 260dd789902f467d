// internal/webhook/server.go
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/user/vibecode/internal/gateway"
	"github.com/user/vibecode/internal/state"
	"github.com/user/vibecode/internal/target"
	"github.com/user/vibecode/internal/types"
)

// Dispatcher is the part of the gateway the HTTP API drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd *gateway.Command, opts ...gateway.RunOption) (gateway.Receipt, error)
	Resolve(ctx context.Context, t *target.Target) (target.Result, error)
	Targets(ctx context.Context) ([]target.Entry, error)
}

// Server is a lightweight HTTP handler for the command API and task webhooks.
type Server struct {
	gw       Dispatcher
	tasks    *state.TaskStore
	projects types.ProjectDirectory
	sessions types.SessionDirectory
	events   types.EventStore
	mux      *http.ServeMux
}

// NewServer creates a Server. The directory and event stores may be nil, in
// which case the read-only API endpoints answer 503.
func NewServer(gw Dispatcher, tasks *state.TaskStore, projects types.ProjectDirectory, sessions types.SessionDirectory, events types.EventStore) *Server {
	s := &Server{
		gw:       gw,
		tasks:    tasks,
		projects: projects,
		sessions: sessions,
		events:   events,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/targets", s.handleTargets)
	s.mux.HandleFunc("POST /api/resolve", s.handleResolve)
	s.mux.HandleFunc("POST /api/commands", s.handleCommand)
	s.mux.HandleFunc("GET /api/projects", s.handleProjects)
	s.mux.HandleFunc("GET /api/sessions", s.handleSessions)
	s.mux.HandleFunc("GET /api/events/{kind}/{id}", s.handleEvents)
	s.mux.HandleFunc("POST /webhook/{task}", s.handleTask)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	entries, err := s.gw.Targets(r.Context())
	if err != nil {
		slog.Error("list targets failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if entries == nil {
		entries = []target.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// resolveRequest is the JSON body for POST /api/resolve.
type resolveRequest struct {
	Target string `json:"target"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	t, err := target.Parse(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.gw.Resolve(r.Context(), t)
	if err != nil {
		slog.Error("resolve failed", "target", req.Target, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// commandRequest is the JSON body for POST /api/commands.
type commandRequest struct {
	Target string `json:"target"`
	Text   string `json:"text"`
	UserID string `json:"user_id"`
}

type commandResponse struct {
	gateway.Receipt
	Message string `json:"message"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	t, err := target.Parse(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.dispatch(w, r, &gateway.Command{Source: "http", UserID: req.UserID, Target: t, Text: req.Text})
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, cmd *gateway.Command) {
	receipt, err := s.gw.Dispatch(r.Context(), cmd)
	if err != nil && len(receipt.Runs) == 0 {
		slog.Error("dispatch failed", "target", cmd.Target.String(), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err != nil {
		slog.Warn("dispatch partially queued", "target", cmd.Target.String(), "queued", len(receipt.Runs), "skipped", receipt.Skipped, "error", err)
	}
	status := http.StatusAccepted
	if !receipt.Result.OK() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, commandResponse{Receipt: receipt, Message: receipt.Message()})
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	if s.projects == nil {
		writeError(w, http.StatusServiceUnavailable, "directory API not configured")
		return
	}
	projects, err := s.projects.List(r.Context())
	if err != nil {
		slog.Error("list projects failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if projects == nil {
		projects = []types.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

type sessionResponse struct {
	types.AgentSession
	EventCount int64 `json:"event_count"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil || s.events == nil {
		writeError(w, http.StatusServiceUnavailable, "directory API not configured")
		return
	}
	ctx := r.Context()
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		slog.Error("list sessions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	result := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		count, err := s.events.Count(ctx, types.AgentLane(sess.ID))
		if err != nil {
			slog.Warn("count events failed", "session_id", string(sess.ID), "error", err)
		}
		result = append(result, sessionResponse{AgentSession: sess, EventCount: count})
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusServiceUnavailable, "directory API not configured")
		return
	}

	lane := types.NewLaneKey(r.PathValue("kind"), r.PathValue("id"))
	limit := 200
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := s.events.Tail(r.Context(), lane, limit)
	if err != nil {
		slog.Error("tail events failed", "lane", string(lane), "error", err)
		writeError(w, http.StatusBadRequest, "invalid lane")
		return
	}
	if events == nil {
		events = []*types.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// taskRequest is the optional JSON body for POST /webhook/{task}.
type taskRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("task")
	task, err := s.tasks.Get(name)
	if errors.Is(err, state.ErrNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		slog.Error("load task failed", "task", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !task.Enabled {
		writeError(w, http.StatusForbidden, "task is disabled")
		return
	}

	t, err := target.Parse(task.Target)
	if err != nil {
		slog.Error("task has invalid target", "task", name, "target", task.Target, "error", err)
		writeError(w, http.StatusInternalServerError, "task has invalid target")
		return
	}

	text := task.Command
	// Allow body to override the command text
	var body taskRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Text != "" {
		text = body.Text
	}

	s.dispatch(w, r, &gateway.Command{Source: "webhook:" + name, Target: t, Text: text})
}

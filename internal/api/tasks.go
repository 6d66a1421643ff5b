package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/visionflow-core/internal/task"
)

// postTaskRequest is the request body for posting a task.
type postTaskRequest struct {
	Entry            string          `json:"entry"`
	PipelineOverride json.RawMessage `json:"pipeline_override,omitempty"`
}

// handlePostTask creates a runner for the requested entry node, applies
// the optional pipeline override, and starts the run in the background.
// The response carries the allocated task id; progress is observable via
// GET /tasks/{id} and the WebSocket notification stream.
func (s *Server) handlePostTask(w http.ResponseWriter, r *http.Request) {
	var req postTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Entry == "" {
		writeBadRequest(w, "entry is required")
		return
	}

	runner, err := task.NewRunner(s.tasker, req.Entry)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if len(req.PipelineOverride) > 0 {
		if !runner.Executor().OverridePipeline(req.PipelineOverride) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "invalid pipeline_override")
			return
		}
	}

	// The run outlives the HTTP request; it is bound to the server
	// lifetime, not the caller's connection.
	go func() {
		if _, err := runner.Run(context.Background()); err != nil {
			s.logger.Warn("task run aborted", "task_id", runner.TaskID(), "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"task_id": runner.TaskID(),
		"entry":   req.Entry,
	})
}

// handleGetTask returns one task detail: from the runtime cache while
// the engine is alive, falling back to the execution history.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid task id")
		return
	}

	if detail, ok := s.tasker.RuntimeCache().GetTaskDetail(taskID); ok {
		writeJSON(w, http.StatusOK, detail)
		return
	}

	if history := s.tasker.History(); history != nil {
		detail, err := history.GetTask(r.Context(), taskID)
		if err == nil {
			writeJSON(w, http.StatusOK, detail)
			return
		}
		if !errors.Is(err, task.ErrTaskNotFound) {
			s.logger.Error("task history lookup failed", "task_id", taskID, "error", err)
			writeInternalError(w, "task lookup failed")
			return
		}
	}
	writeNotFound(w, "task not found")
}

// handleListTasks returns recent task executions from history.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	history := s.tasker.History()
	if history == nil {
		writeJSON(w, http.StatusOK, map[string]any{"tasks": []task.TaskDetail{}})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, "invalid limit")
			return
		}
		limit = parsed
	}

	tasks, err := history.ListTasks(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing tasks failed", "error", err)
		writeInternalError(w, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []task.TaskDetail{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// handleGetNode returns one node execution detail by id.
func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	nodeID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid node id")
		return
	}

	if detail, ok := s.tasker.RuntimeCache().GetNodeDetail(nodeID); ok {
		writeJSON(w, http.StatusOK, detail)
		return
	}
	writeNotFound(w, "node not found")
}

// handleGetLatestNode returns the most recent execution recorded under
// a node name.
func (s *Server) handleGetLatestNode(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	cache := s.tasker.RuntimeCache()
	if nodeID, ok := cache.GetLatestNode(name); ok {
		if detail, ok := cache.GetNodeDetail(nodeID); ok {
			writeJSON(w, http.StatusOK, detail)
			return
		}
	}
	writeNotFound(w, "no execution recorded for node")
}

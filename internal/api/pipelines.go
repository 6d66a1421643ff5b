package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/visionflow-core/internal/pipeline"
)

// pipelineRequest is the request body for creating or updating a pipeline.
type pipelineRequest struct {
	Name       string          `json:"name"`
	Enabled    *bool           `json:"enabled"`
	Definition json.RawMessage `json:"definition"`
}

// pipelineResponse is the API representation of a pipeline document.
type pipelineResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Enabled    bool            `json:"enabled"`
	Definition json.RawMessage `json:"definition"`
	Nodes      int             `json:"nodes"`
	CreatedAt  string          `json:"created_at"`
	UpdatedAt  string          `json:"updated_at"`
}

func toPipelineResponse(doc *pipeline.Document) pipelineResponse {
	return pipelineResponse{
		ID:         doc.ID,
		Name:       doc.Name,
		Enabled:    doc.Enabled,
		Definition: doc.Definition,
		Nodes:      len(doc.Nodes),
		CreatedAt:  doc.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  doc.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// handleListPipelines returns all pipeline documents.
func (s *Server) handleListPipelines(w http.ResponseWriter, r *http.Request) {
	docs, err := s.pipelines.ListDocuments(r.Context())
	if err != nil {
		s.logger.Error("listing pipelines failed", "error", err)
		writeInternalError(w, "failed to list pipelines")
		return
	}

	out := make([]pipelineResponse, 0, len(docs))
	for i := range docs {
		out = append(out, toPipelineResponse(&docs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"pipelines": out})
}

// handleCreatePipeline creates a new pipeline document.
func (s *Server) handleCreatePipeline(w http.ResponseWriter, r *http.Request) {
	var req pipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	doc := &pipeline.Document{
		Name:       req.Name,
		Enabled:    true,
		Definition: req.Definition,
	}
	if req.Enabled != nil {
		doc.Enabled = *req.Enabled
	}

	if err := s.pipelines.CreateDocument(r.Context(), doc); err != nil {
		s.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPipelineResponse(doc))
}

// handleGetPipeline returns one pipeline document by id.
func (s *Server) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	doc, err := s.pipelines.GetDocumentByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPipelineResponse(doc))
}

// handleUpdatePipeline replaces a pipeline document.
func (s *Server) handleUpdatePipeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := s.pipelines.GetDocumentByID(r.Context(), id)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	var req pipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	doc := &pipeline.Document{
		ID:        id,
		Name:      existing.Name,
		Enabled:   existing.Enabled,
		CreatedAt: existing.CreatedAt,
	}
	if req.Name != "" {
		doc.Name = req.Name
	}
	if req.Enabled != nil {
		doc.Enabled = *req.Enabled
	}
	if len(req.Definition) > 0 {
		doc.Definition = req.Definition
	} else {
		doc.Definition = existing.Definition
	}

	if err := s.pipelines.UpdateDocument(r.Context(), doc); err != nil {
		s.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPipelineResponse(doc))
}

// handleDeletePipeline removes a pipeline document.
func (s *Server) handleDeletePipeline(w http.ResponseWriter, r *http.Request) {
	if err := s.pipelines.DeleteDocument(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// writePipelineError maps pipeline errors to HTTP responses.
func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrPipelineNotFound):
		writeNotFound(w, "pipeline not found")
	case errors.Is(err, pipeline.ErrPipelineExists):
		writeConflict(w, "pipeline name already exists")
	case errors.Is(err, pipeline.ErrInvalidPipeline),
		errors.Is(err, pipeline.ErrInvalidName),
		errors.Is(err, pipeline.ErrInvalidNode),
		errors.Is(err, pipeline.ErrNoNodes):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		s.logger.Error("pipeline operation failed", "error", err)
		writeInternalError(w, "pipeline operation failed")
	}
}

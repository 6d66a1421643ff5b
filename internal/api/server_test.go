package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nerrad567/visionflow-core/internal/infrastructure/config"
	"github.com/nerrad567/visionflow-core/internal/infrastructure/logging"
	"github.com/nerrad567/visionflow-core/internal/pipeline"
	"github.com/nerrad567/visionflow-core/internal/task"
)

// memPipelineRepo is an in-memory pipeline.Repository for API tests.
type memPipelineRepo struct {
	docs map[string]*pipeline.Document
}

func newMemPipelineRepo() *memPipelineRepo {
	return &memPipelineRepo{docs: make(map[string]*pipeline.Document)}
}

func (m *memPipelineRepo) GetByID(_ context.Context, id string) (*pipeline.Document, error) {
	if d, ok := m.docs[id]; ok {
		return d.DeepCopy(), nil
	}
	return nil, pipeline.ErrPipelineNotFound
}

func (m *memPipelineRepo) GetByName(_ context.Context, name string) (*pipeline.Document, error) {
	for _, d := range m.docs {
		if d.Name == name {
			return d.DeepCopy(), nil
		}
	}
	return nil, pipeline.ErrPipelineNotFound
}

func (m *memPipelineRepo) List(context.Context) ([]pipeline.Document, error) {
	out := make([]pipeline.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, *d.DeepCopy())
	}
	return out, nil
}

func (m *memPipelineRepo) Create(_ context.Context, doc *pipeline.Document) error {
	for _, d := range m.docs {
		if d.Name == doc.Name {
			return pipeline.ErrPipelineExists
		}
	}
	m.docs[doc.ID] = doc.DeepCopy()
	return nil
}

func (m *memPipelineRepo) Update(_ context.Context, doc *pipeline.Document) error {
	if _, ok := m.docs[doc.ID]; !ok {
		return pipeline.ErrPipelineNotFound
	}
	m.docs[doc.ID] = doc.DeepCopy()
	return nil
}

func (m *memPipelineRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.docs[id]; !ok {
		return pipeline.ErrPipelineNotFound
	}
	delete(m.docs, id)
	return nil
}

// alwaysHitRecognizer matches every enabled node over the whole frame.
type alwaysHitRecognizer struct{}

func (alwaysHitRecognizer) Recognize(_ context.Context, frame task.Frame, _ pipeline.NodeData) task.RecoResult {
	b := frame.Image.Bounds()
	return task.RecoResult{Box: task.Hit(task.Rect{Width: b.Dx(), Height: b.Dy()})}
}

type staticController struct{}

func (staticController) Screencap(context.Context) (task.Frame, error) {
	return task.Frame{Image: image.NewRGBA(image.Rect(0, 0, 4, 4))}, nil
}
func (staticController) Tap(context.Context, int, int) error { return nil }
func (staticController) Swipe(context.Context, int, int, int, int, time.Duration) error {
	return nil
}
func (staticController) PressKey(context.Context, int) error { return nil }

type completingActuator struct{}

func (completingActuator) Run(context.Context, task.Rect, int64, pipeline.NodeData) bool {
	return true
}

func testServer(t *testing.T) (*Server, *pipeline.Registry) {
	t.Helper()

	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")

	registry := pipeline.NewRegistry(newMemPipelineRepo())
	if err := registry.RefreshCache(context.Background()); err != nil {
		t.Fatalf("refreshing registry: %v", err)
	}

	tasker := task.NewTasker(task.Deps{
		Controller:       staticController{},
		Recognizer:       alwaysHitRecognizer{},
		Actuator:         completingActuator{},
		Pipelines:        registry,
		DefaultTimeout:   500,
		DefaultRateLimit: 10,
	})

	server, err := New(Deps{
		Config:    config.APIConfig{Host: "127.0.0.1", Port: 0},
		Logger:    logger,
		Tasker:    tasker,
		Pipelines: registry,
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}
	return server, registry
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHandleHealth(t *testing.T) {
	server, _ := testServer(t)
	router := server.buildRouter()

	rec := doRequest(t, router, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "ok" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestPipelineCRUD(t *testing.T) {
	server, _ := testServer(t)
	router := server.buildRouter()

	// Create
	rec := doRequest(t, router, http.MethodPost, "/api/v1/pipelines", map[string]any{
		"name": "login-flow",
		"definition": map[string]any{
			"start": map[string]any{"next": []string{"done"}},
			"done":  map[string]any{},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody(t, rec)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("expected generated id")
	}
	if created["nodes"] != float64(2) {
		t.Errorf("expected 2 nodes, got %v", created["nodes"])
	}

	// Duplicate name conflicts
	rec = doRequest(t, router, http.MethodPost, "/api/v1/pipelines", map[string]any{
		"name":       "login-flow",
		"definition": map[string]any{"start": map[string]any{}},
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}

	// Get
	rec = doRequest(t, router, http.MethodGet, "/api/v1/pipelines/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// Update definition
	rec = doRequest(t, router, http.MethodPut, "/api/v1/pipelines/"+id, map[string]any{
		"definition": map[string]any{"start": map[string]any{}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if updated := decodeBody(t, rec); updated["nodes"] != float64(1) {
		t.Errorf("expected 1 node after update, got %v", updated["nodes"])
	}

	// Delete
	rec = doRequest(t, router, http.MethodDelete, "/api/v1/pipelines/"+id, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = doRequest(t, router, http.MethodGet, "/api/v1/pipelines/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestPipelineValidation(t *testing.T) {
	server, _ := testServer(t)
	router := server.buildRouter()

	rec := doRequest(t, router, http.MethodPost, "/api/v1/pipelines", map[string]any{
		"name":       "empty",
		"definition": map[string]any{},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty definition, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/api/v1/pipelines", map[string]any{
		"definition": map[string]any{"start": map[string]any{}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing name, got %d", rec.Code)
	}
}

func TestPostTaskAndInspect(t *testing.T) {
	server, registry := testServer(t)
	router := server.buildRouter()

	err := registry.CreateDocument(context.Background(), &pipeline.Document{
		Name:       "flow",
		Enabled:    true,
		Definition: json.RawMessage(`{"start": {"next": ["done"]}, "done": {}}`),
	})
	if err != nil {
		t.Fatalf("seeding pipeline: %v", err)
	}

	rec := doRequest(t, router, http.MethodPost, "/api/v1/tasks", map[string]any{
		"entry": "start",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	taskID := int64(decodeBody(t, rec)["task_id"].(float64))
	if taskID == 0 {
		t.Fatal("expected a task id")
	}

	// The run happens in the background; wait for it to finish.
	deadline := time.Now().Add(2 * time.Second)
	var detail map[string]any
	for {
		rec = doRequest(t, router, http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d", taskID), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		detail = decodeBody(t, rec)
		if detail["status"] == string(task.StatusSucceeded) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("task did not finish: %v", detail)
		}
		time.Sleep(10 * time.Millisecond)
	}

	nodeIDs, _ := detail["node_ids"].([]any)
	if len(nodeIDs) != 2 {
		t.Fatalf("expected 2 executed nodes, got %v", detail["node_ids"])
	}

	// Node detail by id
	nodeID := int64(nodeIDs[0].(float64))
	rec = doRequest(t, router, http.MethodGet, fmt.Sprintf("/api/v1/nodes/%d", nodeID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	node := decodeBody(t, rec)
	if node["name"] != "start" || node["completed"] != true {
		t.Errorf("unexpected node detail: %v", node)
	}

	// Latest execution by name
	rec = doRequest(t, router, http.MethodGet, "/api/v1/nodes/latest/done", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if latest := decodeBody(t, rec); latest["name"] != "done" {
		t.Errorf("unexpected latest node: %v", latest)
	}
}

func TestPostTaskValidation(t *testing.T) {
	server, _ := testServer(t)
	router := server.buildRouter()

	rec := doRequest(t, router, http.MethodPost, "/api/v1/tasks", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing entry, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks",
		bytes.NewReader([]byte(`{"entry": "start", "pipeline_override": {"start": {"timeout_ms": "soon"}}}`)))
	req.Header.Set("Content-Type", "application/json")
	malformed := httptest.NewRecorder()
	router.ServeHTTP(malformed, req)
	if malformed.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed override, got %d", malformed.Code)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	server, _ := testServer(t)
	router := server.buildRouter()

	rec := doRequest(t, router, http.MethodGet, "/api/v1/tasks/9999", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/tasks/not-a-number", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/nodes/latest/never-ran", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

package task

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/visionflow-core/internal/pipeline"
)

// stubPipelineRepo is a fixed-list pipeline.Repository for registry setup.
type stubPipelineRepo struct {
	docs []pipeline.Document
}

func (s *stubPipelineRepo) GetByID(context.Context, string) (*pipeline.Document, error) {
	return nil, pipeline.ErrPipelineNotFound
}

func (s *stubPipelineRepo) GetByName(context.Context, string) (*pipeline.Document, error) {
	return nil, pipeline.ErrPipelineNotFound
}

func (s *stubPipelineRepo) List(context.Context) ([]pipeline.Document, error) {
	return s.docs, nil
}

func (s *stubPipelineRepo) Create(context.Context, *pipeline.Document) error { return nil }
func (s *stubPipelineRepo) Update(context.Context, *pipeline.Document) error { return nil }
func (s *stubPipelineRepo) Delete(context.Context, string) error             { return nil }

// mockHistory records archived executions.
type mockHistory struct {
	mu    sync.Mutex
	tasks []TaskDetail
	nodes map[int64][]NodeDetail

	saveErr error
}

func newMockHistory() *mockHistory {
	return &mockHistory{nodes: make(map[int64][]NodeDetail)}
}

func (m *mockHistory) SaveTask(_ context.Context, detail TaskDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.tasks = append(m.tasks, detail.DeepCopy())
	return nil
}

func (m *mockHistory) SaveNodes(_ context.Context, taskID int64, nodes []NodeDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[taskID] = append([]NodeDetail(nil), nodes...)
	return nil
}

func (m *mockHistory) GetTask(context.Context, int64) (TaskDetail, error) {
	return TaskDetail{}, ErrTaskNotFound
}

func (m *mockHistory) ListTasks(context.Context, int) ([]TaskDetail, error) {
	return nil, nil
}

func (m *mockHistory) ListNodesByName(context.Context, string, int) ([]NodeDetail, error) {
	return nil, nil
}

func (m *mockHistory) LatestIDs(context.Context) (int64, int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var taskID, nodeID, recoID int64
	for _, task := range m.tasks {
		if task.TaskID > taskID {
			taskID = task.TaskID
		}
	}
	for _, nodes := range m.nodes {
		for _, node := range nodes {
			if node.NodeID > nodeID {
				nodeID = node.NodeID
			}
			if node.RecoID > recoID {
				recoID = node.RecoID
			}
		}
	}
	return taskID, nodeID, recoID, nil
}

func runnerRegistry(t *testing.T, definition string) *pipeline.Registry {
	t.Helper()
	nodes, err := pipeline.ParseDefinition([]byte(definition))
	if err != nil {
		t.Fatalf("bad definition: %v", err)
	}
	repo := &stubPipelineRepo{docs: []pipeline.Document{{
		ID:         "p1",
		Name:       "flow",
		Enabled:    true,
		Definition: json.RawMessage(definition),
		Nodes:      nodes,
	}}}
	reg := pipeline.NewRegistry(repo)
	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	return reg
}

type runnerFixture struct {
	tasker     *Tasker
	recognizer *scriptedRecognizer
	actuator   *mockActuator
	notifier   *recordingNotifier
	history    *mockHistory
}

func newRunnerFixture(t *testing.T, definition string) *runnerFixture {
	t.Helper()
	f := &runnerFixture{
		recognizer: &scriptedRecognizer{hits: make(map[string]Rect)},
		actuator:   &mockActuator{completed: true},
		notifier:   &recordingNotifier{},
		history:    newMockHistory(),
	}
	f.tasker = NewTasker(Deps{
		Controller:       &mockController{frame: testFrame()},
		Recognizer:       f.recognizer,
		Actuator:         f.actuator,
		Pipelines:        runnerRegistry(t, definition),
		Notifier:         f.notifier,
		History:          f.history,
		DefaultTimeout:   200,
		DefaultRateLimit: 10,
	})
	return f
}

func TestRunnerHappyPath(t *testing.T) {
	f := newRunnerFixture(t, `{
		"start": {"next": ["confirm"]},
		"confirm": {}
	}`)
	f.recognizer.hits["start"] = Rect{Width: 1, Height: 1}
	f.recognizer.hits["confirm"] = Rect{Width: 2, Height: 2}

	runner, err := NewRunner(f.tasker, "start")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	detail, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if detail.Status != StatusSucceeded {
		t.Errorf("expected succeeded, got %s", detail.Status)
	}
	if len(detail.NodeIDs) != 2 {
		t.Errorf("expected 2 executed nodes, got %v", detail.NodeIDs)
	}

	if _, ok := f.notifier.find(EventTaskStarting); !ok {
		t.Error("expected Task.Starting")
	}
	if _, ok := f.notifier.find(EventTaskSucceeded); !ok {
		t.Error("expected Task.Succeeded")
	}

	f.history.mu.Lock()
	archivedTasks := len(f.history.tasks)
	archivedNodes := len(f.history.nodes[detail.TaskID])
	f.history.mu.Unlock()
	if archivedTasks != 1 {
		t.Errorf("expected 1 archived task, got %d", archivedTasks)
	}
	if archivedNodes != 2 {
		t.Errorf("expected 2 archived nodes, got %d", archivedNodes)
	}
}

func TestRunnerFailsOnDeadline(t *testing.T) {
	f := newRunnerFixture(t, `{
		"start": {"timeout_ms": 50, "rate_limit_ms": 5, "next": ["never"]},
		"never": {}
	}`)
	// start hits; "never" never does, so the second round times out.
	f.recognizer.hits["start"] = Rect{Width: 1, Height: 1}

	runner, err := NewRunner(f.tasker, "start")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	detail, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("deadline is not an error: %v", err)
	}
	if detail.Status != StatusFailed {
		t.Errorf("expected failed, got %s", detail.Status)
	}
	if len(detail.NodeIDs) != 1 {
		t.Errorf("only start should have executed, got %v", detail.NodeIDs)
	}
	if _, ok := f.notifier.find(EventTaskFailed); !ok {
		t.Error("expected Task.Failed")
	}
}

func TestRunnerContextCancellation(t *testing.T) {
	f := newRunnerFixture(t, `{"start": {}}`)
	// No hits: the runner spins on recognition until the context dies.

	runner, err := NewRunner(f.tasker, "start")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	detail, err := runner.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
	if detail.Status != StatusFailed {
		t.Errorf("expected failed, got %s", detail.Status)
	}
}

func TestRunnerRequiresEntry(t *testing.T) {
	f := newRunnerFixture(t, `{"start": {}}`)
	if _, err := NewRunner(f.tasker, ""); !errors.Is(err, ErrNoEntry) {
		t.Errorf("expected ErrNoEntry, got: %v", err)
	}
}

func TestRunnerOverrideBeforeRun(t *testing.T) {
	f := newRunnerFixture(t, `{
		"start": {"next": ["blocked"]},
		"blocked": {"timeout_ms": 50, "rate_limit_ms": 5}
	}`)
	f.recognizer.hits["start"] = Rect{Width: 1, Height: 1}
	f.recognizer.hits["blocked"] = Rect{Width: 1, Height: 1}
	f.recognizer.hits["detour"] = Rect{Width: 1, Height: 1}

	runner, err := NewRunner(f.tasker, "start")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Redirect start away from "blocked" before running.
	patch := []byte(`{
		"start": {"next": ["detour"]},
		"detour": {}
	}`)
	if !runner.Executor().OverridePipeline(patch) {
		t.Fatal("override rejected")
	}

	detail, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if detail.Status != StatusSucceeded {
		t.Errorf("expected succeeded, got %s", detail.Status)
	}

	calls := f.recognizer.calledWith()
	for _, call := range calls {
		if call == "blocked" {
			t.Errorf("override did not take effect, calls: %v", calls)
		}
	}
}

func TestRunnerArchiveFailureIsAbsorbed(t *testing.T) {
	f := newRunnerFixture(t, `{"start": {}}`)
	f.recognizer.hits["start"] = Rect{Width: 1, Height: 1}
	f.history.saveErr = errors.New("disk full")

	runner, err := NewRunner(f.tasker, "start")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	detail, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("archive failures must not surface: %v", err)
	}
	if detail.Status != StatusSucceeded {
		t.Errorf("expected succeeded, got %s", detail.Status)
	}
}

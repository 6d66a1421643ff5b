package task

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nerrad567/visionflow-core/internal/infrastructure/database"
	_ "github.com/nerrad567/visionflow-core/migrations"
)

func openHistoryRepo(t *testing.T) *SQLiteHistoryRepository {
	t.Helper()
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "history.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return NewSQLiteHistoryRepository(db.DB)
}

func TestHistorySaveAndGetTask(t *testing.T) {
	repo := openHistoryRepo(t)
	ctx := context.Background()

	detail := TaskDetail{TaskID: 1, Entry: "start", Status: StatusRunning, NodeIDs: []int64{}}
	if err := repo.SaveTask(ctx, detail); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// Finishing a task replaces the running row.
	detail.Status = StatusSucceeded
	detail.NodeIDs = []int64{10, 11}
	if err := repo.SaveTask(ctx, detail); err != nil {
		t.Fatalf("re-save failed: %v", err)
	}

	got, err := repo.GetTask(ctx, 1)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != StatusSucceeded {
		t.Errorf("expected succeeded, got %s", got.Status)
	}
	if len(got.NodeIDs) != 2 || got.NodeIDs[1] != 11 {
		t.Errorf("unexpected node ids: %v", got.NodeIDs)
	}
}

func TestHistoryGetTaskNotFound(t *testing.T) {
	repo := openHistoryRepo(t)

	if _, err := repo.GetTask(context.Background(), 42); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got: %v", err)
	}
}

func TestHistorySaveAndListNodes(t *testing.T) {
	repo := openHistoryRepo(t)
	ctx := context.Background()

	if err := repo.SaveTask(ctx, TaskDetail{TaskID: 1, Entry: "start", Status: StatusSucceeded, NodeIDs: []int64{10, 11}}); err != nil {
		t.Fatalf("save task failed: %v", err)
	}

	nodes := []NodeDetail{
		{NodeID: 10, Name: "start", RecoID: 100, Completed: true},
		{NodeID: 11, Name: "confirm", RecoID: 101, Completed: false},
	}
	if err := repo.SaveNodes(ctx, 1, nodes); err != nil {
		t.Fatalf("save nodes failed: %v", err)
	}

	got, err := repo.ListNodesByName(ctx, "confirm", 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 node, got %d", len(got))
	}
	if got[0].NodeID != 11 || got[0].RecoID != 101 || got[0].Completed {
		t.Errorf("unexpected node: %+v", got[0])
	}
}

func TestHistoryLatestIDs(t *testing.T) {
	repo := openHistoryRepo(t)
	ctx := context.Background()

	taskID, nodeID, recoID, err := repo.LatestIDs(ctx)
	if err != nil {
		t.Fatalf("latest ids failed: %v", err)
	}
	if taskID != 0 || nodeID != 0 || recoID != 0 {
		t.Errorf("empty tables must yield zero ids, got %d/%d/%d", taskID, nodeID, recoID)
	}

	if err := repo.SaveTask(ctx, TaskDetail{TaskID: 7, Entry: "start", Status: StatusSucceeded, NodeIDs: []int64{30, 31}}); err != nil {
		t.Fatalf("save task failed: %v", err)
	}
	if err := repo.SaveNodes(ctx, 7, []NodeDetail{
		{NodeID: 30, Name: "start", RecoID: 300, Completed: true},
		{NodeID: 31, Name: "confirm", RecoID: 299, Completed: true},
	}); err != nil {
		t.Fatalf("save nodes failed: %v", err)
	}

	taskID, nodeID, recoID, err = repo.LatestIDs(ctx)
	if err != nil {
		t.Fatalf("latest ids failed: %v", err)
	}
	if taskID != 7 || nodeID != 31 || recoID != 300 {
		t.Errorf("expected 7/31/300, got %d/%d/%d", taskID, nodeID, recoID)
	}
}

func TestHistoryArchiveAfterRestart(t *testing.T) {
	repo := openHistoryRepo(t)
	ctx := context.Background()

	// First engine run archives a task.
	first := NewTasker(Deps{History: repo})
	if err := first.RestoreIDs(ctx); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if err := repo.SaveTask(ctx, TaskDetail{
		TaskID: first.ids.NextTaskID(), Entry: "start",
		Status: StatusSucceeded, NodeIDs: []int64{first.ids.NextNodeID()},
	}); err != nil {
		t.Fatalf("save task failed: %v", err)
	}
	if err := repo.SaveNodes(ctx, 1, []NodeDetail{
		{NodeID: 1, Name: "start", RecoID: first.ids.NextRecoID(), Completed: true},
	}); err != nil {
		t.Fatalf("save nodes failed: %v", err)
	}

	// A restarted engine must allocate past the archived ids, not reuse
	// them and overwrite the earlier rows.
	restarted := NewTasker(Deps{History: repo})
	if err := restarted.RestoreIDs(ctx); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	taskID := restarted.ids.NextTaskID()
	if taskID != 2 {
		t.Fatalf("expected task id 2 after restart, got %d", taskID)
	}
	if nodeID := restarted.ids.NextNodeID(); nodeID != 2 {
		t.Errorf("expected node id 2 after restart, got %d", nodeID)
	}
	if err := repo.SaveTask(ctx, TaskDetail{TaskID: taskID, Entry: "start", Status: StatusFailed, NodeIDs: []int64{}}); err != nil {
		t.Fatalf("save task failed: %v", err)
	}

	// Both runs remain queryable.
	if got, err := repo.GetTask(ctx, 1); err != nil || got.Status != StatusSucceeded {
		t.Errorf("first run corrupted: %+v, %v", got, err)
	}
	if got, err := repo.GetTask(ctx, 2); err != nil || got.Status != StatusFailed {
		t.Errorf("second run missing: %+v, %v", got, err)
	}
}

func TestHistoryListTasksNewestFirst(t *testing.T) {
	repo := openHistoryRepo(t)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		detail := TaskDetail{TaskID: id, Entry: "start", Status: StatusSucceeded, NodeIDs: []int64{}}
		if err := repo.SaveTask(ctx, detail); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	got, err := repo.ListTasks(ctx, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(got))
	}
	if got[0].TaskID != 3 || got[1].TaskID != 2 {
		t.Errorf("expected newest first, got %d then %d", got[0].TaskID, got[1].TaskID)
	}
}

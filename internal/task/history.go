package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// HistoryRepository persists finished task and node executions. The
// runtime cache answers live queries; history is the durable record.
type HistoryRepository interface {
	SaveTask(ctx context.Context, detail TaskDetail) error
	SaveNodes(ctx context.Context, taskID int64, nodes []NodeDetail) error
	GetTask(ctx context.Context, taskID int64) (TaskDetail, error)
	ListTasks(ctx context.Context, limit int) ([]TaskDetail, error)
	ListNodesByName(ctx context.Context, name string, limit int) ([]NodeDetail, error)
	LatestIDs(ctx context.Context) (taskID, nodeID, recoID int64, err error)
}

// SQLiteHistoryRepository implements HistoryRepository using SQLite.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository creates a new SQLite-backed history repository.
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

// SaveTask inserts or replaces a task execution row. Task ids come from
// the engine's counters, so REPLACE handles the running->finished update.
func (r *SQLiteHistoryRepository) SaveTask(ctx context.Context, detail TaskDetail) error {
	nodeIDs, err := json.Marshal(detail.NodeIDs)
	if err != nil {
		return fmt.Errorf("encoding node ids: %w", err)
	}

	query := `INSERT OR REPLACE INTO task_executions (task_id, entry, status, node_ids, created_at)
		VALUES (?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		detail.TaskID, detail.Entry, string(detail.Status), string(nodeIDs),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting task execution: %w", err)
	}
	return nil
}

// SaveNodes inserts the node execution rows for a task.
func (r *SQLiteHistoryRepository) SaveNodes(ctx context.Context, taskID int64, nodes []NodeDetail) error {
	if len(nodes) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT OR REPLACE INTO node_executions (node_id, task_id, name, reco_id, completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC().Format(time.RFC3339)
	for _, node := range nodes {
		if _, err := tx.ExecContext(ctx, query,
			node.NodeID, taskID, node.Name, node.RecoID, node.Completed, now); err != nil {
			return fmt.Errorf("inserting node execution %d: %w", node.NodeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing node executions: %w", err)
	}
	return nil
}

// GetTask retrieves a task execution by id.
func (r *SQLiteHistoryRepository) GetTask(ctx context.Context, taskID int64) (TaskDetail, error) {
	query := `SELECT task_id, entry, status, node_ids FROM task_executions WHERE task_id = ?`

	row := r.db.QueryRowContext(ctx, query, taskID)
	detail, err := scanTaskDetail(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TaskDetail{}, ErrTaskNotFound
		}
		return TaskDetail{}, fmt.Errorf("querying task execution: %w", err)
	}
	return detail, nil
}

// ListTasks retrieves the most recent task executions, newest first.
func (r *SQLiteHistoryRepository) ListTasks(ctx context.Context, limit int) ([]TaskDetail, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT task_id, entry, status, node_ids FROM task_executions
		ORDER BY task_id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing task executions: %w", err)
	}
	defer rows.Close()

	var details []TaskDetail
	for rows.Next() {
		detail, err := scanTaskDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task execution: %w", err)
		}
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task executions: %w", err)
	}
	return details, nil
}

// ListNodesByName retrieves the most recent node executions recorded
// under a node name, newest first.
func (r *SQLiteHistoryRepository) ListNodesByName(ctx context.Context, name string, limit int) ([]NodeDetail, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT node_id, name, reco_id, completed FROM node_executions
		WHERE name = ? ORDER BY node_id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, name, limit)
	if err != nil {
		return nil, fmt.Errorf("listing node executions: %w", err)
	}
	defer rows.Close()

	var details []NodeDetail
	for rows.Next() {
		var detail NodeDetail
		if err := rows.Scan(&detail.NodeID, &detail.Name, &detail.RecoID, &detail.Completed); err != nil {
			return nil, fmt.Errorf("scanning node execution: %w", err)
		}
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating node executions: %w", err)
	}
	return details, nil
}

// LatestIDs returns the highest archived task, node, and recognition
// ids. The tasker seeds its counters from these at startup so ids keep
// increasing across restarts instead of overwriting archived rows.
func (r *SQLiteHistoryRepository) LatestIDs(ctx context.Context) (taskID, nodeID, recoID int64, err error) {
	query := `SELECT
		(SELECT COALESCE(MAX(task_id), 0) FROM task_executions),
		(SELECT COALESCE(MAX(node_id), 0) FROM node_executions),
		(SELECT COALESCE(MAX(reco_id), 0) FROM node_executions)`

	if err := r.db.QueryRowContext(ctx, query).Scan(&taskID, &nodeID, &recoID); err != nil {
		return 0, 0, 0, fmt.Errorf("querying latest execution ids: %w", err)
	}
	return taskID, nodeID, recoID, nil
}

func scanTaskDetail(s interface{ Scan(...any) error }) (TaskDetail, error) {
	var (
		detail  TaskDetail
		status  string
		nodeIDs string
	)
	if err := s.Scan(&detail.TaskID, &detail.Entry, &status, &nodeIDs); err != nil {
		return TaskDetail{}, err
	}
	detail.Status = Status(status)
	if err := json.Unmarshal([]byte(nodeIDs), &detail.NodeIDs); err != nil {
		return TaskDetail{}, fmt.Errorf("decoding node ids: %w", err)
	}
	return detail, nil
}

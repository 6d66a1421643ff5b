package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for pipeline persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Document, error)
	GetByName(ctx context.Context, name string) (*Document, error)
	List(ctx context.Context) ([]Document, error)
	Create(ctx context.Context, doc *Document) error
	Update(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, id string) error
}

// pipelineColumns is the SELECT column list for pipeline queries.
const pipelineColumns = `id, name, definition, enabled, created_at, updated_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a pipeline document by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Document, error) {
	query := `SELECT ` + pipelineColumns + ` FROM pipelines WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPipelineNotFound
		}
		return nil, fmt.Errorf("querying pipeline by id: %w", err)
	}
	return doc, nil
}

// GetByName retrieves a pipeline document by its unique name.
func (r *SQLiteRepository) GetByName(ctx context.Context, name string) (*Document, error) {
	query := `SELECT ` + pipelineColumns + ` FROM pipelines WHERE name = ?`

	row := r.db.QueryRowContext(ctx, query, name)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPipelineNotFound
		}
		return nil, fmt.Errorf("querying pipeline by name: %w", err)
	}
	return doc, nil
}

// List retrieves all pipeline documents ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Document, error) {
	query := `SELECT ` + pipelineColumns + ` FROM pipelines ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing pipelines: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pipeline: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pipelines: %w", err)
	}
	return docs, nil
}

// Create inserts a new pipeline document.
func (r *SQLiteRepository) Create(ctx context.Context, doc *Document) error {
	query := `INSERT INTO pipelines (id, name, definition, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.Name, string(doc.Definition), doc.Enabled,
		doc.CreatedAt.Format(time.RFC3339), doc.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrPipelineExists
		}
		return fmt.Errorf("inserting pipeline: %w", err)
	}
	return nil
}

// Update replaces an existing pipeline document.
func (r *SQLiteRepository) Update(ctx context.Context, doc *Document) error {
	query := `UPDATE pipelines SET name = ?, definition = ?, enabled = ?, updated_at = ?
		WHERE id = ?`

	doc.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		doc.Name, string(doc.Definition), doc.Enabled,
		doc.UpdatedAt.Format(time.RFC3339), doc.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrPipelineExists
		}
		return fmt.Errorf("updating pipeline: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return ErrPipelineNotFound
	}
	return nil
}

// Delete removes a pipeline document by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pipelines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting pipeline: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrPipelineNotFound
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanDocument.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*Document, error) {
	var (
		doc        Document
		definition string
		createdAt  string
		updatedAt  string
	)

	if err := s.Scan(&doc.ID, &doc.Name, &definition, &doc.Enabled, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	doc.Definition = json.RawMessage(definition)
	nodes, err := ParseDefinition(doc.Definition)
	if err != nil {
		return nil, fmt.Errorf("parsing definition of %q: %w", doc.Name, err)
	}
	doc.Nodes = nodes

	if doc.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if doc.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &doc, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

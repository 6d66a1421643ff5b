package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides pipeline document management with caching and thread
// safety. It wraps a Repository and adds an in-memory cache so that node
// lookups on the execution hot path never touch the database.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-invalidating CRUD operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Document // Cached documents by name
	cacheMu sync.RWMutex         // Protects cache
	logger  Logger
}

// NewRegistry creates a new pipeline registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Document),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all pipeline documents from the repository into
// the cache. This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	docs, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading pipelines: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	// Clear and rebuild cache with deep copies
	r.cache = make(map[string]*Document, len(docs))
	for i := range docs {
		d := docs[i]
		r.cache[d.Name] = d.DeepCopy()
	}

	r.logger.Info("pipeline cache refreshed", "count", len(docs))
	return nil
}

// GetDocument retrieves a pipeline document by name.
// The returned document is a deep copy; callers can safely modify it.
func (r *Registry) GetDocument(_ context.Context, name string) (*Document, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[name]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}
	return nil, ErrPipelineNotFound
}

// GetDocumentByID retrieves a pipeline document by ID.
// The returned document is a deep copy.
func (r *Registry) GetDocumentByID(_ context.Context, id string) (*Document, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	for _, d := range r.cache {
		if d.ID == id {
			return d.DeepCopy(), nil
		}
	}
	return nil, ErrPipelineNotFound
}

// ListDocuments retrieves all documents from the cache.
// Returns deep copies sorted by name for deterministic ordering.
func (r *Registry) ListDocuments(_ context.Context) ([]Document, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	docs := make([]Document, 0, len(r.cache))
	for _, d := range r.cache {
		docs = append(docs, *d.DeepCopy())
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// CreateDocument validates, persists, and caches a new pipeline document.
// An empty ID is filled with a generated UUID. Nodes are parsed from the
// definition if not already set.
func (r *Registry) CreateDocument(ctx context.Context, doc *Document) error {
	if doc == nil {
		return ErrInvalidPipeline
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Nodes == nil {
		nodes, err := ParseDefinition(doc.Definition)
		if err != nil {
			return err
		}
		doc.Nodes = nodes
	}
	if err := ValidateDocument(doc); err != nil {
		return err
	}

	if err := r.repo.Create(ctx, doc); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[doc.Name] = doc.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("pipeline created", "name", doc.Name, "nodes", len(doc.Nodes))
	return nil
}

// UpdateDocument validates, persists, and re-caches an existing document.
func (r *Registry) UpdateDocument(ctx context.Context, doc *Document) error {
	if doc == nil {
		return ErrInvalidPipeline
	}
	if doc.Nodes == nil {
		nodes, err := ParseDefinition(doc.Definition)
		if err != nil {
			return err
		}
		doc.Nodes = nodes
	}
	if err := ValidateDocument(doc); err != nil {
		return err
	}

	if err := r.repo.Update(ctx, doc); err != nil {
		return err
	}

	r.cacheMu.Lock()
	// The name may have changed; drop any stale entry pointing at this ID.
	for name, cached := range r.cache {
		if cached.ID == doc.ID && name != doc.Name {
			delete(r.cache, name)
		}
	}
	r.cache[doc.Name] = doc.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("pipeline updated", "name", doc.Name, "nodes", len(doc.Nodes))
	return nil
}

// DeleteDocument removes a document from the repository and the cache.
func (r *Registry) DeleteDocument(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	for name, cached := range r.cache {
		if cached.ID == id {
			delete(r.cache, name)
		}
	}
	r.cacheMu.Unlock()

	r.logger.Info("pipeline deleted", "id", id)
	return nil
}

// GetNode looks up a node by name across all enabled documents.
// Documents are searched in name order so lookups are deterministic when
// two documents define the same node name. The returned node is a copy.
func (r *Registry) GetNode(name string) (NodeData, bool) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	names := make([]string, 0, len(r.cache))
	for docName := range r.cache {
		names = append(names, docName)
	}
	sort.Strings(names)

	for _, docName := range names {
		doc := r.cache[docName]
		if !doc.Enabled {
			continue
		}
		if node, ok := doc.Nodes[name]; ok {
			return node.DeepCopy(), true
		}
	}
	return NodeData{}, false
}

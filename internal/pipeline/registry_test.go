package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

// mockRepository is an in-memory Repository for registry tests.
type mockRepository struct {
	mu   sync.Mutex
	docs map[string]*Document // keyed by ID

	createErr error
	listErr   error
}

func newMockRepository() *mockRepository {
	return &mockRepository{docs: make(map[string]*Document)}
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.docs[id]; ok {
		return d.DeepCopy(), nil
	}
	return nil, ErrPipelineNotFound
}

func (m *mockRepository) GetByName(_ context.Context, name string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.Name == name {
			return d.DeepCopy(), nil
		}
	}
	return nil, ErrPipelineNotFound
}

func (m *mockRepository) List(_ context.Context) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, *d.DeepCopy())
	}
	return out, nil
}

func (m *mockRepository) Create(_ context.Context, doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, d := range m.docs {
		if d.Name == doc.Name {
			return ErrPipelineExists
		}
	}
	m.docs[doc.ID] = doc.DeepCopy()
	return nil
}

func (m *mockRepository) Update(_ context.Context, doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.ID]; !ok {
		return ErrPipelineNotFound
	}
	m.docs[doc.ID] = doc.DeepCopy()
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrPipelineNotFound
	}
	delete(m.docs, id)
	return nil
}

func testDocument(id, name string, definition string) *Document {
	nodes, err := ParseDefinition([]byte(definition))
	if err != nil {
		panic(err)
	}
	return &Document{
		ID:         id,
		Name:       name,
		Enabled:    true,
		Definition: json.RawMessage(definition),
		Nodes:      nodes,
	}
}

func TestRegistryCreateAndGet(t *testing.T) {
	repo := newMockRepository()
	reg := NewRegistry(repo)

	doc := testDocument("", "login", `{"start": {"next": ["done"]}, "done": {}}`)
	if err := reg.CreateDocument(context.Background(), doc); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if doc.ID == "" {
		t.Error("expected generated ID")
	}

	got, err := reg.GetDocument(context.Background(), "login")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got.Nodes) != 2 {
		t.Errorf("expected 2 nodes, got %d", len(got.Nodes))
	}

	// Returned document is a copy; mutating it must not affect the cache.
	got.Nodes["start"] = NodeData{Name: "start", Enabled: false}
	again, _ := reg.GetDocument(context.Background(), "login")
	if !again.Nodes["start"].Enabled {
		t.Error("cache mutated through returned copy")
	}
}

func TestRegistryCreateValidation(t *testing.T) {
	reg := NewRegistry(newMockRepository())

	err := reg.CreateDocument(context.Background(), &Document{
		Name:       "empty",
		Definition: json.RawMessage(`{}`),
	})
	if !errors.Is(err, ErrNoNodes) {
		t.Errorf("expected ErrNoNodes, got: %v", err)
	}

	err = reg.CreateDocument(context.Background(), &Document{
		Definition: json.RawMessage(`{"start": {}}`),
	})
	if !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got: %v", err)
	}
}

func TestRegistryRefreshCache(t *testing.T) {
	repo := newMockRepository()
	repo.docs["p1"] = testDocument("p1", "flow-a", `{"start": {}}`)
	repo.docs["p2"] = testDocument("p2", "flow-b", `{"other": {}}`)

	reg := NewRegistry(repo)
	if _, err := reg.GetDocument(context.Background(), "flow-a"); !errors.Is(err, ErrPipelineNotFound) {
		t.Error("expected cache miss before refresh")
	}

	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	docs, err := reg.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Name != "flow-a" || docs[1].Name != "flow-b" {
		t.Errorf("expected name-sorted order, got %q, %q", docs[0].Name, docs[1].Name)
	}
}

func TestRegistryGetNode(t *testing.T) {
	repo := newMockRepository()
	repo.docs["p1"] = testDocument("p1", "flow-a", `{"start": {"focus": true}}`)
	disabled := testDocument("p2", "flow-b", `{"hidden": {}}`)
	disabled.Enabled = false
	repo.docs["p2"] = disabled

	reg := NewRegistry(repo)
	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	node, ok := reg.GetNode("start")
	if !ok {
		t.Fatal("expected node to be found")
	}
	if !node.Focus {
		t.Error("expected focus flag")
	}

	if _, ok := reg.GetNode("hidden"); ok {
		t.Error("nodes of disabled documents must not resolve")
	}
	if _, ok := reg.GetNode("missing"); ok {
		t.Error("unknown node must not resolve")
	}
}

func TestRegistryDelete(t *testing.T) {
	repo := newMockRepository()
	reg := NewRegistry(repo)

	doc := testDocument("p1", "flow", `{"start": {}}`)
	if err := reg.CreateDocument(context.Background(), doc); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := reg.DeleteDocument(context.Background(), "p1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := reg.GetDocument(context.Background(), "flow"); !errors.Is(err, ErrPipelineNotFound) {
		t.Error("expected document gone from cache")
	}
	if _, ok := reg.GetNode("start"); ok {
		t.Error("expected node gone from cache")
	}
}

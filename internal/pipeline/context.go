package pipeline

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Context is a per-task view over the registry with an override layer.
//
// GetPipelineData is total: unknown node names resolve to a zero-value
// disabled node rather than an error, so the execution loop can treat
// every candidate uniformly. Overrides are scoped to this Context; the
// registry and other tasks never see them.
//
// All public methods are thread-safe.
type Context struct {
	registry  *Registry
	overrides map[string]NodeData
	mu        sync.RWMutex
}

// NewContext creates a context over the given registry with no overrides.
func NewContext(registry *Registry) *Context {
	return &Context{
		registry:  registry,
		overrides: make(map[string]NodeData),
	}
}

// GetPipelineData resolves a node by name: the override layer first, then
// the registry. A name found in neither yields a disabled zero-value node.
func (c *Context) GetPipelineData(name string) NodeData {
	c.mu.RLock()
	node, ok := c.overrides[name]
	c.mu.RUnlock()
	if ok {
		return node.DeepCopy()
	}

	if c.registry != nil {
		if node, ok := c.registry.GetNode(name); ok {
			return node
		}
	}
	return NodeData{Name: name}
}

// OverridePipeline merges a patch into the override layer. The patch is a
// JSON object mapping node names to partial node bodies; fields present in
// the patch replace the corresponding fields of the base node, nested
// objects merge recursively, and arrays replace wholesale. Patching a name
// with no base definition creates a new node (enabled unless the patch
// says otherwise).
//
// The merge is atomic: on any error the override layer is unchanged.
func (c *Context) OverridePipeline(patch []byte) error {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(patch, &entries); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOverride, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	merged := make(map[string]NodeData, len(entries))
	for name, raw := range entries {
		if name == "" {
			return fmt.Errorf("%w: empty node name", ErrInvalidOverride)
		}
		base, ok := c.overrides[name]
		if !ok && c.registry != nil {
			base, _ = c.registry.GetNode(name)
		}
		node, err := mergeNode(base, name, raw)
		if err != nil {
			return err
		}
		merged[name] = node
	}

	for name, node := range merged {
		c.overrides[name] = node
	}
	return nil
}

// mergeNode applies a partial JSON body on top of a base node. A zero
// base (Name empty) means the patch defines a brand-new node, so enabled
// defaults to true as in ParseDefinition.
func mergeNode(base NodeData, name string, patch json.RawMessage) (NodeData, error) {
	if base.Name == "" {
		base = NodeData{Name: name, Enabled: true}
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return NodeData{}, fmt.Errorf("%w: %v", ErrInvalidOverride, err)
	}
	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return NodeData{}, fmt.Errorf("%w: %v", ErrInvalidOverride, err)
	}

	var patchMap map[string]any
	if err := json.Unmarshal(patch, &patchMap); err != nil {
		return NodeData{}, fmt.Errorf("%w: node %q: %v", ErrInvalidOverride, name, err)
	}

	mergeMap(baseMap, patchMap)

	mergedJSON, err := json.Marshal(baseMap)
	if err != nil {
		return NodeData{}, fmt.Errorf("%w: %v", ErrInvalidOverride, err)
	}
	var node rawNode
	if err := json.Unmarshal(mergedJSON, &node); err != nil {
		return NodeData{}, fmt.Errorf("%w: node %q: %v", ErrInvalidOverride, name, err)
	}
	return node.toNodeData(name), nil
}

// mergeMap merges src into dst in place. Nested maps merge recursively;
// everything else (including arrays) replaces the destination value.
func mergeMap(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			mergeMap(dstMap, srcMap)
			continue
		}
		dst[k] = deepCopyValue(v)
	}
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		cpy := make(map[string]any, len(val))
		for k, elem := range val {
			cpy[k] = deepCopyValue(elem)
		}
		return cpy
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v // Primitives are immutable
	}
}

package pipeline

import (
	"encoding/json"
	"fmt"
	"time"
)

// NodeData is a single pipeline node: the unit the task engine evaluates.
//
// Recognition and Action are kept as raw JSON; their shape depends on the
// "type" field inside them and is interpreted by the vision and actuator
// packages respectively. An absent Recognition means direct hit (always
// matches); an absent Action means do nothing.
type NodeData struct {
	Name        string          `json:"name"`
	Enabled     bool            `json:"enabled"`
	Focus       bool            `json:"focus,omitempty"`
	Recognition json.RawMessage `json:"recognition,omitempty"`
	Action      json.RawMessage `json:"action,omitempty"`
	Next        []string        `json:"next,omitempty"`
	TimeoutMS   int             `json:"timeout_ms,omitempty"`
	RateLimitMS int             `json:"rate_limit_ms,omitempty"`
}

// DeepCopy creates an independent copy of the node.
func (n NodeData) DeepCopy() NodeData {
	cpy := n
	cpy.Recognition = cloneRaw(n.Recognition)
	cpy.Action = cloneRaw(n.Action)
	if n.Next != nil {
		cpy.Next = make([]string, len(n.Next))
		copy(cpy.Next, n.Next)
	}
	return cpy
}

// Document is a named collection of pipeline nodes as stored in the
// repository. Definition holds the original JSON object keyed by node
// name; Nodes is the parsed form.
type Document struct {
	ID         string
	Name       string
	Enabled    bool
	Definition json.RawMessage
	Nodes      map[string]NodeData
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DeepCopy creates an independent copy of the document.
func (d *Document) DeepCopy() *Document {
	if d == nil {
		return nil
	}
	cpy := *d
	cpy.Definition = cloneRaw(d.Definition)
	if d.Nodes != nil {
		cpy.Nodes = make(map[string]NodeData, len(d.Nodes))
		for name, node := range d.Nodes {
			cpy.Nodes[name] = node.DeepCopy()
		}
	}
	return &cpy
}

// rawNode mirrors NodeData with pointer fields so that absent keys can be
// distinguished from zero values during parsing. Enabled defaults to true
// when the key is missing.
type rawNode struct {
	Enabled     *bool           `json:"enabled"`
	Focus       bool            `json:"focus"`
	Recognition json.RawMessage `json:"recognition"`
	Action      json.RawMessage `json:"action"`
	Next        []string        `json:"next"`
	TimeoutMS   int             `json:"timeout_ms"`
	RateLimitMS int             `json:"rate_limit_ms"`
}

func (r rawNode) toNodeData(name string) NodeData {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	return NodeData{
		Name:        name,
		Enabled:     enabled,
		Focus:       r.Focus,
		Recognition: r.Recognition,
		Action:      r.Action,
		Next:        r.Next,
		TimeoutMS:   r.TimeoutMS,
		RateLimitMS: r.RateLimitMS,
	}
}

// ParseDefinition parses a pipeline definition: a JSON object mapping
// node names to node bodies. Node names must be non-empty.
func ParseDefinition(data []byte) (map[string]NodeData, error) {
	var raw map[string]rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPipeline, err)
	}

	nodes := make(map[string]NodeData, len(raw))
	for name, body := range raw {
		if name == "" {
			return nil, fmt.Errorf("%w: empty node name", ErrInvalidNode)
		}
		nodes[name] = body.toNodeData(name)
	}
	return nodes, nil
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	cpy := make(json.RawMessage, len(raw))
	copy(cpy, raw)
	return cpy
}

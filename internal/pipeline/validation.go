package pipeline

import "fmt"

// Validation limits. Documents breaching these are rejected before they
// reach the repository.
const (
	maxNameLength = 100
	maxNodes      = 500
	maxNextLength = 64
)

// ValidateName checks that a pipeline or node name is usable.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateDocument checks a document before it is created or updated.
//
// Next entries may reference nodes in other documents, so targets are not
// resolved here; resolution happens at execution time where unknown names
// evaluate as disabled nodes.
func ValidateDocument(d *Document) error {
	if d == nil {
		return ErrInvalidPipeline
	}
	if err := ValidateName(d.Name); err != nil {
		return err
	}
	if len(d.Nodes) == 0 {
		return ErrNoNodes
	}
	if len(d.Nodes) > maxNodes {
		return fmt.Errorf("%w: exceeds maximum of %d nodes", ErrInvalidPipeline, maxNodes)
	}

	for name, node := range d.Nodes {
		if err := ValidateName(name); err != nil {
			return fmt.Errorf("%w: node %q: %v", ErrInvalidNode, name, err)
		}
		if len(node.Next) > maxNextLength {
			return fmt.Errorf("%w: node %q: next list exceeds %d entries", ErrInvalidNode, name, maxNextLength)
		}
		if node.TimeoutMS < 0 {
			return fmt.Errorf("%w: node %q: negative timeout", ErrInvalidNode, name)
		}
		if node.RateLimitMS < 0 {
			return fmt.Errorf("%w: node %q: negative rate limit", ErrInvalidNode, name)
		}
		for _, next := range node.Next {
			if next == "" {
				return fmt.Errorf("%w: node %q: empty next entry", ErrInvalidNode, name)
			}
		}
	}
	return nil
}

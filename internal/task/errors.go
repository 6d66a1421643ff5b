package task

import "errors"

// Sentinel errors for task operations.
// Callers use errors.Is() to check error types.
var (
	// ErrTaskNotFound is returned when a task detail does not exist.
	ErrTaskNotFound = errors.New("task: not found")

	// ErrNodeNotFound is returned when a node detail does not exist.
	ErrNodeNotFound = errors.New("task: node not found")

	// ErrNoEntry is returned when a task is posted without an entry node.
	ErrNoEntry = errors.New("task: no entry")
)

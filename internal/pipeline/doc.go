// Package pipeline provides the node model used by the task engine.
//
// A pipeline document is a JSON object mapping node names to node
// definitions. Each node declares a recognition condition, an action,
// and the candidate list ("next") evaluated after the action runs.
// Documents are persisted in SQLite and served from an in-memory
// registry; per-task overrides are layered on top by Context without
// touching the stored documents.
//
// The package exposes three collaborating pieces:
//
//   - Repository: SQLite persistence for pipeline documents.
//   - Registry: thread-safe cached lookup across all enabled documents.
//   - Context: a per-task view that supports pipeline_override patches.
package pipeline

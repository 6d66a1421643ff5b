// Package task implements the execution engine: the loop that captures
// frames, dispatches recognition over a candidate list, dispatches the
// matched node's action, and records what happened.
//
// The package is organised around a few collaborating pieces:
//
//   - Tasker: owns the shared runtime (id counters, runtime cache,
//     injected collaborators) and hands out per-task Executors.
//   - Executor: the per-task primitive operations — RunRecognition,
//     RunAction, Screencap — mirroring one pass of the execution loop.
//   - Runner: drives an Executor from an entry node until the pipeline
//     completes or times out, archiving the result.
//   - RuntimeCache: in-memory detail store queried by the API while and
//     after a task runs.
//
// Collaborators (controller, recognizer, actuator, notifier, metrics)
// are small interfaces injected into the Tasker, so the engine can be
// tested without MQTT, a vision stack, or a database.
//
// Failure semantics: recognition misses, empty frames, and incomplete
// actions are ordinary outcomes, not errors. The primitive operations
// absorb them into empty results and keep the loop alive; only context
// cancellation aborts a run.
package task

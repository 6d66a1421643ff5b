package task

import (
	"context"
	"fmt"

	"github.com/nerrad567/visionflow-core/internal/pipeline"
)

// Deps carries the collaborators a Tasker needs. Controller, Recognizer,
// Actuator, and Pipelines are required; the rest default to no-ops.
type Deps struct {
	Controller Controller
	Recognizer Recognizer
	Actuator   Actuator
	Pipelines  *pipeline.Registry
	Notifier   Notifier
	Metrics    Metrics
	History    HistoryRepository
	Logger     Logger

	// DebugMode forces focus notifications for every node.
	DebugMode bool

	// DefaultTimeout and DefaultRateLimit (milliseconds) apply to nodes
	// that do not set their own.
	DefaultTimeout   int
	DefaultRateLimit int
}

// Tasker owns the shared execution runtime: the id counters, the runtime
// cache, and the injected collaborators. It hands out per-task Executors
// and Runners; the Tasker itself holds no per-task state.
//
// Safe for concurrent use.
type Tasker struct {
	controller Controller
	recognizer Recognizer
	actuator   Actuator
	pipelines  *pipeline.Registry
	notifier   Notifier
	metrics    Metrics
	history    HistoryRepository
	logger     Logger

	debugMode        bool
	defaultTimeout   int
	defaultRateLimit int

	ids   *IDGenerator
	cache *RuntimeCache
}

// NewTasker creates a tasker from the given dependencies.
func NewTasker(deps Deps) *Tasker {
	t := &Tasker{
		controller:       deps.Controller,
		recognizer:       deps.Recognizer,
		actuator:         deps.Actuator,
		pipelines:        deps.Pipelines,
		notifier:         deps.Notifier,
		metrics:          deps.Metrics,
		history:          deps.History,
		logger:           deps.Logger,
		debugMode:        deps.DebugMode,
		defaultTimeout:   deps.DefaultTimeout,
		defaultRateLimit: deps.DefaultRateLimit,
		ids:              NewIDGenerator(),
		cache:            NewRuntimeCache(),
	}
	if t.notifier == nil {
		t.notifier = noopNotifier{}
	}
	if t.metrics == nil {
		t.metrics = noopMetrics{}
	}
	if t.logger == nil {
		t.logger = noopLogger{}
	}
	return t
}

// RestoreIDs seeds the id counters from the highest archived ids so a
// restarted engine keeps allocating past rows written by earlier runs.
// A no-op without a history repository.
func (t *Tasker) RestoreIDs(ctx context.Context) error {
	if t.history == nil {
		return nil
	}
	taskID, nodeID, recoID, err := t.history.LatestIDs(ctx)
	if err != nil {
		return fmt.Errorf("restoring id counters: %w", err)
	}
	t.ids.Seed(taskID, nodeID, recoID)
	return nil
}

// RuntimeCache exposes the detail store for API queries.
func (t *Tasker) RuntimeCache() *RuntimeCache {
	return t.cache
}

// History exposes the execution history repository, which may be nil.
func (t *Tasker) History() HistoryRepository {
	return t.history
}

// DebugMode reports whether focus notifications are forced globally.
func (t *Tasker) DebugMode() bool {
	return t.debugMode
}

// NewExecutor creates an executor for one task rooted at entry, backed
// by a fresh pipeline context so overrides stay scoped to this task.
func (t *Tasker) NewExecutor(entry string) *Executor {
	return t.NewExecutorWithContext(entry, pipeline.NewContext(t.pipelines))
}

// NewExecutorWithContext creates an executor with an explicit pipeline
// context, allowing callers to share or pre-seed override layers.
func (t *Tasker) NewExecutorWithContext(entry string, pctx PipelineContext) *Executor {
	return newExecutor(t, entry, pctx)
}

func (t *Tasker) notify(kind string, detail map[string]any) {
	t.notifier.Notify(kind, detail)
}

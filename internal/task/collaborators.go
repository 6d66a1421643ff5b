package task

import (
	"context"
	"time"

	"github.com/nerrad567/visionflow-core/internal/pipeline"
)

// Logger defines the logging interface used by the engine.
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

// PipelineContext resolves node definitions for one task. It is total:
// unknown names resolve to disabled zero-value nodes.
type PipelineContext interface {
	GetPipelineData(name string) pipeline.NodeData
	OverridePipeline(patch []byte) error
}

// Controller abstracts the controlled target: frame capture plus the
// input primitives actions are built from.
type Controller interface {
	Screencap(ctx context.Context) (Frame, error)
	Tap(ctx context.Context, x, y int) error
	Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error
	PressKey(ctx context.Context, key int) error
}

// Recognizer evaluates one node's recognition condition against a frame.
// Implementations fill Box and Detail only; the engine assigns RecoID
// and Name. A failed evaluation is reported as a miss, not an error.
type Recognizer interface {
	Recognize(ctx context.Context, frame Frame, data pipeline.NodeData) RecoResult
}

// Actuator executes one node's action against the controlled target.
// The returned bool reports completion; failures are ordinary outcomes.
type Actuator interface {
	Run(ctx context.Context, box Rect, recoID int64, data pipeline.NodeData) bool
}

// Notifier receives execution events. Implementations must not block;
// delivery is fire and forget and a slow consumer must not stall the
// execution loop.
type Notifier interface {
	Notify(kind string, detail map[string]any)
}

// noopNotifier discards all notifications.
type noopNotifier struct{}

func (noopNotifier) Notify(string, map[string]any) {}

// Metrics receives execution telemetry. The no-op implementation is
// used when telemetry is disabled.
type Metrics interface {
	RecordRecognition(name string, hit bool, duration time.Duration)
	RecordAction(name string, completed bool, duration time.Duration)
	RecordTask(entry string, status string, nodes int, duration time.Duration)
}

// noopMetrics discards all telemetry.
type noopMetrics struct{}

func (noopMetrics) RecordRecognition(string, bool, time.Duration) {}
func (noopMetrics) RecordAction(string, bool, time.Duration)      {}
func (noopMetrics) RecordTask(string, string, int, time.Duration) {}

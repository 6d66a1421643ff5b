package actuator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nerrad567/visionflow-core/internal/pipeline"
	"github.com/nerrad567/visionflow-core/internal/task"
)

// Logger defines the logging interface used by the actuator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Action types accepted in a node's action body.
const (
	TypeClick     = "click"
	TypeSwipe     = "swipe"
	TypePressKey  = "press_key"
	TypeWait      = "wait"
	TypeDoNothing = "do_nothing"
)

// params is the union of all action body fields.
type params struct {
	Type string `json:"type"`

	// click: optional [x, y, w, h] target; defaults to the match box.
	Target []int `json:"target"`

	// swipe
	Begin      []int `json:"begin"`
	End        []int `json:"end"`
	DurationMS int   `json:"duration_ms"`

	// press_key
	Key int `json:"key"`

	// wait
	WaitMS int `json:"wait_ms"`
}

// Actuator dispatches action bodies to controller input primitives.
// Implements the engine's Actuator interface. Safe for concurrent use.
type Actuator struct {
	controller task.Controller
	logger     Logger
}

// New creates an actuator driving the given controller.
func New(controller task.Controller) *Actuator {
	return &Actuator{controller: controller, logger: noopLogger{}}
}

// SetLogger sets the logger for the actuator.
func (a *Actuator) SetLogger(logger Logger) {
	a.logger = logger
}

// Run executes one node's action. The box is the recognition match the
// action fires on; click targets default to its center. A nil or empty
// action body is do_nothing.
func (a *Actuator) Run(ctx context.Context, box task.Rect, recoID int64, data pipeline.NodeData) bool {
	p := params{Type: TypeDoNothing}
	if len(data.Action) > 0 {
		if err := json.Unmarshal(data.Action, &p); err != nil {
			a.logger.Error("malformed action body", "node", data.Name, "error", err)
			return false
		}
		if p.Type == "" {
			p.Type = TypeDoNothing
		}
	}

	a.logger.Debug("running action",
		"node", data.Name, "type", p.Type, "reco_id", recoID)

	switch p.Type {
	case TypeDoNothing:
		return true
	case TypeClick:
		return a.click(ctx, box, p, data.Name)
	case TypeSwipe:
		return a.swipe(ctx, p, data.Name)
	case TypePressKey:
		return a.pressKey(ctx, p, data.Name)
	case TypeWait:
		return a.wait(ctx, p)
	default:
		a.logger.Error("unknown action type", "node", data.Name, "type", p.Type)
		return false
	}
}

func (a *Actuator) click(ctx context.Context, box task.Rect, p params, node string) bool {
	target := box
	if len(p.Target) == 4 {
		target = task.Rect{X: p.Target[0], Y: p.Target[1], Width: p.Target[2], Height: p.Target[3]}
	} else if len(p.Target) != 0 {
		a.logger.Error("invalid click target", "node", node, "target", p.Target)
		return false
	}

	x, y := target.Center()
	if err := a.controller.Tap(ctx, x, y); err != nil {
		a.logger.Error("tap failed", "node", node, "x", x, "y", y, "error", err)
		return false
	}
	return true
}

func (a *Actuator) swipe(ctx context.Context, p params, node string) bool {
	if len(p.Begin) != 2 || len(p.End) != 2 {
		a.logger.Error("invalid swipe endpoints", "node", node, "begin", p.Begin, "end", p.End)
		return false
	}
	duration := time.Duration(p.DurationMS) * time.Millisecond
	if duration <= 0 {
		duration = 200 * time.Millisecond
	}

	err := a.controller.Swipe(ctx, p.Begin[0], p.Begin[1], p.End[0], p.End[1], duration)
	if err != nil {
		a.logger.Error("swipe failed", "node", node, "error", err)
		return false
	}
	return true
}

func (a *Actuator) pressKey(ctx context.Context, p params, node string) bool {
	if err := a.controller.PressKey(ctx, p.Key); err != nil {
		a.logger.Error("press key failed", "node", node, "key", p.Key, "error", err)
		return false
	}
	return true
}

func (a *Actuator) wait(ctx context.Context, p params) bool {
	if p.WaitMS <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(time.Duration(p.WaitMS) * time.Millisecond):
		return true
	}
}

package vision

import (
	"context"
	"encoding/json"
	"image"

	"github.com/nerrad567/visionflow-core/internal/pipeline"
	"github.com/nerrad567/visionflow-core/internal/task"
)

// Logger defines the logging interface used by the engine.
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

// Recognition algorithm types accepted in a node's recognition body.
const (
	TypeDirectHit  = "direct_hit"
	TypeColorMatch = "color_match"
)

// params is the union of all recognition body fields. Type selects the
// algorithm; the rest apply per type.
type params struct {
	Type string `json:"type"`

	// ROI restricts evaluation to [x, y, width, height]. Empty means
	// the whole frame.
	ROI []int `json:"roi"`

	// color_match: inclusive RGB bounds and the pixel count threshold.
	Lower []int `json:"lower"`
	Upper []int `json:"upper"`
	Count int   `json:"count"`
}

// Engine dispatches recognition bodies to their algorithm.
// Implements the engine's Recognizer interface. Safe for concurrent use.
type Engine struct {
	logger Logger
}

// NewEngine creates a recognition engine.
func NewEngine() *Engine {
	return &Engine{logger: noopLogger{}}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// Recognize evaluates one node's recognition condition against a frame.
// A nil or empty recognition body is a direct hit.
func (e *Engine) Recognize(_ context.Context, frame task.Frame, data pipeline.NodeData) task.RecoResult {
	if frame.Empty() {
		return task.RecoResult{}
	}

	p := params{Type: TypeDirectHit, Count: 1}
	if len(data.Recognition) > 0 {
		if err := json.Unmarshal(data.Recognition, &p); err != nil {
			e.logger.Error("malformed recognition body", "node", data.Name, "error", err)
			return task.RecoResult{}
		}
		if p.Type == "" {
			p.Type = TypeDirectHit
		}
		if p.Count <= 0 {
			p.Count = 1
		}
	}

	roi, ok := resolveROI(frame.Image.Bounds(), p.ROI)
	if !ok {
		e.logger.Warn("recognition ROI outside frame", "node", data.Name, "roi", p.ROI)
		return task.RecoResult{}
	}

	switch p.Type {
	case TypeDirectHit:
		return task.RecoResult{Box: task.Hit(roi)}
	case TypeColorMatch:
		return e.colorMatch(frame.Image, roi, p, data.Name)
	default:
		e.logger.Error("unknown recognition type", "node", data.Name, "type", p.Type)
		return task.RecoResult{}
	}
}

// colorMatch counts ROI pixels whose RGB falls inside [lower, upper].
// The match box is the bounding box of the matching pixels.
func (e *Engine) colorMatch(img image.Image, roi task.Rect, p params, node string) task.RecoResult {
	lower, ok := rgbBound(p.Lower, 0)
	if !ok {
		e.logger.Error("invalid color_match lower bound", "node", node, "lower", p.Lower)
		return task.RecoResult{}
	}
	upper, ok := rgbBound(p.Upper, 255)
	if !ok {
		e.logger.Error("invalid color_match upper bound", "node", node, "upper", p.Upper)
		return task.RecoResult{}
	}

	count := 0
	minX, minY := roi.X+roi.Width, roi.Y+roi.Height
	maxX, maxY := roi.X-1, roi.Y-1

	for y := roi.Y; y < roi.Y+roi.Height; y++ {
		for x := roi.X; x < roi.X+roi.Width; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// RGBA returns 16-bit channels; compare in 8-bit space.
			r8, g8, b8 := int(r>>8), int(g>>8), int(b>>8)
			if r8 < lower[0] || r8 > upper[0] ||
				g8 < lower[1] || g8 > upper[1] ||
				b8 < lower[2] || b8 > upper[2] {
				continue
			}
			count++
			if x < minX {
				minX = x
			}
			if y < minY {
				minY = y
			}
			if x > maxX {
				maxX = x
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	detail, _ := json.Marshal(map[string]any{"count": count, "threshold": p.Count})
	if count < p.Count {
		return task.RecoResult{Detail: detail}
	}

	box := task.Rect{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}
	return task.RecoResult{Box: task.Hit(box), Detail: detail}
}

// resolveROI clamps an [x, y, w, h] ROI to the frame bounds. An empty
// ROI means the whole frame; an ROI fully outside the frame is invalid.
func resolveROI(bounds image.Rectangle, roi []int) (task.Rect, bool) {
	if len(roi) == 0 {
		return task.Rect{
			X:      bounds.Min.X,
			Y:      bounds.Min.Y,
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		}, true
	}
	if len(roi) != 4 {
		return task.Rect{}, false
	}

	r := image.Rect(roi[0], roi[1], roi[0]+roi[2], roi[1]+roi[3]).Intersect(bounds)
	if r.Empty() {
		return task.Rect{}, false
	}
	return task.Rect{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}, true
}

// rgbBound validates a 3-element RGB bound, substituting def for an
// absent bound.
func rgbBound(values []int, def int) ([3]int, bool) {
	if len(values) == 0 {
		return [3]int{def, def, def}, true
	}
	if len(values) != 3 {
		return [3]int{}, false
	}
	var out [3]int
	for i, v := range values {
		if v < 0 || v > 255 {
			return [3]int{}, false
		}
		out[i] = v
	}
	return out, true
}

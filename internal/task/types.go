package task

import (
	"encoding/json"
	"image"
)

// Rect is a rectangular region in frame coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() (x, y int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// MatchBox is the outcome of a recognition attempt: either a hit with a
// region, or a miss. The zero value is a miss.
type MatchBox struct {
	Rect  Rect `json:"rect"`
	Valid bool `json:"valid"`
}

// Hit wraps a region as a successful match.
func Hit(rect Rect) MatchBox {
	return MatchBox{Rect: rect, Valid: true}
}

// Frame is a captured screen image. The zero value is the empty frame.
type Frame struct {
	Image image.Image
}

// Empty reports whether the frame carries no usable image data.
func (f Frame) Empty() bool {
	if f.Image == nil {
		return true
	}
	b := f.Image.Bounds()
	return b.Dx() <= 0 || b.Dy() <= 0
}

// RecoResult is the outcome of running recognition for one node.
// RecoID is assigned by the engine, not the recognizer; a zero RecoID
// means no recognition was attempted.
type RecoResult struct {
	RecoID int64           `json:"reco_id"`
	Name   string          `json:"name"`
	Box    MatchBox        `json:"box"`
	Detail json.RawMessage `json:"detail,omitempty"`
}

// Hit reports whether the recognition found a match.
func (r RecoResult) Hit() bool {
	return r.Box.Valid
}

// NodeDetail records one executed node: which recognition triggered it
// and whether its action ran to completion. The zero value (NodeID 0)
// is the empty record.
type NodeDetail struct {
	NodeID    int64  `json:"node_id"`
	Name      string `json:"name"`
	RecoID    int64  `json:"reco_id"`
	Completed bool   `json:"completed"`
}

// Status describes where a task is in its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// TaskDetail is the accumulated record of one task: its entry node, its
// lifecycle status, and the node executions in order.
type TaskDetail struct {
	TaskID  int64   `json:"task_id"`
	Entry   string  `json:"entry"`
	Status  Status  `json:"status"`
	NodeIDs []int64 `json:"node_ids"`
}

// DeepCopy creates an independent copy of the task detail.
func (d TaskDetail) DeepCopy() TaskDetail {
	cpy := d
	if d.NodeIDs != nil {
		cpy.NodeIDs = make([]int64, len(d.NodeIDs))
		copy(cpy.NodeIDs, d.NodeIDs)
	}
	return cpy
}

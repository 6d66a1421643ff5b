package task

import (
	"context"
	"time"

	"github.com/nerrad567/visionflow-core/internal/pipeline"
)

// Executor exposes the primitive operations of one task: capture a
// frame, run recognition over a candidate list, run the matched node's
// action. A Runner composes these into the full loop; embedding callers
// (custom recognitions and actions) can drive them directly.
//
// Failures are absorbed, not raised: a nil pipeline context, an empty
// frame, or a miss on every candidate all yield empty results, and the
// caller decides what that means.
type Executor struct {
	tasker *Tasker
	pctx   PipelineContext
	logger Logger

	taskID int64
	entry  string
	cur    string // node currently considered executing; drives focus
}

func newExecutor(t *Tasker, entry string, pctx PipelineContext) *Executor {
	e := &Executor{
		tasker: t,
		pctx:   pctx,
		logger: t.logger,
		taskID: t.ids.NextTaskID(),
		entry:  entry,
		cur:    entry,
	}
	// The task detail exists from birth so queries during the run see it.
	e.setTaskDetail(TaskDetail{TaskID: e.taskID, Entry: entry, Status: StatusPending})
	return e
}

// TaskID returns the identifier allocated to this task.
func (e *Executor) TaskID() int64 { return e.taskID }

// Entry returns the entry node name.
func (e *Executor) Entry() string { return e.entry }

// CurrentNode returns the node the executor considers executing.
func (e *Executor) CurrentNode() string { return e.cur }

// SetCurrentNode moves the executing-node marker; the Runner calls this
// after each hit so focus gating follows the pipeline.
func (e *Executor) SetCurrentNode(name string) { e.cur = name }

// Screencap captures a frame from the controller. Returns the empty
// frame when no controller is wired or the capture fails.
func (e *Executor) Screencap(ctx context.Context) Frame {
	if e.tasker.controller == nil {
		e.logger.Error("screencap requested without a controller", "task_id", e.taskID)
		return Frame{}
	}
	frame, err := e.tasker.controller.Screencap(ctx)
	if err != nil {
		e.logger.Error("screencap failed", "task_id", e.taskID, "error", err)
		return Frame{}
	}
	return frame
}

// OverridePipeline applies a patch to this task's pipeline context.
func (e *Executor) OverridePipeline(patch []byte) bool {
	if e.pctx == nil {
		e.logger.Error("override requested without a pipeline context", "task_id", e.taskID)
		return false
	}
	if err := e.pctx.OverridePipeline(patch); err != nil {
		e.logger.Error("pipeline override rejected", "task_id", e.taskID, "error", err)
		return false
	}
	return true
}

// GetPipelineData resolves a node through this task's pipeline context.
func (e *Executor) GetPipelineData(name string) (pipeline.NodeData, bool) {
	if e.pctx == nil {
		return pipeline.NodeData{}, false
	}
	return e.pctx.GetPipelineData(name), true
}

// RunRecognition evaluates the candidate list in order against the frame
// and returns the first hit. Disabled candidates are skipped silently.
// Returns the zero RecoResult when the context is missing, the frame is
// empty, or every candidate misses.
//
// Recognition notifications are gated per candidate by debug mode or the
// candidate's focus flag; list notifications are gated by debug mode or
// the focus flag of the currently executing node.
func (e *Executor) RunRecognition(ctx context.Context, frame Frame, list []string) RecoResult {
	if e.pctx == nil {
		e.logger.Error("recognition requested without a pipeline context", "task_id", e.taskID)
		return RecoResult{}
	}
	if frame.Empty() {
		e.logger.Error("recognition requested with an empty frame", "task_id", e.taskID, "list", list)
		return RecoResult{}
	}

	debug := e.tasker.DebugMode()
	curFocus := e.pctx.GetPipelineData(e.cur).Focus

	if debug || curFocus {
		e.notify(EventNextListStarting, listDetail(e.taskID, e.cur, list))
	}

	for _, name := range list {
		data := e.pctx.GetPipelineData(name)
		if !data.Enabled {
			e.logger.Debug("skipping disabled candidate", "task_id", e.taskID, "node", name)
			continue
		}

		if debug || data.Focus {
			e.notify(EventRecognitionStarting, recognitionDetail(e.taskID, 0, name))
		}

		start := time.Now()
		result := e.tasker.recognizer.Recognize(ctx, frame, data)
		result.Name = name
		result.RecoID = e.tasker.ids.NextRecoID()
		e.tasker.metrics.RecordRecognition(name, result.Hit(), time.Since(start))

		if result.Hit() {
			if debug || data.Focus {
				e.notify(EventRecognitionSucceeded, recognitionDetail(e.taskID, result.RecoID, name))
			}
			e.logger.Info("recognition hit",
				"task_id", e.taskID, "node", name, "reco_id", result.RecoID,
				"box", result.Box.Rect)
			if debug || curFocus {
				e.notify(EventNextListSucceeded, listDetail(e.taskID, e.cur, list))
			}
			return result
		}

		if debug || data.Focus {
			e.notify(EventRecognitionFailed, recognitionDetail(e.taskID, result.RecoID, name))
		}
	}

	if debug || curFocus {
		e.notify(EventNextListFailed, listDetail(e.taskID, e.cur, list))
	}
	return RecoResult{}
}

// RunAction executes the matched node's action and records the node
// detail. A node id is allocated and the detail recorded even when the
// action does not complete; Completed carries the outcome. Returns the
// zero NodeDetail when the context is missing or the result is a miss.
//
// Action notifications are gated by debug mode or the node's focus flag.
func (e *Executor) RunAction(ctx context.Context, reco RecoResult) NodeDetail {
	if e.pctx == nil {
		e.logger.Error("action requested without a pipeline context", "task_id", e.taskID)
		return NodeDetail{}
	}
	if !reco.Hit() {
		e.logger.Error("action requested without a recognition hit",
			"task_id", e.taskID, "node", reco.Name)
		return NodeDetail{}
	}

	data := e.pctx.GetPipelineData(reco.Name)
	focused := e.tasker.DebugMode() || data.Focus

	if focused {
		e.notify(EventActionStarting, actionDetail(e.taskID, 0, reco.Name))
	}

	start := time.Now()
	completed := false
	if e.tasker.actuator != nil {
		completed = e.tasker.actuator.Run(ctx, reco.Box.Rect, reco.RecoID, data)
	} else {
		e.logger.Error("action requested without an actuator", "task_id", e.taskID, "node", reco.Name)
	}
	e.tasker.metrics.RecordAction(reco.Name, completed, time.Since(start))

	detail := NodeDetail{
		NodeID:    e.tasker.ids.NextNodeID(),
		Name:      reco.Name,
		RecoID:    reco.RecoID,
		Completed: completed,
	}
	e.setNodeDetail(detail)

	if focused {
		if completed {
			e.notify(EventActionSucceeded, actionDetail(e.taskID, detail.NodeID, reco.Name))
		} else {
			e.notify(EventActionFailed, actionDetail(e.taskID, detail.NodeID, reco.Name))
		}
	}
	return detail
}

// setNodeDetail records a node execution: the detail itself, the latest
// marker for its name, and the append onto the owning task's history.
func (e *Executor) setNodeDetail(detail NodeDetail) {
	cache := e.tasker.cache
	cache.SetNodeDetail(detail)
	cache.SetLatestNode(detail.Name, detail.NodeID)

	taskDetail, ok := cache.GetTaskDetail(e.taskID)
	if !ok {
		taskDetail = TaskDetail{TaskID: e.taskID, Entry: e.entry, Status: StatusRunning}
	}
	taskDetail.NodeIDs = append(taskDetail.NodeIDs, detail.NodeID)
	e.setTaskDetail(taskDetail)
}

func (e *Executor) setTaskDetail(detail TaskDetail) {
	e.tasker.cache.SetTaskDetail(detail)
}

func (e *Executor) notify(kind string, detail map[string]any) {
	e.tasker.notify(kind, detail)
}

package task

import (
	"context"
	"time"
)

// Runner drives one task from its entry node to completion. Each round
// captures a frame, runs recognition over the current candidate list,
// and on a hit runs the action and follows the node's next list. The
// round repeats under a per-node deadline with a rate limit between
// captures; a deadline expiring fails the task.
type Runner struct {
	tasker *Tasker
	exec   *Executor
	logger Logger
}

// NewRunner creates a runner for one task rooted at entry.
func NewRunner(t *Tasker, entry string) (*Runner, error) {
	if entry == "" {
		return nil, ErrNoEntry
	}
	return &Runner{
		tasker: t,
		exec:   t.NewExecutor(entry),
		logger: t.logger,
	}, nil
}

// Executor returns the underlying executor, exposed so callers can apply
// pipeline overrides before Run.
func (r *Runner) Executor() *Executor {
	return r.exec
}

// TaskID returns the identifier allocated to this task.
func (r *Runner) TaskID() int64 {
	return r.exec.TaskID()
}

// Run executes the task to completion. The returned detail carries the
// final status; the error is non-nil only for context cancellation.
func (r *Runner) Run(ctx context.Context) (TaskDetail, error) {
	exec := r.exec
	taskID := exec.TaskID()
	entry := exec.Entry()
	start := time.Now()

	r.updateStatus(StatusRunning)
	r.tasker.notify(EventTaskStarting, taskDetailPayload(taskID, entry, StatusRunning))
	r.logger.Info("task starting", "task_id", taskID, "entry", entry)

	status := StatusSucceeded
	list := []string{entry}
	var runErr error

	for len(list) > 0 {
		reco, err := r.recognizeWithDeadline(ctx, list)
		if err != nil {
			status = StatusFailed
			runErr = err
			break
		}
		if !reco.Hit() {
			r.logger.Warn("no candidate matched before deadline",
				"task_id", taskID, "node", exec.CurrentNode(), "list", list)
			status = StatusFailed
			break
		}

		exec.RunAction(ctx, reco)
		exec.SetCurrentNode(reco.Name)

		data, _ := exec.GetPipelineData(reco.Name)
		list = data.Next
	}

	r.updateStatus(status)
	detail, _ := r.tasker.cache.GetTaskDetail(taskID)

	kind := EventTaskSucceeded
	if status != StatusSucceeded {
		kind = EventTaskFailed
	}
	r.tasker.notify(kind, taskDetailPayload(taskID, entry, status))
	r.tasker.metrics.RecordTask(entry, string(status), len(detail.NodeIDs), time.Since(start))
	r.logger.Info("task finished",
		"task_id", taskID, "entry", entry, "status", status,
		"nodes", len(detail.NodeIDs), "duration", time.Since(start))

	r.archive(detail)
	return detail, runErr
}

// recognizeWithDeadline repeats capture+recognition until a candidate
// hits, the deadline of the currently executing node expires, or ctx is
// cancelled. The deadline and rate limit come from the current node,
// falling back to the tasker defaults.
func (r *Runner) recognizeWithDeadline(ctx context.Context, list []string) (RecoResult, error) {
	exec := r.exec
	timeout, rateLimit := r.limitsFor(exec.CurrentNode())
	deadline := time.Now().Add(timeout)

	for {
		roundStart := time.Now()

		frame := exec.Screencap(ctx)
		reco := exec.RunRecognition(ctx, frame, list)
		if reco.Hit() {
			return reco, nil
		}

		if err := ctx.Err(); err != nil {
			return RecoResult{}, err
		}
		if !time.Now().Before(deadline) {
			return RecoResult{}, nil
		}

		// Keep capture rounds at least rateLimit apart.
		if wait := rateLimit - time.Since(roundStart); wait > 0 {
			select {
			case <-ctx.Done():
				return RecoResult{}, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
}

func (r *Runner) limitsFor(name string) (timeout, rateLimit time.Duration) {
	timeoutMS := r.tasker.defaultTimeout
	rateLimitMS := r.tasker.defaultRateLimit

	if data, ok := r.exec.GetPipelineData(name); ok {
		if data.TimeoutMS > 0 {
			timeoutMS = data.TimeoutMS
		}
		if data.RateLimitMS > 0 {
			rateLimitMS = data.RateLimitMS
		}
	}

	if timeoutMS <= 0 {
		timeoutMS = 20000
	}
	if rateLimitMS <= 0 {
		rateLimitMS = 1000
	}
	return time.Duration(timeoutMS) * time.Millisecond, time.Duration(rateLimitMS) * time.Millisecond
}

func (r *Runner) updateStatus(status Status) {
	detail, ok := r.tasker.cache.GetTaskDetail(r.exec.TaskID())
	if !ok {
		detail = TaskDetail{TaskID: r.exec.TaskID(), Entry: r.exec.Entry()}
	}
	detail.Status = status
	r.tasker.cache.SetTaskDetail(detail)
}

// archive writes the finished task and its node executions to history.
// Archive failures are logged, never surfaced; the cache already holds
// the authoritative in-memory record.
func (r *Runner) archive(detail TaskDetail) {
	history := r.tasker.history
	if history == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := history.SaveTask(ctx, detail); err != nil {
		r.logger.Error("archiving task failed", "task_id", detail.TaskID, "error", err)
		return
	}

	nodes := make([]NodeDetail, 0, len(detail.NodeIDs))
	for _, nodeID := range detail.NodeIDs {
		if node, ok := r.tasker.cache.GetNodeDetail(nodeID); ok {
			nodes = append(nodes, node)
		}
	}
	if err := history.SaveNodes(ctx, detail.TaskID, nodes); err != nil {
		r.logger.Error("archiving nodes failed", "task_id", detail.TaskID, "error", err)
	}
}

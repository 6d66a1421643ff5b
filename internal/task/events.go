package task

// Notification kinds emitted by the execution loop. Consumers receive
// them through the Notifier collaborator; delivery is fire and forget.
//
// Starting events carry a zero id for the record they precede (reco_id 0
// before recognition runs, node_id 0 before the action runs) because the
// id is only allocated once the work has happened.
const (
	EventTaskStarting  = "Task.Starting"
	EventTaskSucceeded = "Task.Succeeded"
	EventTaskFailed    = "Task.Failed"

	EventNextListStarting  = "Task.NextList.Starting"
	EventNextListSucceeded = "Task.NextList.Succeeded"
	EventNextListFailed    = "Task.NextList.Failed"

	EventRecognitionStarting  = "Task.Recognition.Starting"
	EventRecognitionSucceeded = "Task.Recognition.Succeeded"
	EventRecognitionFailed    = "Task.Recognition.Failed"

	EventActionStarting  = "Task.Action.Starting"
	EventActionSucceeded = "Task.Action.Succeeded"
	EventActionFailed    = "Task.Action.Failed"
)

func listDetail(taskID int64, name string, list []string) map[string]any {
	return map[string]any{
		"task_id": taskID,
		"name":    name,
		"list":    append([]string(nil), list...),
	}
}

func recognitionDetail(taskID, recoID int64, name string) map[string]any {
	return map[string]any{
		"task_id": taskID,
		"reco_id": recoID,
		"name":    name,
	}
}

func actionDetail(taskID, nodeID int64, name string) map[string]any {
	return map[string]any{
		"task_id": taskID,
		"node_id": nodeID,
		"name":    name,
	}
}

func taskDetailPayload(taskID int64, entry string, status Status) map[string]any {
	return map[string]any{
		"task_id": taskID,
		"entry":   entry,
		"status":  string(status),
	}
}

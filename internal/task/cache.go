package task

import "sync"

// RuntimeCache stores task and node details produced by running tasks.
// It is the read side for the HTTP API: queries hit this cache, never
// the execution loop.
//
// All public methods are thread-safe. Getters return copies.
type RuntimeCache struct {
	mu          sync.RWMutex
	taskDetails map[int64]TaskDetail
	nodeDetails map[int64]NodeDetail
	latestNodes map[string]int64 // node name -> most recent node id
}

// NewRuntimeCache creates an empty runtime cache.
func NewRuntimeCache() *RuntimeCache {
	return &RuntimeCache{
		taskDetails: make(map[int64]TaskDetail),
		nodeDetails: make(map[int64]NodeDetail),
		latestNodes: make(map[string]int64),
	}
}

// SetTaskDetail stores or replaces a task detail.
func (c *RuntimeCache) SetTaskDetail(detail TaskDetail) {
	c.mu.Lock()
	c.taskDetails[detail.TaskID] = detail.DeepCopy()
	c.mu.Unlock()
}

// GetTaskDetail retrieves a task detail by id.
func (c *RuntimeCache) GetTaskDetail(taskID int64) (TaskDetail, bool) {
	c.mu.RLock()
	detail, ok := c.taskDetails[taskID]
	c.mu.RUnlock()
	return detail.DeepCopy(), ok
}

// SetNodeDetail stores or replaces a node detail.
func (c *RuntimeCache) SetNodeDetail(detail NodeDetail) {
	c.mu.Lock()
	c.nodeDetails[detail.NodeID] = detail
	c.mu.Unlock()
}

// GetNodeDetail retrieves a node detail by id.
func (c *RuntimeCache) GetNodeDetail(nodeID int64) (NodeDetail, bool) {
	c.mu.RLock()
	detail, ok := c.nodeDetails[nodeID]
	c.mu.RUnlock()
	return detail, ok
}

// SetLatestNode records the most recent node id executed under a name.
func (c *RuntimeCache) SetLatestNode(name string, nodeID int64) {
	c.mu.Lock()
	c.latestNodes[name] = nodeID
	c.mu.Unlock()
}

// GetLatestNode retrieves the most recent node id executed under a name.
func (c *RuntimeCache) GetLatestNode(name string) (int64, bool) {
	c.mu.RLock()
	nodeID, ok := c.latestNodes[name]
	c.mu.RUnlock()
	return nodeID, ok
}

package task

import "sync/atomic"

// IDGenerator hands out monotonic identifiers, one counter per id kind.
// Counters start at 1; zero is reserved for "no id" in notifications and
// empty records. Safe for concurrent use.
type IDGenerator struct {
	task atomic.Int64
	node atomic.Int64
	reco atomic.Int64
}

// NewIDGenerator creates a generator with all counters at zero.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Seed raises the counters to at least the given values, so identifiers
// allocated after a restart continue past archived ones. Counters never
// move backwards.
func (g *IDGenerator) Seed(taskID, nodeID, recoID int64) {
	raise(&g.task, taskID)
	raise(&g.node, nodeID)
	raise(&g.reco, recoID)
}

func raise(counter *atomic.Int64, floor int64) {
	for {
		cur := counter.Load()
		if cur >= floor || counter.CompareAndSwap(cur, floor) {
			return
		}
	}
}

// NextTaskID returns the next task identifier.
func (g *IDGenerator) NextTaskID() int64 { return g.task.Add(1) }

// NextNodeID returns the next node identifier.
func (g *IDGenerator) NextNodeID() int64 { return g.node.Add(1) }

// NextRecoID returns the next recognition identifier.
func (g *IDGenerator) NextRecoID() int64 { return g.reco.Add(1) }

package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// RecordRecognition writes a recognition measurement.
//
// One point is recorded per Recognizer invocation, hit or miss.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - name: Pipeline node name that was evaluated
//   - hit: Whether the recognition produced a match
//   - duration: Wall time spent in the Recognizer
func (c *Client) RecordRecognition(name string, hit bool, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"recognition",
		map[string]string{
			"node": name,
		},
		map[string]interface{}{
			"hit":         hit,
			"duration_ms": float64(duration.Milliseconds()),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// RecordAction writes an action measurement.
//
// One point is recorded per Actuator invocation.
//
// Parameters:
//   - name: Pipeline node name whose action ran
//   - completed: The actuator's completion report
//   - duration: Wall time spent in the Actuator
func (c *Client) RecordAction(name string, completed bool, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"action",
		map[string]string{
			"node": name,
		},
		map[string]interface{}{
			"completed":   completed,
			"duration_ms": float64(duration.Milliseconds()),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// RecordTask writes a task completion measurement.
//
// Parameters:
//   - entry: The task's entry node name
//   - status: Final task status (succeeded, failed)
//   - nodes: Number of node actions executed
//   - duration: Total task wall time
func (c *Client) RecordTask(entry string, status string, nodes int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"task",
		map[string]string{
			"entry":  entry,
			"status": status,
		},
		map[string]interface{}{
			"nodes":       nodes,
			"duration_ms": float64(duration.Milliseconds()),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

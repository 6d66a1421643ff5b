// Package influxdb records task engine telemetry to InfluxDB v2.
//
// The task runtime holds this client behind its Metrics interface and
// records one point per Recognizer invocation, one per Actuator
// invocation, and one per finished task. Writes are batched and
// non-blocking: a slow or unavailable InfluxDB never stalls the
// recognition loop.
//
// # Measurements
//
//   - recognition: tags {node}, fields {hit, duration_ms}
//   - action:      tags {node}, fields {completed, duration_ms}
//   - task:        tags {entry, status}, fields {nodes, duration_ms}
//
// # Usage
//
//	metrics, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // metrics stay off; the engine uses a no-op recorder
//	}
package influxdb

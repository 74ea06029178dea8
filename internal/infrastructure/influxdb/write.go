package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePollCycle records the outcome of one status poll cycle.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - instanceID: Bridge instance identifier (tag, low cardinality)
//   - success: Whether both status queries completed
//   - duration: Round-trip time for the full cycle
func (c *Client) WritePollCycle(instanceID string, success bool, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"poll_cycle",
		map[string]string{
			"instance": instanceID,
		},
		map[string]interface{}{
			"success":     success,
			"duration_ms": float64(duration.Milliseconds()),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceState records a polled device state sample.
//
// Power and input are the raw hex tokens reported by the projector,
// stored as tags so dashboards can group by state.
func (c *Client) WriteDeviceState(instanceID string, power string, input string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_state",
		map[string]string{
			"instance": instanceID,
			"power":    power,
			"input":    input,
		},
		map[string]interface{}{
			"observed": true,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

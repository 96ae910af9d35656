package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteMeasurement mirrors one sensor reading to InfluxDB.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Only fields present in the reading are written.
//
// Parameters:
//   - deviceID: Numeric device identifier (used as a tag)
//   - fields: Reading values keyed by name (temperature, humidity, ...)
//   - at: Reading timestamp
func (c *Client) WriteMeasurement(deviceID int64, fields map[string]interface{}, at time.Time) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}

	point := write.NewPoint(
		"measurements",
		map[string]string{
			"device_id": formatDeviceID(deviceID),
		},
		fields,
		at,
	)

	c.writeAPI.WritePoint(point)
}

// WriteTelemetry mirrors device health values (heap, RSSI, battery, ...).
func (c *Client) WriteTelemetry(deviceID int64, fields map[string]interface{}, at time.Time) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}

	point := write.NewPoint(
		"telemetry",
		map[string]string{
			"device_id": formatDeviceID(deviceID),
		},
		fields,
		at,
	)

	c.writeAPI.WritePoint(point)
}

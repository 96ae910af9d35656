package ingest

import "time"

// Measurement is one sensor reading, attached to the ownership that was
// active when it arrived. Nil fields were absent from the payload.
type Measurement struct {
	OwnershipID int64     `json:"ownership_id"`
	Time        time.Time `json:"time"`
	Temperature *float64  `json:"temperature,omitempty"`
	Humidity    *float64  `json:"humidity,omitempty"`
	Pressure    *float64  `json:"pressure,omitempty"`
	PM25        *float64  `json:"pm25,omitempty"`
	PM10        *float64  `json:"pm10,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
}

// Telemetry is one flattened device health snapshot. The latest row per
// device represents its current status.
type Telemetry struct {
	DeviceID     int64     `json:"device_id"`
	SerialNumber string    `json:"serial_number"`
	ReceivedAt   time.Time `json:"received_at"`

	UptimeSec       int64  `json:"uptime_sec"`
	FreeHeap        int64  `json:"free_heap"`
	MinHeap         int64  `json:"min_heap"`
	FirmwareVersion string `json:"firmware_version,omitempty"`
	BootCount       int64  `json:"boot_count"`
	ResetReason     *int64 `json:"reset_reason,omitempty"`

	WifiConnected bool   `json:"wifi_connected"`
	WifiRSSI      *int64 `json:"wifi_rssi,omitempty"`
	MQTTConnected bool   `json:"mqtt_connected"`
	LTEConnected  bool   `json:"lte_connected"`
	LTERSSI       *int64 `json:"lte_rssi,omitempty"`

	SensorCycles int64 `json:"sensor_cycles"`
	SensorErrors int64 `json:"sensor_errors"`

	BatteryPercent *int64 `json:"battery_percent,omitempty"`
	PowerMode      int64  `json:"power_mode"`

	TotalErrors int64 `json:"total_errors"`
	Crashes     int64 `json:"crashes"`

	DeviceTimestamp *int64 `json:"device_timestamp,omitempty"`
}

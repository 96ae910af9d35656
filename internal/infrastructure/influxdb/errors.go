package influxdb

import (
	"errors"
	"strconv"
)

var (
	// ErrDisabled is returned by Connect when InfluxDB is disabled in config.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed is returned when the server cannot be reached.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected is returned when an operation requires an active connection.
	ErrNotConnected = errors.New("influxdb: not connected")
)

// formatDeviceID renders a device id for use as a tag value.
func formatDeviceID(deviceID int64) string {
	return strconv.FormatInt(deviceID, 10)
}

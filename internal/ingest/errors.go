package ingest

import "errors"

var (
	// ErrNoTelemetry is returned when a device has never reported
	// telemetry.
	ErrNoTelemetry = errors.New("ingest: no telemetry recorded")
)

// Package ingest persists sensor readings and device health telemetry.
//
// Both paths are fire-and-forget: payloads are parsed loosely (a missing
// sub-object means "not present", not an error), rows attach to the
// device's currently active ownership so successive owners never see
// each other's data, and a failed insert is logged and the message
// consumed. Losing an individual reading is acceptable, the next one is
// minutes away.
package ingest

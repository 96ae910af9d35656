// Package influxdb mirrors sensor measurements and device telemetry to an
// InfluxDB v2 instance for dashboards and long-range trend queries.
//
// The mirror is optional (influxdb.enabled in config.yaml) and strictly
// best-effort: SQLite remains the system of record, writes here are
// batched and non-blocking, and a failed write never affects ingestion.
package influxdb

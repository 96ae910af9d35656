package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines persistence for measurements and telemetry.
type Repository interface {
	// InsertMeasurement stores one sensor reading.
	InsertMeasurement(ctx context.Context, m *Measurement) error

	// InsertTelemetry stores one telemetry snapshot.
	InsertTelemetry(ctx context.Context, tel *Telemetry) error

	// LatestTelemetry returns the most recent snapshot for a device.
	// Returns ErrNoTelemetry if the device never reported.
	LatestTelemetry(ctx context.Context, deviceID int64) (*Telemetry, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed ingest repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// InsertMeasurement stores one sensor reading.
func (r *SQLiteRepository) InsertMeasurement(ctx context.Context, m *Measurement) error {
	query := `
		INSERT INTO measurements (ownership_id, time, temperature, humidity, pressure, pm25, pm10, longitude, latitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		m.OwnershipID,
		m.Time.UTC().Format(time.RFC3339),
		m.Temperature,
		m.Humidity,
		m.Pressure,
		m.PM25,
		m.PM10,
		m.Longitude,
		m.Latitude,
	)
	if err != nil {
		return fmt.Errorf("inserting measurement: %w", err)
	}
	return nil
}

// InsertTelemetry stores one telemetry snapshot.
func (r *SQLiteRepository) InsertTelemetry(ctx context.Context, tel *Telemetry) error {
	query := `
		INSERT INTO device_telemetry (
			device_id, serial_number, received_at,
			uptime_sec, free_heap, min_heap, firmware_version, boot_count, reset_reason,
			wifi_connected, wifi_rssi, mqtt_connected, lte_connected, lte_rssi,
			sensor_cycles, sensor_errors, battery_percent, power_mode,
			total_errors, crashes, device_timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		tel.DeviceID,
		tel.SerialNumber,
		tel.ReceivedAt.UTC().Format(time.RFC3339),
		tel.UptimeSec,
		tel.FreeHeap,
		tel.MinHeap,
		nullString(tel.FirmwareVersion),
		tel.BootCount,
		tel.ResetReason,
		boolToInt(tel.WifiConnected),
		tel.WifiRSSI,
		boolToInt(tel.MQTTConnected),
		boolToInt(tel.LTEConnected),
		tel.LTERSSI,
		tel.SensorCycles,
		tel.SensorErrors,
		tel.BatteryPercent,
		tel.PowerMode,
		tel.TotalErrors,
		tel.Crashes,
		tel.DeviceTimestamp,
	)
	if err != nil {
		return fmt.Errorf("inserting telemetry: %w", err)
	}
	return nil
}

// LatestTelemetry returns the most recent snapshot for a device.
func (r *SQLiteRepository) LatestTelemetry(ctx context.Context, deviceID int64) (*Telemetry, error) {
	query := `
		SELECT device_id, serial_number, received_at,
			uptime_sec, free_heap, min_heap, firmware_version, boot_count, reset_reason,
			wifi_connected, wifi_rssi, mqtt_connected, lte_connected, lte_rssi,
			sensor_cycles, sensor_errors, battery_percent, power_mode,
			total_errors, crashes, device_timestamp
		FROM device_telemetry
		WHERE device_id = ?
		ORDER BY received_at DESC, id DESC
		LIMIT 1`

	var tel Telemetry
	var receivedAt string
	var firmware sql.NullString
	var wifi, mqtt, lte int

	err := r.db.QueryRowContext(ctx, query, deviceID).Scan(
		&tel.DeviceID, &tel.SerialNumber, &receivedAt,
		&tel.UptimeSec, &tel.FreeHeap, &tel.MinHeap, &firmware, &tel.BootCount, &tel.ResetReason,
		&wifi, &tel.WifiRSSI, &mqtt, &lte, &tel.LTERSSI,
		&tel.SensorCycles, &tel.SensorErrors, &tel.BatteryPercent, &tel.PowerMode,
		&tel.TotalErrors, &tel.Crashes, &tel.DeviceTimestamp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoTelemetry
		}
		return nil, fmt.Errorf("querying latest telemetry: %w", err)
	}

	tel.ReceivedAt, _ = time.Parse(time.RFC3339, receivedAt) //nolint:errcheck // Format is controlled
	tel.FirmwareVersion = firmware.String
	tel.WifiConnected = wifi != 0
	tel.MQTTConnected = mqtt != 0
	tel.LTEConnected = lte != 0
	return &tel, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

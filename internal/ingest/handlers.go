package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/wihajster/wihajster-core/internal/device"
	"github.com/wihajster/wihajster-core/internal/infrastructure/logging"
)

// OwnershipResolver maps a device to its currently active ownership.
type OwnershipResolver interface {
	ActiveOwnership(ctx context.Context, deviceID int64) (*device.Ownership, error)
}

// Mirror receives a non-blocking copy of ingested values, typically for
// a time-series dashboard. Writes are batched by the implementation and
// never fail the ingest path.
type Mirror interface {
	WriteMeasurement(deviceID int64, fields map[string]interface{}, at time.Time)
	WriteTelemetry(deviceID int64, fields map[string]interface{}, at time.Time)
}

// Handler processes sensors/{id} and telemetry/{id} messages.
type Handler struct {
	repo   Repository
	owners OwnershipResolver
	mirror Mirror
	log    *logging.Logger
}

// NewHandler creates an ingest handler. mirror may be nil when no
// time-series backend is configured. If log is nil the default logger
// is used.
func NewHandler(repo Repository, owners OwnershipResolver, mirror Mirror, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.Default()
	}
	return &Handler{repo: repo, owners: owners, mirror: mirror, log: log}
}

// sensorPayload is the sensors/{id} wire format. Every field is
// optional; a sensor that failed its read cycle simply omits the key.
type sensorPayload struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Pressure    *float64 `json:"pressure"`
	PM25        *float64 `json:"pm25"`
	PM10        *float64 `json:"pm10"`
	Longitude   *float64 `json:"longitude"`
	Latitude    *float64 `json:"latitude"`
}

// HandleSensorMessage validates and stores one sensor reading against
// the device's active ownership. Devices without an active owner are
// dropped; their rows would be orphans.
func (h *Handler) HandleSensorMessage(ctx context.Context, deviceID int64, payload []byte) error {
	var p sensorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decoding sensor payload: %w", err)
	}

	ownership, err := h.owners.ActiveOwnership(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("resolving ownership for device %d: %w", deviceID, err)
	}

	m := &Measurement{
		OwnershipID: ownership.ID,
		Time:        time.Now().UTC(),
		Temperature: p.Temperature,
		Humidity:    p.Humidity,
		Pressure:    p.Pressure,
		PM25:        p.PM25,
		PM10:        p.PM10,
		Longitude:   p.Longitude,
		Latitude:    p.Latitude,
	}
	if err := h.repo.InsertMeasurement(ctx, m); err != nil {
		return err
	}

	if h.mirror != nil {
		fields := make(map[string]interface{})
		for name, v := range map[string]*float64{
			"temperature": p.Temperature,
			"humidity":    p.Humidity,
			"pressure":    p.Pressure,
			"pm25":        p.PM25,
			"pm10":        p.PM10,
		} {
			if v != nil {
				fields[name] = *v
			}
		}
		if len(fields) > 0 {
			h.mirror.WriteMeasurement(deviceID, fields, m.Time)
		}
	}

	h.log.Debug("stored measurement", "device_id", deviceID, "ownership_id", ownership.ID)
	return nil
}

// telemetryPayload is the telemetry/{id} wire format. Sub-objects are
// optional; an absent section decodes to its zero value and the flat
// row keeps the column defaults.
type telemetryPayload struct {
	SerialNumber string `json:"serial_number"`
	System       struct {
		Uptime      int64  `json:"uptime"`
		FreeHeap    int64  `json:"free_heap"`
		MinHeap     int64  `json:"min_heap"`
		Firmware    any    `json:"firmware"`
		BootCount   int64  `json:"boot_count"`
		ResetReason *int64 `json:"reset_reason"`
	} `json:"system"`
	Connectivity struct {
		Wifi     bool   `json:"wifi"`
		WifiRSSI *int64 `json:"wifi_rssi"`
		MQTT     bool   `json:"mqtt"`
		LTE      bool   `json:"lte"`
		LTERSSI  *int64 `json:"lte_rssi"`
	} `json:"connectivity"`
	Sensors struct {
		Cycles int64 `json:"cycles"`
		Errors int64 `json:"errors"`
	} `json:"sensors"`
	Power struct {
		BatteryPct *int64 `json:"battery_pct"`
		Mode       int64  `json:"mode"`
	} `json:"power"`
	Errors struct {
		Total   int64 `json:"total"`
		Crashes int64 `json:"crashes"`
	} `json:"errors"`
	Timestamp *int64 `json:"timestamp"`
}

// HandleTelemetryMessage flattens and stores one health snapshot.
func (h *Handler) HandleTelemetryMessage(ctx context.Context, deviceID int64, payload []byte) error {
	var p telemetryPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decoding telemetry payload: %w", err)
	}

	tel := &Telemetry{
		DeviceID:        deviceID,
		SerialNumber:    p.SerialNumber,
		ReceivedAt:      time.Now().UTC(),
		UptimeSec:       p.System.Uptime,
		FreeHeap:        p.System.FreeHeap,
		MinHeap:         p.System.MinHeap,
		FirmwareVersion: firmwareString(p.System.Firmware),
		BootCount:       p.System.BootCount,
		ResetReason:     p.System.ResetReason,
		WifiConnected:   p.Connectivity.Wifi,
		WifiRSSI:        p.Connectivity.WifiRSSI,
		MQTTConnected:   p.Connectivity.MQTT,
		LTEConnected:    p.Connectivity.LTE,
		LTERSSI:         p.Connectivity.LTERSSI,
		SensorCycles:    p.Sensors.Cycles,
		SensorErrors:    p.Sensors.Errors,
		BatteryPercent:  p.Power.BatteryPct,
		PowerMode:       p.Power.Mode,
		TotalErrors:     p.Errors.Total,
		Crashes:         p.Errors.Crashes,
		DeviceTimestamp: p.Timestamp,
	}
	if err := h.repo.InsertTelemetry(ctx, tel); err != nil {
		return err
	}

	if h.mirror != nil {
		fields := map[string]interface{}{
			"uptime_sec":    tel.UptimeSec,
			"free_heap":     tel.FreeHeap,
			"sensor_cycles": tel.SensorCycles,
			"sensor_errors": tel.SensorErrors,
			"total_errors":  tel.TotalErrors,
		}
		if tel.WifiRSSI != nil {
			fields["wifi_rssi"] = *tel.WifiRSSI
		}
		if tel.BatteryPercent != nil {
			fields["battery_percent"] = *tel.BatteryPercent
		}
		h.mirror.WriteTelemetry(deviceID, fields, tel.ReceivedAt)
	}

	h.log.Debug("stored telemetry", "device_id", deviceID, "uptime_sec", tel.UptimeSec)
	return nil
}

// firmwareString normalizes the firmware field, which older firmware
// sends as a bare number.
func firmwareString(v any) string {
	switch f := v.(type) {
	case string:
		return f
	case float64:
		return strconv.FormatInt(int64(f), 10)
	default:
		return ""
	}
}

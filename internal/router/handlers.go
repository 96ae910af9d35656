package router

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wihajster/wihajster-core/internal/infrastructure/logging"
)

// Syncer triggers a full settings sync for a device.
type Syncer interface {
	TriggerSync(ctx context.Context, deviceID int64) error
}

// ReportApplier applies a device's reported setting values.
type ReportApplier interface {
	ApplyDeviceReport(ctx context.Context, deviceID int64, reported map[string]any) error
}

// AckApplier applies a device's settings acknowledgement.
type AckApplier interface {
	ApplyAcknowledgement(ctx context.Context, deviceID int64, appliedFields []string) error
}

// Resolver delivers a command reply to a waiting caller.
type Resolver interface {
	Resolve(deviceID int64, payload map[string]any) bool
}

// ReportHandler decodes settings_report/{id} payloads: a flat object of
// slot names to the device's actual values.
func ReportHandler(engine ReportApplier) Handler {
	return func(ctx context.Context, deviceID int64, payload []byte) error {
		var reported map[string]any
		if err := json.Unmarshal(payload, &reported); err != nil {
			return fmt.Errorf("decoding settings report: %w", err)
		}
		return engine.ApplyDeviceReport(ctx, deviceID, reported)
	}
}

// ackPayload is the settings_ack/{id} wire format. The timestamp is the
// device's own clock and is informational only.
type ackPayload struct {
	AppliedSettings []string `json:"applied_settings"`
	Timestamp       int64    `json:"timestamp"`
}

// AckHandler decodes settings_ack/{id} payloads.
func AckHandler(engine AckApplier) Handler {
	return func(ctx context.Context, deviceID int64, payload []byte) error {
		var ack ackPayload
		if err := json.Unmarshal(payload, &ack); err != nil {
			return fmt.Errorf("decoding settings ack: %w", err)
		}
		if len(ack.AppliedSettings) == 0 {
			return fmt.Errorf("settings ack without applied_settings")
		}
		return engine.ApplyAcknowledgement(ctx, deviceID, ack.AppliedSettings)
	}
}

// ConfigHandler decodes config/{id} payloads. A request_config_sync
// command is the device pulling its own sync; everything else is a
// command reply handed to the correlator, which drops it if nobody is
// waiting.
func ConfigHandler(syncer Syncer, resolver Resolver, log *logging.Logger) Handler {
	if log == nil {
		log = logging.Default()
	}
	return func(ctx context.Context, deviceID int64, payload []byte) error {
		var msg map[string]any
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("decoding config message: %w", err)
		}

		if cmd, _ := msg["command"].(string); cmd == "request_config_sync" {
			log.Info("device requested settings sync", "device_id", deviceID)
			return syncer.TriggerSync(ctx, deviceID)
		}

		resolver.Resolve(deviceID, msg)
		return nil
	}
}

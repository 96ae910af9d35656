package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// Topic families for device traffic. The device id is always the path
// segment directly after the prefix, e.g. "settings_report/42".
const (
	// TopicPrefixSensors carries periodic sensor readings (device → backend).
	TopicPrefixSensors = "sensors"

	// TopicPrefixStatus is the legacy device status announcement family
	// (device → backend). Payload shape matches presence messages.
	TopicPrefixStatus = "status"

	// TopicPrefixPresence carries online/offline announcements, including
	// broker-published last-will offline messages (device → backend).
	TopicPrefixPresence = "presence"

	// TopicPrefixTelemetry carries health/diagnostic snapshots (device → backend).
	TopicPrefixTelemetry = "telemetry"

	// TopicPrefixSettingsReport carries the device's actual setting values
	// (device → backend), sent when the device detects drift.
	TopicPrefixSettingsReport = "settings_report"

	// TopicPrefixSettingsAck confirms backend-pushed settings were applied
	// (device → backend).
	TopicPrefixSettingsAck = "settings_ack"

	// TopicPrefixConfig carries generic command responses and
	// device-initiated sync pull requests (device → backend).
	TopicPrefixConfig = "config"

	// TopicPrefixSettingsSync carries the full current+pending settings
	// snapshot (backend → device).
	TopicPrefixSettingsSync = "settings_sync"

	// TopicPrefixDataUpdate carries command envelopes (backend → device).
	TopicPrefixDataUpdate = "data_update"

	// TopicBackendStatus is where the core announces its own lifecycle,
	// with a last-will offline message configured at connect.
	TopicBackendStatus = "backend/status"
)

// Topics provides builders for Wihajster MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topics.SettingsSync(42) // "settings_sync/42"
type Topics struct{}

// SettingsSync returns the backend→device settings snapshot topic.
func (Topics) SettingsSync(deviceID int64) string {
	return fmt.Sprintf("%s/%d", TopicPrefixSettingsSync, deviceID)
}

// DataUpdate returns the backend→device command envelope topic.
func (Topics) DataUpdate(deviceID int64) string {
	return fmt.Sprintf("%s/%d", TopicPrefixDataUpdate, deviceID)
}

// =============================================================================
// Wildcard patterns for subscriptions
// =============================================================================

// AllSensors returns a pattern matching all sensor readings.
func (Topics) AllSensors() string { return TopicPrefixSensors + "/+" }

// AllStatus returns a pattern matching all legacy status announcements.
func (Topics) AllStatus() string { return TopicPrefixStatus + "/+" }

// AllPresence returns a pattern matching all presence announcements.
func (Topics) AllPresence() string { return TopicPrefixPresence + "/+" }

// AllTelemetry returns a pattern matching all telemetry snapshots.
func (Topics) AllTelemetry() string { return TopicPrefixTelemetry + "/+" }

// AllSettingsReports returns a pattern matching all settings reports.
func (Topics) AllSettingsReports() string { return TopicPrefixSettingsReport + "/+" }

// AllSettingsAcks returns a pattern matching all settings acknowledgements.
func (Topics) AllSettingsAcks() string { return TopicPrefixSettingsAck + "/+" }

// AllConfig returns a pattern matching all command responses.
func (Topics) AllConfig() string { return TopicPrefixConfig + "/+" }

// InboundPatterns returns every device→backend pattern the core subscribes to.
// Subscriptions are re-established from this set on every reconnect.
func (t Topics) InboundPatterns() []string {
	return []string{
		t.AllSensors(),
		t.AllStatus(),
		t.AllPresence(),
		t.AllTelemetry(),
		t.AllSettingsReports(),
		t.AllSettingsAcks(),
		t.AllConfig(),
	}
}

// SplitDeviceTopic splits a device topic into its prefix and device id.
//
// Returns an error for topics without exactly two segments or with a
// non-numeric device id; callers log and drop such messages.
func SplitDeviceTopic(topic string) (prefix string, deviceID int64, err error) {
	prefix, idPart, ok := strings.Cut(topic, "/")
	if !ok || prefix == "" || strings.Contains(idPart, "/") {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
	}

	deviceID, err = strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: bad device id in %q", ErrMalformedTopic, topic)
	}

	return prefix, deviceID, nil
}

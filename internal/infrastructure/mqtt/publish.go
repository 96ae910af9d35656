package mqtt

import (
	"fmt"
)

// Maximum payload size for MQTT messages (256KB).
// ESP32-class devices cannot buffer more, and typical broker limits agree.
const maxPayloadSize = 256 << 10

// Publish sends a message to the specified MQTT topic.
//
// Success means the local send was accepted by the broker connection; it is
// never a delivery confirmation. Delivery to intermittently connected
// devices is the reconciliation layer's problem, not the transport's.
//
// Parameters:
//   - topic: The topic to publish to (e.g., "settings_sync/42")
//   - payload: The message payload (typically JSON, max 256KB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message for new subscribers
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	// Validate inputs
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	// Check connection state
	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Publish with timeout
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishJSON publishes a payload to a device topic at the configured
// default QoS, not retained. This is the path used for settings_sync and
// data_update traffic.
func (c *Client) PublishJSON(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), false)
}

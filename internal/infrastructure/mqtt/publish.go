package mqtt

import (
	"fmt"
)

// maxPayloadSize caps outgoing payloads. State and control payloads are
// single words.
const maxPayloadSize = 4 << 10

// Publish sends a message to the specified MQTT topic.
//
// Parameters:
//   - topic: The topic to publish to (e.g., "cyfral/sound_mode/state")
//   - payload: The message payload (max 4 KiB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message for new subscribers
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.currentClient().Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: %w after %v", ErrPublishFailed, ErrTimeout, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// SendCommand publishes a command name to the control topic, not retained,
// so the daemon executes it once.
func (c *Client) SendCommand(command string) error {
	return c.Publish(c.topics.Control(), []byte(command), byte(c.cfg.QoS), false)
}

// PublishState publishes a retained state payload with the configured QoS.
//
// Example:
//
//	err := client.PublishState(client.Topics().SoundModeState(), mqtt.PayloadOn)
func (c *Client) PublishState(topic string, payload string) error {
	return c.Publish(topic, []byte(payload), byte(c.cfg.QoS), true)
}

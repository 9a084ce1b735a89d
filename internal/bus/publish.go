package bus

import (
	"fmt"
)

// Maximum payload size for bus messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20

// Publish sends a message to the bus. It fails with ErrNotConnected when
// the client is not connected; callers decide whether that is retryable.
//
// Retained messages are stored by the broker and immediately delivered
// to new subscribers of the topic. Use them for state topics; never for
// commands.
func (c *Client) Publish(msg Message) error {
	if msg.Topic == "" {
		return ErrInvalidTopic
	}
	if msg.QoS > maxQoS {
		return ErrInvalidQoS
	}
	if len(msg.Payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes",
			ErrPublishFailed, len(msg.Payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(msg.Topic, msg.QoS, msg.Retain, msg.Payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	c.markPublished()
	return nil
}

// PublishJSON publishes a pre-encoded JSON payload at the configured
// default QoS.
func (c *Client) PublishJSON(topic string, payload []byte, retain bool) error {
	return c.Publish(Message{
		Topic:   topic,
		Payload: payload,
		QoS:     byte(c.cfg.QoS),
		Retain:  retain,
	})
}

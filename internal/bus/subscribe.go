package bus

import (
	"fmt"
)

// Subscribe registers broker-side subscriptions for one or more topic
// filters at the given QoS.
//
// Filters can include MQTT wildcards; what matters for dispatch is the
// patterns registered via OnMessage, which are evaluated against each
// inbound message with Match.
//
// Subscriptions are automatically restored if the connection is lost and
// reconnected (tracked internally).
func (c *Client) Subscribe(qos byte, topics ...string) error {
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(topics) == 0 {
		return ErrInvalidTopic
	}
	for _, topic := range topics {
		if topic == "" {
			return ErrInvalidTopic
		}
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	for _, topic := range topics {
		// Track subscription for reconnection restoration
		c.subMu.Lock()
		c.subscriptions[topic] = qos
		c.subMu.Unlock()

		token := c.client.Subscribe(topic, qos, c.pahoRoute)
		if !token.WaitTimeout(defaultPublishTimeout) {
			c.dropSubscription(topic)
			return fmt.Errorf("%w: %s: timeout after %v", ErrSubscribeFailed, topic, defaultPublishTimeout)
		}
		if err := token.Error(); err != nil {
			c.dropSubscription(topic)
			return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
		}

		c.recordSubscription(topic)
	}

	return nil
}

// dropSubscription removes a failed subscription from tracking.
func (c *Client) dropSubscription(topic string) {
	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()
}

// Unsubscribe removes subscriptions and stops receiving messages for the
// given topic filters. Any messages in flight may still be delivered.
func (c *Client) Unsubscribe(topics ...string) error {
	if len(topics) == 0 {
		return ErrInvalidTopic
	}
	for _, topic := range topics {
		if topic == "" {
			return ErrInvalidTopic
		}
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	for _, topic := range topics {
		delete(c.subscriptions, topic)
	}
	c.subMu.Unlock()

	token := c.client.Unsubscribe(topics...)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrUnsubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}

	return nil
}

// SubscriptionCount returns the number of active broker subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

// HasSubscription checks if a subscription exists for the given filter.
//
// Note: This checks only the exact filter string, not pattern matching.
func (c *Client) HasSubscription(topic string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, exists := c.subscriptions[topic]
	return exists
}

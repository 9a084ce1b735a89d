package bus

import "time"

// Stats holds per-connection counters. One instance exists for the
// shared connection and one per tenant connection. The owning Client
// mutates them on connect/disconnect/publish/subscribe; everything else
// reads snapshots.
type Stats struct {
	// HouseholdID is empty for the shared connection.
	HouseholdID string `json:"household_id,omitempty"`
	ClientID    string `json:"client_id"`

	Connected    bool       `json:"connected"`
	ConnectedAt  *time.Time `json:"connected_at,omitempty"`
	LastActivity *time.Time `json:"last_activity,omitempty"`

	MessagesPublished uint64 `json:"messages_published"`
	MessagesReceived  uint64 `json:"messages_received"`

	// Subscriptions is append-only and de-duplicated: a topic filter
	// stays listed even after an unsubscribe, recording everything this
	// connection has ever subscribed to.
	Subscriptions []string `json:"subscriptions"`
}

// Stats returns a snapshot of the connection counters.
func (c *Client) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	snapshot := c.stats
	snapshot.Subscriptions = make([]string, len(c.stats.Subscriptions))
	copy(snapshot.Subscriptions, c.stats.Subscriptions)
	if c.stats.ConnectedAt != nil {
		t := *c.stats.ConnectedAt
		snapshot.ConnectedAt = &t
	}
	if c.stats.LastActivity != nil {
		t := *c.stats.LastActivity
		snapshot.LastActivity = &t
	}
	return snapshot
}

// markConnected records a successful connection.
func (c *Client) markConnected() {
	now := time.Now().UTC()
	c.statsMu.Lock()
	c.stats.Connected = true
	c.stats.ConnectedAt = &now
	c.stats.LastActivity = &now
	c.statsMu.Unlock()
}

// markDisconnected records a connection loss or graceful disconnect.
func (c *Client) markDisconnected() {
	c.statsMu.Lock()
	c.stats.Connected = false
	c.statsMu.Unlock()
}

// markPublished counts an outbound message.
func (c *Client) markPublished() {
	now := time.Now().UTC()
	c.statsMu.Lock()
	c.stats.MessagesPublished++
	c.stats.LastActivity = &now
	c.statsMu.Unlock()
}

// markReceived counts an inbound message.
func (c *Client) markReceived() {
	now := time.Now().UTC()
	c.statsMu.Lock()
	c.stats.MessagesReceived++
	c.stats.LastActivity = &now
	c.statsMu.Unlock()
}

// recordSubscription appends a topic filter to the stats, de-duplicated.
func (c *Client) recordSubscription(topic string) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	for _, existing := range c.stats.Subscriptions {
		if existing == topic {
			return
		}
	}
	c.stats.Subscriptions = append(c.stats.Subscriptions, topic)
}

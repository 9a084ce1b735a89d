package bus

// Message is the unit exchanged between the local bus and the vendor
// adapters. It is immutable by convention: handlers and adapters must not
// modify the payload slice they are handed.
type Message struct {
	// Topic is the full bus topic the message was published on.
	Topic string

	// Payload is the raw message body. Adapters decide whether this is
	// plain text or JSON; the bus does not interpret it.
	Payload []byte

	// QoS is the MQTT quality-of-service level (0, 1 or 2).
	QoS byte

	// Retain marks the message for broker-side retention so late
	// subscribers immediately receive the last known value.
	Retain bool
}

// NewMessage builds a QoS-1, non-retained message. Most command traffic
// uses this shape; state publishers set Retain explicitly.
func NewMessage(topic string, payload []byte) Message {
	return Message{Topic: topic, Payload: payload, QoS: 1}
}

// Retained returns a copy of the message with the retain flag set.
func (m Message) Retained() Message {
	m.Retain = true
	return m
}

// Package bus provides the local message bus all normalised device
// traffic flows through.
//
// This package manages:
//   - The message envelope (Message) and the topic matcher (Match)
//   - One physical broker connection per Client, with auto-reconnect
//   - Pattern-dispatched message handlers with a "*" catch-all
//   - Per-household tenant connections via Pool, so households never
//     share subscriptions or credentials
//   - Per-connection Stats counters
//
// # Architecture
//
// Natively MQTT-speaking devices (Tuya, ESP, Shelly, zigbee2mqtt,
// knx2mqtt) publish to the broker directly; bridge services republish
// cloud-only vendors onto the same broker. Everything downstream — state
// consumers, command producers — sees one bus:
//
//	devices / bridges ↔ MQTT broker ↔ bus.Client ↔ application
//
// # Topic matching
//
// Dispatch uses Match, which supports the single-level "+" wildcard and
// the reserved universal pattern "*". There is deliberately no "#"
// support: handler patterns are expected to name their depth, which
// keeps vendor topic-prefix detection unambiguous.
//
// # Tenant isolation
//
// Each household gets its own broker connection with distinct client id
// and credentials. Broker-side ACLs scope what those credentials can
// see; the pool only guarantees the connections are separate.
package bus

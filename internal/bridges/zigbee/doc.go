// Package zigbee implements the discovery bridge for Zigbee devices
// behind a zigbee2mqtt gateway.
//
// Zigbee devices are MQTT-native from CasaHub's point of view: the
// gateway publishes their state straight onto the bus and relays /set
// commands without help. What the ecosystem lacks is registration —
// nothing tells the application which devices exist. This bridge fills
// that gap by subscribing broadly, requesting the gateway's device
// dump, and merging dump entries, announce events and bare status
// messages into the device table and the registration store.
package zigbee

// Package restbridge implements the generic polling bridge for
// cloud-only vendors.
//
// A bridge's job is to make a REST-native ecosystem indistinguishable
// on the local bus from an MQTT-native one: it polls the vendor's API
// at a fixed interval, republishes every device's state retained under
// the vendor's status topics, and forwards commands arriving on the
// vendor's command wildcard to the REST control endpoint. After a
// successful command it re-polls after about a second so subscribers
// see the new state promptly.
//
// The engine is vendor-agnostic; the philips, panasonic, hass and
// midea packages construct it with their adapter and configuration.
// Per-device poll failures are isolated: one unreachable device is
// logged and skipped, the rest of the cycle proceeds. Devices that
// drop out of the vendor's list are flipped to offline in the table
// and the registration store, never deleted.
package restbridge

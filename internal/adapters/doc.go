// Package adapters holds the stateless per-vendor protocol translators
// for CasaHub.
//
// Every supported ecosystem gets one file of pure functions — topic
// naming, device-id extraction, state parsing, command encoding —
// assembled into an Adapter function table and registered in the
// vendor registry. MQTT-native vendors (Tuya, ESP, Midea LAN, Shelly,
// Zigbee via zigbee2mqtt, KNX via knx2mqtt) populate the topic and
// payload functions; REST-native vendors (Philips Hue, Panasonic,
// Home Assistant, Midea cloud) additionally implement DeviceState and
// SendCommand against their cloud or gateway APIs.
//
// # Normalisation
//
// ParseState always produces the common State shape with a "power"
// boolean, folding the vendor zoo of on/off encodings ("ON", 1, true,
// "open", "active") into one flag. NewCommand translates the shared
// action vocabulary (power_on, set_brightness, ...) into the vendor's
// own keys; unknown actions pass through opaquely so vendor-specific
// extensions do not require registry changes.
//
// # Vendor detection
//
// DetectVendor resolves a topic to a vendor by prefix. The one
// ambiguity is Shelly: Gen1 devices use the shellies/ prefix while
// Gen2 devices publish on {id}/status/switch:{n} with no prefix at
// all, so a regex fallback catches those. The decision table is local
// to the Shelly adapter; no universal parser is attempted.
//
// # Error behaviour
//
// Parse functions return nil on malformed input and never panic. REST
// functions return wrapped sentinel errors: ErrMissingConfig for setup
// defects, ErrRequestFailed and ErrVendorAPI for transport and vendor
// faults. Callers (the bridges) treat the former as fatal to the
// operation and the latter as per-device degradation.
package adapters

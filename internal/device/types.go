package device

import "time"

// Vendor identifies the ecosystem a device belongs to. The set is closed:
// adding a vendor means adding an adapter, a topic scheme and usually a
// bridge, so unknown strings are rejected at the boundaries.
type Vendor string

// Known vendors.
const (
	VendorTuya          Vendor = "tuya"
	VendorESP           Vendor = "esp"
	VendorMidea         Vendor = "midea"
	VendorShelly        Vendor = "shelly"
	VendorZigbee        Vendor = "zigbee" // Aqara and friends via zigbee2mqtt
	VendorKNX           Vendor = "knx"
	VendorPhilips       Vendor = "philips"
	VendorPanasonic     Vendor = "panasonic"
	VendorHomeAssistant Vendor = "hass"
)

// Vendors lists every known vendor. Used for validation and iteration.
var Vendors = []Vendor{
	VendorTuya,
	VendorESP,
	VendorMidea,
	VendorShelly,
	VendorZigbee,
	VendorKNX,
	VendorPhilips,
	VendorPanasonic,
	VendorHomeAssistant,
}

// Valid reports whether v is one of the known vendors.
func (v Vendor) Valid() bool {
	for _, known := range Vendors {
		if v == known {
			return true
		}
	}
	return false
}

// Status is the reachability of a device as last observed.
type Status string

// Device statuses.
const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Device represents a smart device known to the bridging layer.
//
// ID is vendor-specific: an entity id for Home Assistant, a KNX group
// address ("1/2/3"), a zigbee2mqtt friendly name, or a composite
// "bridgeId_lightId" for Philips. Vendor plus ID is unique within a
// household.
//
// Lifecycle: created on first discovery (a poll response or an MQTT
// announce) or by explicit registration; updated on every status
// observation; flipped to offline when a poll stops returning it or the
// vendor marks it unreachable. Bridges never hard-delete devices —
// deletion belongs to the surrounding application.
type Device struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Vendor   Vendor         `json:"vendor"`
	Topic    string         `json:"topic"`
	Status   Status         `json:"status"`
	LastSeen time.Time      `json:"last_seen"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Key returns the vendor-scoped identity used as the uniqueness key
// within a household.
func (d Device) Key() string {
	return string(d.Vendor) + ":" + d.ID
}

// Seen returns a copy of the device marked online with LastSeen set.
func (d Device) Seen(at time.Time) Device {
	d.Status = StatusOnline
	d.LastSeen = at
	return d
}

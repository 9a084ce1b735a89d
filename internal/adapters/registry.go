package adapters

import (
	"strings"

	"github.com/casahub/casahub-core/internal/device"
)

// registry maps each vendor onto its function table. Built once at
// init; read-only afterwards.
var registry = map[device.Vendor]*Adapter{
	device.VendorTuya:          tuyaAdapter(),
	device.VendorESP:           espAdapter(),
	device.VendorMidea:         mideaAdapter(),
	device.VendorShelly:        shellyAdapter(),
	device.VendorZigbee:        zigbeeAdapter(),
	device.VendorKNX:           knxAdapter(),
	device.VendorPhilips:       philipsAdapter(),
	device.VendorPanasonic:     panasonicAdapter(),
	device.VendorHomeAssistant: hassAdapter(),
}

// topicPrefixes maps the unambiguous topic prefixes onto their vendor.
// Shelly Gen2 topics carry no prefix and are handled by a regex
// fallback in DetectVendor.
var topicPrefixes = []struct {
	prefix string
	vendor device.Vendor
}{
	{"tuya/", device.VendorTuya},
	{"esp/", device.VendorESP},
	{"midea/", device.VendorMidea},
	{"shellies/", device.VendorShelly},
	{"zigbee2mqtt/", device.VendorZigbee},
	{"knx/", device.VendorKNX},
	{"philips/", device.VendorPhilips},
	{"panasonic/", device.VendorPanasonic},
	{"hass/", device.VendorHomeAssistant},
}

// Get returns the adapter for a vendor, or nil for unknown vendors.
func Get(vendor device.Vendor) *Adapter {
	return registry[vendor]
}

// DetectVendor determines which vendor a topic belongs to by prefix
// inspection, with a regex fallback for prefix-less Shelly Gen2 switch
// topics. Returns false for unrecognised topics.
func DetectVendor(topic string) (device.Vendor, bool) {
	for _, p := range topicPrefixes {
		if strings.HasPrefix(topic, p.prefix) {
			return p.vendor, true
		}
	}
	if shellyGen2Topic.MatchString(topic) {
		return device.VendorShelly, true
	}
	return "", false
}

// DeviceFromTopic composes vendor detection, device-id parsing, and
// device construction. Returns nil when the topic belongs to no known
// vendor or cannot be parsed. The name falls back to the parsed id so
// devices first seen via a bare status message still get a usable name.
func DeviceFromTopic(topic, name string) *device.Device {
	vendor, ok := DetectVendor(topic)
	if !ok {
		return nil
	}

	adapter := registry[vendor]
	ref := adapter.ParseDeviceID(topic)
	if ref == nil {
		return nil
	}
	if name == "" {
		name = ref.ID
	}

	statusTopic := adapter.StatusTopic(ref.ID)
	if ref.SensorID != "" {
		// Only Hue sensors set SensorID; their composite id maps onto
		// the sensors namespace, not the default lights one.
		statusTopic = philipsRefTopic(ref)
	}

	dev := &device.Device{
		ID:     ref.ID,
		Name:   name,
		Vendor: vendor,
		Topic:  statusTopic,
		Status: device.StatusOnline,
	}
	if ref.Generation != "" || ref.BridgeID != "" || ref.Channel != 0 || ref.SensorID != "" {
		dev.Metadata = map[string]any{}
		if ref.Generation != "" {
			dev.Metadata["generation"] = ref.Generation
			dev.Metadata["channel"] = ref.Channel
		}
		if ref.BridgeID != "" {
			dev.Metadata["bridge_id"] = ref.BridgeID
		}
		if ref.LightID != "" {
			dev.Metadata["light_id"] = ref.LightID
		}
		if ref.SensorID != "" {
			dev.Metadata["sensor_id"] = ref.SensorID
		}
	}
	return dev
}

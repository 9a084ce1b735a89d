package adapters

import (
	"testing"

	"github.com/casahub/casahub-core/internal/device"
)

func TestDetectVendor(t *testing.T) {
	tests := []struct {
		topic  string
		vendor device.Vendor
		ok     bool
	}{
		{"tuya/plug1/status", device.VendorTuya, true},
		{"esp/sensor-3/status", device.VendorESP, true},
		{"midea/ac-7/command", device.VendorMidea, true},
		{"shellies/shelly1-ABCD/relay/0", device.VendorShelly, true},
		{"shellyplus1-EE00/status/switch:0", device.VendorShelly, true},
		{"zigbee2mqtt/kitchen-light", device.VendorZigbee, true},
		{"knx/1/2/3", device.VendorKNX, true},
		{"philips/bridge1/lights/3", device.VendorPhilips, true},
		{"panasonic/ac1/status", device.VendorPanasonic, true},
		{"hass/light.kitchen/status", device.VendorHomeAssistant, true},
		{"unknown/thing/status", "", false},
		{"shellyplus1-EE00/events/rpc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		vendor, ok := DetectVendor(tt.topic)
		if ok != tt.ok || vendor != tt.vendor {
			t.Errorf("DetectVendor(%q) = (%q, %v), want (%q, %v)",
				tt.topic, vendor, ok, tt.vendor, tt.ok)
		}
	}
}

func TestGetKnownVendors(t *testing.T) {
	for _, vendor := range device.Vendors {
		adapter := Get(vendor)
		if adapter == nil {
			t.Errorf("Get(%q) = nil, want adapter", vendor)
			continue
		}
		if adapter.Vendor != vendor {
			t.Errorf("Get(%q).Vendor = %q", vendor, adapter.Vendor)
		}
	}
	if Get("nest") != nil {
		t.Error("Get(nest) returned an adapter for an unknown vendor")
	}
}

// Every MQTT-native vendor's id parser must invert its topic builders.
func TestDeviceIDRoundTrip(t *testing.T) {
	ids := map[device.Vendor]string{
		device.VendorTuya:          "plug-A1",
		device.VendorESP:           "esp32-living",
		device.VendorMidea:         "ac-7",
		device.VendorShelly:        "shelly1-ABCD",
		device.VendorZigbee:        "kitchen-light",
		device.VendorKNX:           "1/2/3",
		device.VendorPhilips:       "bridge1_3",
		device.VendorPanasonic:     "ac1",
		device.VendorHomeAssistant: "light.kitchen",
	}

	for vendor, id := range ids {
		adapter := Get(vendor)

		ref := adapter.ParseDeviceID(adapter.StatusTopic(id))
		if ref == nil || ref.ID != id {
			t.Errorf("%s: ParseDeviceID(StatusTopic(%q)) = %+v, want id %q",
				vendor, id, ref, id)
		}

		ref = adapter.ParseDeviceID(adapter.CommandTopic(id))
		if ref == nil || ref.ID != id {
			t.Errorf("%s: ParseDeviceID(CommandTopic(%q)) = %+v, want id %q",
				vendor, id, ref, id)
		}
	}
}

func TestDeviceFromTopic(t *testing.T) {
	dev := DeviceFromTopic("zigbee2mqtt/kitchen-light", "")
	if dev == nil {
		t.Fatal("DeviceFromTopic returned nil for a valid zigbee topic")
	}
	if dev.Vendor != device.VendorZigbee || dev.ID != "kitchen-light" {
		t.Errorf("device = %+v", dev)
	}
	if dev.Name != "kitchen-light" {
		t.Errorf("Name = %q, want topic id fallback", dev.Name)
	}
	if dev.Status != device.StatusOnline {
		t.Errorf("Status = %q, want online", dev.Status)
	}

	dev = DeviceFromTopic("philips/bridge1/lights/3", "Hallway")
	if dev == nil {
		t.Fatal("DeviceFromTopic returned nil for a valid philips topic")
	}
	if dev.ID != "bridge1_3" {
		t.Errorf("philips composite id = %q, want bridge1_3", dev.ID)
	}
	if dev.Name != "Hallway" {
		t.Errorf("Name = %q, want Hallway", dev.Name)
	}
	if dev.Metadata["bridge_id"] != "bridge1" || dev.Metadata["light_id"] != "3" {
		t.Errorf("Metadata = %v", dev.Metadata)
	}

	dev = DeviceFromTopic("philips/bridge1/sensors/7", "Motion")
	if dev == nil {
		t.Fatal("DeviceFromTopic returned nil for a valid philips sensor topic")
	}
	if dev.Topic != "philips/bridge1/sensors/7" {
		t.Errorf("sensor Topic = %q, want the sensors namespace", dev.Topic)
	}
	if dev.Metadata["sensor_id"] != "7" {
		t.Errorf("Metadata = %v", dev.Metadata)
	}

	dev = DeviceFromTopic("shellies/shelly1-ABCD/relay/0", "")
	if dev == nil {
		t.Fatal("DeviceFromTopic returned nil for a valid shelly topic")
	}
	if dev.Metadata["generation"] != "gen1" {
		t.Errorf("Metadata = %v, want generation gen1", dev.Metadata)
	}

	if dev := DeviceFromTopic("unknown/thing", ""); dev != nil {
		t.Errorf("DeviceFromTopic(unknown prefix) = %+v, want nil", dev)
	}
	if dev := DeviceFromTopic("tuya/plug1/garbage", ""); dev != nil {
		t.Errorf("DeviceFromTopic(unparsable topic) = %+v, want nil", dev)
	}
}

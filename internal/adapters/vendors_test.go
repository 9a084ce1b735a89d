package adapters

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/casahub/casahub-core/internal/bus"
	"github.com/casahub/casahub-core/internal/device"
)

// === ESP ===

func TestESPParseStatePlainPayloads(t *testing.T) {
	tests := []struct {
		payload string
		want    bool
	}{
		{"ON", true},
		{"OFF", false},
		{"1", true},
		{"0", false},
	}

	for _, tt := range tests {
		state := espParseState(bus.NewMessage("esp/x/status", []byte(tt.payload)))
		if state == nil {
			t.Errorf("espParseState(%q) = nil", tt.payload)
			continue
		}
		if state.Power() != tt.want {
			t.Errorf("espParseState(%q).Power() = %v, want %v", tt.payload, state.Power(), tt.want)
		}
	}

	if state := espParseState(bus.NewMessage("esp/x/status", []byte("HELLO"))); state != nil {
		t.Errorf("espParseState(garbage) = %v, want nil", state)
	}
	if state := espParseState(bus.NewMessage("esp/x/status", nil)); state != nil {
		t.Errorf("espParseState(empty) = %v, want nil", state)
	}
}

func TestESPParseStateJSON(t *testing.T) {
	state := espParseState(bus.NewMessage("esp/x/status", []byte(`{"state":"ON","rssi":-61}`)))
	if state == nil || !state.Power() {
		t.Fatalf("state = %v, want power true", state)
	}
	if state["rssi"] != float64(-61) {
		t.Errorf("rssi = %v, want -61", state["rssi"])
	}
}

// === Shelly ===

func TestShellyGen1TopicParsing(t *testing.T) {
	ref := shellyParseDeviceID("shellies/shelly1-ABCD/relay/0")
	if ref == nil {
		t.Fatal("gen1 relay topic did not parse")
	}
	if ref.ID != "shelly1-ABCD" || ref.Channel != 0 || ref.Generation != "gen1" {
		t.Errorf("ref = %+v, want id shelly1-ABCD channel 0 gen1", ref)
	}
}

func TestShellyGen2TopicParsing(t *testing.T) {
	ref := shellyParseDeviceID("shellyplus1-EE00/status/switch:1")
	if ref == nil {
		t.Fatal("gen2 switch topic did not parse")
	}
	if ref.ID != "shellyplus1-EE00" || ref.Channel != 1 || ref.Generation != "gen2" {
		t.Errorf("ref = %+v, want id shellyplus1-EE00 channel 1 gen2", ref)
	}

	if ref := shellyParseDeviceID("shellyplus1-EE00/events/rpc"); ref != nil {
		t.Errorf("non-switch gen2 topic parsed: %+v", ref)
	}
}

func TestShellyParseState(t *testing.T) {
	// Gen1 bare payload.
	state := shellyParseState(bus.NewMessage("shellies/s1/relay/0", []byte("on")))
	if state == nil || !state.Power() {
		t.Errorf("gen1 'on' state = %v, want power true", state)
	}

	// Gen2 JSON document.
	state = shellyParseState(bus.NewMessage("x/status/switch:0", []byte(`{"output":true,"apower":12.5}`)))
	if state == nil || !state.Power() {
		t.Fatalf("gen2 state = %v, want power true", state)
	}
	if state["apower"] != 12.5 {
		t.Errorf("apower = %v, want 12.5", state["apower"])
	}
}

func TestShellyCommandMessage(t *testing.T) {
	msg := shellyCommandMessage("s1", shellyNewCommand(ActionPowerOn, nil))
	if msg.Topic != "shellies/s1/relay/0/command" {
		t.Errorf("topic = %q", msg.Topic)
	}
	if string(msg.Payload) != "on" {
		t.Errorf("payload = %q, want bare 'on'", msg.Payload)
	}
}

// === Zigbee ===

func TestZigbeePowerOnCommand(t *testing.T) {
	cmd := zigbeeNewCommand(ActionPowerOn, nil)
	msg := zigbeeCommandMessage("kitchen-light", cmd)

	if msg.Topic != "zigbee2mqtt/kitchen-light/set" {
		t.Errorf("topic = %q, want zigbee2mqtt/kitchen-light/set", msg.Topic)
	}
	var payload map[string]any
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if !reflect.DeepEqual(payload, map[string]any{"state": "ON"}) {
		t.Errorf("payload = %v, want {state: ON}", payload)
	}
}

func TestZigbeeBridgeTopicsIgnored(t *testing.T) {
	if ref := zigbeeParseDeviceID("zigbee2mqtt/bridge/devices"); ref != nil {
		t.Errorf("bridge topic parsed as a device: %+v", ref)
	}
	if ref := zigbeeParseDeviceID("zigbee2mqtt/bridge"); ref != nil {
		t.Errorf("bridge root parsed as a device: %+v", ref)
	}
}

func TestZigbeeSensorStates(t *testing.T) {
	state := zigbeeParseState(bus.NewMessage("zigbee2mqtt/door", []byte(`{"contact":false,"battery":97}`)))
	if state == nil {
		t.Fatal("contact sensor state did not parse")
	}
	if !state.Power() {
		t.Error("open contact sensor should report power true")
	}
	if state["battery"] != float64(97) {
		t.Errorf("battery = %v, want 97", state["battery"])
	}

	state = zigbeeParseState(bus.NewMessage("zigbee2mqtt/motion", []byte(`{"occupancy":true}`)))
	if state == nil || !state.Power() {
		t.Errorf("occupancy state = %v, want power true", state)
	}
}

// === KNX ===

func TestKNXBrightnessDefaultsDPT(t *testing.T) {
	cmd := knxNewCommand(ActionSetBrightness, 70)
	if !reflect.DeepEqual(cmd, Command{"value": 70, "dpt": "5.001"}) {
		t.Errorf("cmd = %v, want {value:70 dpt:5.001}", cmd)
	}

	msg := knxCommandMessage("1/2/3", cmd)
	if msg.Topic != "knx/1/2/3/set" {
		t.Errorf("topic = %q, want knx/1/2/3/set", msg.Topic)
	}
	var payload map[string]any
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if payload["value"] != float64(70) || payload["dpt"] != "5.001" {
		t.Errorf("payload = %v", payload)
	}
}

func TestKNXSwitchCommands(t *testing.T) {
	on := knxNewCommand(ActionPowerOn, nil)
	if on["dpt"] != "1.001" || on["value"] != true {
		t.Errorf("power_on = %v", on)
	}
	off := knxNewCommand(ActionPowerOff, nil)
	if off["dpt"] != "1.001" || off["value"] != false {
		t.Errorf("power_off = %v", off)
	}
}

func TestKNXParseState(t *testing.T) {
	state := knxParseState(bus.NewMessage("knx/1/2/3", []byte(`{"value":true,"dpt":"1.001"}`)))
	if state == nil || !state.Power() {
		t.Errorf("switching state = %v, want power true", state)
	}

	state = knxParseState(bus.NewMessage("knx/1/2/4", []byte(`{"value":21.5,"dpt":"9.001"}`)))
	if state == nil {
		t.Fatal("temperature state did not parse")
	}
	if state.Power() {
		t.Error("temperature datapoint should not report power")
	}
	if state["value"] != 21.5 {
		t.Errorf("value = %v, want 21.5", state["value"])
	}
}

// === Philips ===

func TestPhilipsParseNestedState(t *testing.T) {
	payload := []byte(`{"name":"Hallway","state":{"on":true,"bri":200,"reachable":true}}`)
	state := philipsParseState(bus.NewMessage("philips/b1/lights/3", payload))
	if state == nil {
		t.Fatal("hue light document did not parse")
	}
	if !state.Power() {
		t.Error("power = false, want true")
	}
	if state["brightness"] != float64(200) {
		t.Errorf("brightness = %v, want 200", state["brightness"])
	}
	if state["name"] != "Hallway" {
		t.Errorf("name = %v, want Hallway", state["name"])
	}
}

func TestPhilipsCompositeID(t *testing.T) {
	ref := philipsParseDeviceID("philips/bridge1/sensors/7")
	if ref == nil {
		t.Fatal("sensor topic did not parse")
	}
	if ref.ID != "bridge1_7" || ref.SensorID != "7" || ref.BridgeID != "bridge1" {
		t.Errorf("ref = %+v", ref)
	}
}

// === Home Assistant ===

func TestHassParseState(t *testing.T) {
	payload := []byte(`{"entity_id":"light.kitchen","state":"on","attributes":{"brightness":128}}`)
	state := hassParseState(bus.NewMessage("hass/light.kitchen/status", payload))
	if state == nil {
		t.Fatal("state document did not parse")
	}
	if !state.Power() {
		t.Error("power = false, want true for state 'on'")
	}
	if state["brightness"] != float64(128) {
		t.Errorf("brightness = %v, want 128", state["brightness"])
	}
}

func TestHassDomain(t *testing.T) {
	if got := hassDomain("light.kitchen"); got != "light" {
		t.Errorf("hassDomain(light.kitchen) = %q", got)
	}
	if got := hassDomain("kitchen"); got != "homeassistant" {
		t.Errorf("hassDomain(kitchen) = %q", got)
	}
}

// === Common behaviour ===

func TestParseStateMalformedPayloads(t *testing.T) {
	malformed := []byte(`{"power":`)
	for _, vendor := range device.Vendors {
		adapter := Get(vendor)
		msg := bus.NewMessage(adapter.StatusTopic("x"), malformed)
		if state := adapter.ParseState(msg); state != nil {
			t.Errorf("%s: ParseState(malformed) = %v, want nil", vendor, state)
		}
	}
}

func TestPassthroughCommands(t *testing.T) {
	cmd := tuyaNewCommand("colour_data", "ff0000")
	if cmd["colour_data"] != "ff0000" {
		t.Errorf("passthrough cmd = %v", cmd)
	}
	cmd = zigbeeNewCommand("color_temp", 350)
	if cmd["color_temp"] != 350 {
		t.Errorf("passthrough cmd = %v", cmd)
	}
}

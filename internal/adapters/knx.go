package adapters

import (
	"fmt"
	"strings"

	"github.com/casahub/casahub-core/internal/bus"
	"github.com/casahub/casahub-core/internal/device"
)

// KNX devices are addressed by group address rather than an opaque id:
// the three-level address a/b/c becomes the topic knx/a/b/c, commands
// go to knx/a/b/c/set. The device id is the group address itself,
// slashes included.
//
// Command payloads carry the value plus a datapoint type so the
// knx2mqtt gateway knows how to encode the telegram. When the caller
// does not name a DPT the adapter picks the conventional one for the
// action: 1.001 for switching, 5.001 for percentages, 9.001 for
// temperatures.

func knxStatusTopic(id string) string {
	return "knx/" + id
}

func knxCommandTopic(id string) string {
	return fmt.Sprintf("knx/%s/set", id)
}

func knxParseDeviceID(topic string) *DeviceRef {
	parts := strings.Split(topic, "/")
	if parts[0] != "knx" {
		return nil
	}
	switch len(parts) {
	case 4: // knx/a/b/c
	case 5: // knx/a/b/c/set
		if parts[4] != "set" {
			return nil
		}
	default:
		return nil
	}
	for _, seg := range parts[1:4] {
		if seg == "" {
			return nil
		}
	}
	return &DeviceRef{ID: strings.Join(parts[1:4], "/")}
}

func knxParseState(msg bus.Message) State {
	obj := decodeObject(msg.Payload)
	if obj == nil {
		return nil
	}

	state := State{}
	for k, v := range obj {
		state[k] = v
	}

	value, ok := obj["value"]
	if !ok {
		return state
	}

	// Switching datapoints (1.x) map directly onto power; everything
	// else keeps power false and exposes the raw value.
	if dpt, _ := obj["dpt"].(string); strings.HasPrefix(dpt, "1.") {
		state["power"] = truthy(value)
	} else if b, isBool := value.(bool); isBool {
		state["power"] = b
	}
	return state
}

func knxNewCommand(action string, value any) Command {
	switch action {
	case ActionPowerOn:
		return Command{"value": true, "dpt": "1.001"}
	case ActionPowerOff:
		return Command{"value": false, "dpt": "1.001"}
	case ActionSetBrightness:
		return Command{"value": value, "dpt": "5.001"}
	case ActionSetPosition:
		return Command{"value": value, "dpt": "5.001"}
	case ActionSetTemperature:
		return Command{"value": value, "dpt": "9.001"}
	case ActionSetScene:
		return Command{"value": value, "dpt": "17.001"}
	default:
		return Command{"value": value}
	}
}

func knxCommandMessage(id string, cmd Command) bus.Message {
	return bus.NewMessage(knxCommandTopic(id), marshalCommand(cmd))
}

func knxAdapter() *Adapter {
	return &Adapter{
		Vendor:         device.VendorKNX,
		StatusTopic:    knxStatusTopic,
		CommandTopic:   knxCommandTopic,
		ParseDeviceID:  knxParseDeviceID,
		ParseState:     knxParseState,
		NewCommand:     knxNewCommand,
		CommandMessage: knxCommandMessage,
	}
}

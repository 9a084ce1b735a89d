package adapters

import (
	"fmt"
	"strings"

	"github.com/casahub/casahub-core/internal/bus"
	"github.com/casahub/casahub-core/internal/device"
)

// Zigbee devices (Aqara and friends) are reached through a zigbee2mqtt
// gateway: state is published as JSON on zigbee2mqtt/{friendly-name},
// commands go to zigbee2mqtt/{friendly-name}/set. Topics under
// zigbee2mqtt/bridge/ belong to the gateway itself, not to a device.

const zigbeePrefix = "zigbee2mqtt/"

func zigbeeStatusTopic(id string) string {
	return zigbeePrefix + id
}

func zigbeeCommandTopic(id string) string {
	return fmt.Sprintf("%s%s/set", zigbeePrefix, id)
}

func zigbeeParseDeviceID(topic string) *DeviceRef {
	if !strings.HasPrefix(topic, zigbeePrefix) {
		return nil
	}
	rest := strings.TrimPrefix(topic, zigbeePrefix)
	rest = strings.TrimSuffix(rest, "/set")
	if rest == "" || strings.Contains(rest, "/") {
		return nil
	}
	if rest == "bridge" {
		return nil
	}
	return &DeviceRef{ID: rest}
}

func zigbeeParseState(msg bus.Message) State {
	obj := decodeObject(msg.Payload)
	if obj == nil {
		return nil
	}

	state := State{}
	for k, v := range obj {
		state[k] = v
	}
	switch {
	case obj["state"] != nil:
		state["power"] = truthy(obj["state"])
		delete(state, "state")
	case obj["contact"] != nil:
		// Aqara contact sensors report closed=true; open counts
		// as the "active" side.
		state["power"] = !truthy(obj["contact"])
	case obj["occupancy"] != nil:
		state["power"] = truthy(obj["occupancy"])
	}
	return state
}

func zigbeeNewCommand(action string, value any) Command {
	switch action {
	case ActionPowerOn:
		return Command{"state": "ON"}
	case ActionPowerOff:
		return Command{"state": "OFF"}
	case ActionSetBrightness:
		return Command{"brightness": value}
	case ActionSetPosition:
		return Command{"position": value}
	case ActionSetMode:
		return Command{"mode": value}
	case ActionSetScene:
		return Command{"scene_recall": value}
	default:
		return Command{action: value}
	}
}

func zigbeeCommandMessage(id string, cmd Command) bus.Message {
	return bus.NewMessage(zigbeeCommandTopic(id), marshalCommand(cmd))
}

func zigbeeAdapter() *Adapter {
	return &Adapter{
		Vendor:         device.VendorZigbee,
		StatusTopic:    zigbeeStatusTopic,
		CommandTopic:   zigbeeCommandTopic,
		ParseDeviceID:  zigbeeParseDeviceID,
		ParseState:     zigbeeParseState,
		NewCommand:     zigbeeNewCommand,
		CommandMessage: zigbeeCommandMessage,
	}
}

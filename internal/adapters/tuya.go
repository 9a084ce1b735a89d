package adapters

import (
	"fmt"
	"strings"

	"github.com/casahub/casahub-core/internal/bus"
	"github.com/casahub/casahub-core/internal/device"
)

// Tuya devices speak MQTT natively: JSON status on tuya/{id}/status,
// JSON commands on tuya/{id}/command.

func tuyaStatusTopic(id string) string {
	return fmt.Sprintf("tuya/%s/status", id)
}

func tuyaCommandTopic(id string) string {
	return fmt.Sprintf("tuya/%s/command", id)
}

func tuyaParseDeviceID(topic string) *DeviceRef {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "tuya" || parts[1] == "" {
		return nil
	}
	if parts[2] != "status" && parts[2] != "command" {
		return nil
	}
	return &DeviceRef{ID: parts[1]}
}

func tuyaParseState(msg bus.Message) State {
	obj := decodeObject(msg.Payload)
	if obj == nil {
		return nil
	}

	state := State{}
	for k, v := range obj {
		state[k] = v
	}
	if raw, ok := obj["power"]; ok {
		state["power"] = truthy(raw)
	} else if raw, ok := obj["switch"]; ok {
		state["power"] = truthy(raw)
		delete(state, "switch")
	}
	return state
}

func tuyaNewCommand(action string, value any) Command {
	switch action {
	case ActionPowerOn:
		return Command{"power": true}
	case ActionPowerOff:
		return Command{"power": false}
	case ActionSetTemperature:
		return Command{"temperature": value}
	case ActionSetBrightness:
		return Command{"brightness": value}
	case ActionSetMode:
		return Command{"mode": value}
	case ActionSetPosition:
		return Command{"position": value}
	default:
		return Command{action: value}
	}
}

func tuyaCommandMessage(id string, cmd Command) bus.Message {
	return bus.NewMessage(tuyaCommandTopic(id), marshalCommand(cmd))
}

func tuyaAdapter() *Adapter {
	return &Adapter{
		Vendor:         device.VendorTuya,
		StatusTopic:    tuyaStatusTopic,
		CommandTopic:   tuyaCommandTopic,
		ParseDeviceID:  tuyaParseDeviceID,
		ParseState:     tuyaParseState,
		NewCommand:     tuyaNewCommand,
		CommandMessage: tuyaCommandMessage,
	}
}

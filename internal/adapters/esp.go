package adapters

import (
	"fmt"
	"strings"

	"github.com/casahub/casahub-core/internal/bus"
	"github.com/casahub/casahub-core/internal/device"
)

// ESP32/ESP8266 firmware publishes bare "ON"/"OFF" strings on
// esp/{id}/status and accepts the same strings on esp/{id}/command.
// Richer firmware builds publish JSON objects instead; both are
// accepted.

func espStatusTopic(id string) string {
	return fmt.Sprintf("esp/%s/status", id)
}

func espCommandTopic(id string) string {
	return fmt.Sprintf("esp/%s/command", id)
}

func espParseDeviceID(topic string) *DeviceRef {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "esp" || parts[1] == "" {
		return nil
	}
	if parts[2] != "status" && parts[2] != "command" {
		return nil
	}
	return &DeviceRef{ID: parts[1]}
}

func espParseState(msg bus.Message) State {
	payload := strings.TrimSpace(string(msg.Payload))
	if payload == "" {
		return nil
	}

	if obj := decodeObject(msg.Payload); obj != nil {
		state := State{}
		for k, v := range obj {
			state[k] = v
		}
		if raw, ok := obj["state"]; ok {
			state["power"] = truthy(raw)
			delete(state, "state")
		} else if raw, ok := obj["power"]; ok {
			state["power"] = truthy(raw)
		}
		return state
	}

	switch payload {
	case "ON", "on", "1", "true":
		return State{"power": true}
	case "OFF", "off", "0", "false":
		return State{"power": false}
	}
	return nil
}

func espNewCommand(action string, value any) Command {
	switch action {
	case ActionPowerOn:
		return Command{"state": "ON"}
	case ActionPowerOff:
		return Command{"state": "OFF"}
	default:
		return Command{action: value}
	}
}

// espCommandMessage emits bare "ON"/"OFF" for plain power commands, the
// wire form the firmware expects, and JSON for everything else.
func espCommandMessage(id string, cmd Command) bus.Message {
	if len(cmd) == 1 {
		if s, ok := cmd["state"].(string); ok {
			return bus.NewMessage(espCommandTopic(id), []byte(s))
		}
	}
	return bus.NewMessage(espCommandTopic(id), marshalCommand(cmd))
}

func espAdapter() *Adapter {
	return &Adapter{
		Vendor:         device.VendorESP,
		StatusTopic:    espStatusTopic,
		CommandTopic:   espCommandTopic,
		ParseDeviceID:  espParseDeviceID,
		ParseState:     espParseState,
		NewCommand:     espNewCommand,
		CommandMessage: espCommandMessage,
	}
}

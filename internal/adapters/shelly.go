package adapters

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/casahub/casahub-core/internal/bus"
	"github.com/casahub/casahub-core/internal/device"
)

// Shelly topic conventions differ by hardware generation and the two
// shapes cannot be unified:
//
//	Gen1: shellies/{id}/relay/{ch} with bare "on"/"off" payloads,
//	      commands on shellies/{id}/relay/{ch}/command.
//	Gen2: {id}/status/switch:{n} with JSON payloads, commands on
//	      {id}/rpc.
//
// Gen1 is recognised by the "shellies/" prefix, Gen2 by the
// switch-topic regex. New ids default to Gen1 channel 0.

var shellyGen2Topic = regexp.MustCompile(`^([^/]+)/status/switch:(\d+)$`)

func shellyStatusTopic(id string) string {
	return fmt.Sprintf("shellies/%s/relay/0", id)
}

func shellyCommandTopic(id string) string {
	return fmt.Sprintf("shellies/%s/relay/0/command", id)
}

func shellyParseDeviceID(topic string) *DeviceRef {
	if strings.HasPrefix(topic, "shellies/") {
		parts := strings.Split(topic, "/")
		// shellies/{id}/relay/{ch} or .../command
		if len(parts) < 4 || parts[1] == "" || parts[2] != "relay" {
			return nil
		}
		if len(parts) == 5 && parts[4] != "command" {
			return nil
		}
		if len(parts) > 5 {
			return nil
		}
		ch, err := strconv.Atoi(parts[3])
		if err != nil {
			return nil
		}
		return &DeviceRef{ID: parts[1], Channel: ch, Generation: "gen1"}
	}

	if m := shellyGen2Topic.FindStringSubmatch(topic); m != nil {
		ch, err := strconv.Atoi(m[2])
		if err != nil {
			return nil
		}
		return &DeviceRef{ID: m[1], Channel: ch, Generation: "gen2"}
	}
	return nil
}

func shellyParseState(msg bus.Message) State {
	if obj := decodeObject(msg.Payload); obj != nil {
		// Gen2 switch status documents carry "output".
		state := State{}
		for k, v := range obj {
			state[k] = v
		}
		if raw, ok := obj["output"]; ok {
			state["power"] = truthy(raw)
			delete(state, "output")
		} else if raw, ok := obj["ison"]; ok {
			state["power"] = truthy(raw)
			delete(state, "ison")
		}
		return state
	}

	switch strings.TrimSpace(string(msg.Payload)) {
	case "on", "ON", "1", "true":
		return State{"power": true}
	case "off", "OFF", "0", "false":
		return State{"power": false}
	}
	return nil
}

func shellyNewCommand(action string, value any) Command {
	switch action {
	case ActionPowerOn:
		return Command{"turn": "on"}
	case ActionPowerOff:
		return Command{"turn": "off"}
	case ActionSetPosition:
		return Command{"go": "to_pos", "roller_pos": value}
	case ActionSetBrightness:
		return Command{"brightness": value}
	default:
		return Command{action: value}
	}
}

// shellyCommandMessage emits bare "on"/"off" for plain relay commands,
// the Gen1 wire form, and JSON for everything else.
func shellyCommandMessage(id string, cmd Command) bus.Message {
	if len(cmd) == 1 {
		if turn, ok := cmd["turn"].(string); ok {
			return bus.NewMessage(shellyCommandTopic(id), []byte(turn))
		}
	}
	return bus.NewMessage(shellyCommandTopic(id), marshalCommand(cmd))
}

func shellyAdapter() *Adapter {
	return &Adapter{
		Vendor:         device.VendorShelly,
		StatusTopic:    shellyStatusTopic,
		CommandTopic:   shellyCommandTopic,
		ParseDeviceID:  shellyParseDeviceID,
		ParseState:     shellyParseState,
		NewCommand:     shellyNewCommand,
		CommandMessage: shellyCommandMessage,
	}
}

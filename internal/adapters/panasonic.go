package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/casahub/casahub-core/internal/bus"
	"github.com/casahub/casahub-core/internal/device"
)

// Panasonic climate units are cloud-only: the bridge polls
// /devices/{id}/status and controls via /devices/{id}/control,
// authenticated with an API-key header. On the bus their state appears
// under panasonic/{id}/status with commands on panasonic/{id}/command.

func panasonicStatusTopic(id string) string {
	return fmt.Sprintf("panasonic/%s/status", id)
}

func panasonicCommandTopic(id string) string {
	return fmt.Sprintf("panasonic/%s/command", id)
}

func panasonicParseDeviceID(topic string) *DeviceRef {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "panasonic" || parts[1] == "" {
		return nil
	}
	if parts[2] != "status" && parts[2] != "command" {
		return nil
	}
	return &DeviceRef{ID: parts[1]}
}

func panasonicParseState(msg bus.Message) State {
	obj := decodeObject(msg.Payload)
	if obj == nil {
		return nil
	}
	return panasonicNormalise(obj)
}

func panasonicNormalise(obj map[string]any) State {
	state := State{}
	for k, v := range obj {
		state[k] = v
	}
	if raw, ok := obj["power"]; ok {
		state["power"] = truthy(raw)
	} else if raw, ok := obj["operate"]; ok {
		state["power"] = truthy(raw)
		delete(state, "operate")
	}
	return state
}

func panasonicNewCommand(action string, value any) Command {
	switch action {
	case ActionPowerOn:
		return Command{"power": "on"}
	case ActionPowerOff:
		return Command{"power": "off"}
	case ActionSetTemperature:
		return Command{"temperature": value}
	case ActionSetMode:
		return Command{"mode": value}
	case ActionSetFanSpeed:
		return Command{"fanSpeed": value}
	case ActionSetSwing:
		return Command{"swing": value}
	default:
		return Command{action: value}
	}
}

func panasonicCommandMessage(id string, cmd Command) bus.Message {
	return bus.NewMessage(panasonicCommandTopic(id), marshalCommand(cmd))
}

func panasonicDeviceURL(cfg RESTConfig, id, suffix string) (string, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return "", fmt.Errorf("%w: panasonic base URL and API key are required", ErrMissingConfig)
	}
	return fmt.Sprintf("%s/devices/%s/%s", strings.TrimSuffix(cfg.BaseURL, "/"), id, suffix), nil
}

func panasonicHeaders(cfg RESTConfig) map[string]string {
	return map[string]string{"X-APPS-Token": cfg.APIKey}
}

// panasonicListDevices enumerates registered units from /devices. The
// endpoint wraps the list in a "devices" array of {"id": ...} objects.
func panasonicListDevices(ctx context.Context, client *http.Client, cfg RESTConfig) ([]string, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: panasonic base URL and API key are required", ErrMissingConfig)
	}
	endpoint := strings.TrimSuffix(cfg.BaseURL, "/") + "/devices"

	obj, err := getJSON(ctx, client, endpoint, panasonicHeaders(cfg))
	if err != nil {
		return nil, err
	}

	list, ok := obj["devices"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing devices array", ErrBadResponse)
	}

	var ids []string
	for _, entry := range list {
		if m, ok := entry.(map[string]any); ok {
			if id, ok := m["id"].(string); ok && id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func panasonicDeviceState(ctx context.Context, client *http.Client, cfg RESTConfig, id string) (State, error) {
	endpoint, err := panasonicDeviceURL(cfg, id, "status")
	if err != nil {
		return nil, err
	}

	obj, err := getJSON(ctx, client, endpoint, panasonicHeaders(cfg))
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: empty status response", ErrBadResponse)
	}
	return panasonicNormalise(obj), nil
}

func panasonicSendCommand(ctx context.Context, client *http.Client, cfg RESTConfig, id string, cmd Command) error {
	endpoint, err := panasonicDeviceURL(cfg, id, "control")
	if err != nil {
		return err
	}

	_, err = sendJSON(ctx, client, http.MethodPost, endpoint, panasonicHeaders(cfg), cmd)
	return err
}

func panasonicAdapter() *Adapter {
	return &Adapter{
		Vendor:         device.VendorPanasonic,
		StatusTopic:    panasonicStatusTopic,
		CommandTopic:   panasonicCommandTopic,
		ParseDeviceID:  panasonicParseDeviceID,
		ParseState:     panasonicParseState,
		NewCommand:     panasonicNewCommand,
		CommandMessage: panasonicCommandMessage,
		ListDevices:    panasonicListDevices,
		DeviceState:    panasonicDeviceState,
		SendCommand:    panasonicSendCommand,
	}
}

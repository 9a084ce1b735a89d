package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/casahub/casahub-core/internal/bus"
	"github.com/casahub/casahub-core/internal/device"
)

// Midea appliances appear in two flavours: LAN-flashed units that speak
// MQTT on midea/{id}/status|command, and cloud-only units reached
// through the legacy protocol-5.0 gateway, which exposes one fixed
// endpoint taking an "action" field in the JSON body and the app key as
// a query parameter.

// mideaEndpoint is the single transparent-send endpoint of the legacy
// cloud gateway.
const mideaEndpoint = "/v5/appliance/transparent/send"

func mideaStatusTopic(id string) string {
	return fmt.Sprintf("midea/%s/status", id)
}

func mideaCommandTopic(id string) string {
	return fmt.Sprintf("midea/%s/command", id)
}

func mideaParseDeviceID(topic string) *DeviceRef {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "midea" || parts[1] == "" {
		return nil
	}
	if parts[2] != "status" && parts[2] != "command" {
		return nil
	}
	return &DeviceRef{ID: parts[1]}
}

func mideaParseState(msg bus.Message) State {
	obj := decodeObject(msg.Payload)
	if obj == nil {
		return nil
	}
	return mideaNormalise(obj)
}

// mideaNormalise maps a raw appliance document onto the common state
// shape. Used for both MQTT payloads and cloud responses.
func mideaNormalise(obj map[string]any) State {
	state := State{}
	for k, v := range obj {
		state[k] = v
	}
	if raw, ok := obj["power"]; ok {
		state["power"] = truthy(raw)
	} else if raw, ok := obj["run_status"]; ok {
		state["power"] = truthy(raw)
		delete(state, "run_status")
	}
	return state
}

func mideaNewCommand(action string, value any) Command {
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
		return Command{"fan_speed": value}
	case ActionSetSwing:
		return Command{"swing": value}
	default:
		return Command{action: value}
	}
}

func mideaCommandMessage(id string, cmd Command) bus.Message {
	return bus.NewMessage(mideaCommandTopic(id), marshalCommand(cmd))
}

// mideaURL builds the transparent-send URL with the query-embedded app
// key.
func mideaURL(cfg RESTConfig) (string, error) {
	if cfg.BaseURL == "" || cfg.AppKey == "" {
		return "", fmt.Errorf("%w: midea base URL and app key are required", ErrMissingConfig)
	}
	return fmt.Sprintf("%s%s?appKey=%s",
		strings.TrimSuffix(cfg.BaseURL, "/"), mideaEndpoint, url.QueryEscape(cfg.AppKey)), nil
}

// mideaListDevices enumerates appliances through the same transparent
// endpoint with the "list" action.
func mideaListDevices(ctx context.Context, client *http.Client, cfg RESTConfig) ([]string, error) {
	endpoint, err := mideaURL(cfg)
	if err != nil {
		return nil, err
	}

	resp, err := sendJSON(ctx, client, http.MethodPost, endpoint, nil, map[string]any{"action": "list"})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty list response", ErrBadResponse)
	}

	result, _ := resp["result"].(map[string]any)
	list, ok := result["list"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing appliance list", ErrBadResponse)
	}

	var ids []string
	for _, entry := range list {
		if m, ok := entry.(map[string]any); ok {
			if id, ok := m["applianceId"].(string); ok && id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func mideaDeviceState(ctx context.Context, client *http.Client, cfg RESTConfig, id string) (State, error) {
	endpoint, err := mideaURL(cfg)
	if err != nil {
		return nil, err
	}

	body := map[string]any{"action": "status", "applianceId": id}
	resp, err := sendJSON(ctx, client, http.MethodPost, endpoint, nil, body)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty status response", ErrBadResponse)
	}

	// The gateway nests appliance data under "result".
	if result, ok := resp["result"].(map[string]any); ok {
		return mideaNormalise(result), nil
	}
	return mideaNormalise(resp), nil
}

func mideaSendCommand(ctx context.Context, client *http.Client, cfg RESTConfig, id string, cmd Command) error {
	endpoint, err := mideaURL(cfg)
	if err != nil {
		return err
	}

	body := map[string]any{"action": "control", "applianceId": id}
	for k, v := range cmd {
		body[k] = v
	}
	_, err = sendJSON(ctx, client, http.MethodPost, endpoint, nil, body)
	return err
}

func mideaAdapter() *Adapter {
	return &Adapter{
		Vendor:         device.VendorMidea,
		StatusTopic:    mideaStatusTopic,
		CommandTopic:   mideaCommandTopic,
		ParseDeviceID:  mideaParseDeviceID,
		ParseState:     mideaParseState,
		NewCommand:     mideaNewCommand,
		CommandMessage: mideaCommandMessage,
		ListDevices:    mideaListDevices,
		DeviceState:    mideaDeviceState,
		SendCommand:    mideaSendCommand,
	}
}

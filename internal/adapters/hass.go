package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/casahub/casahub-core/internal/bus"
	"github.com/casahub/casahub-core/internal/device"
)

// Home Assistant entities are reached through its REST API with a
// long-lived bearer token: state from /api/states/{entityId}, control
// through /api/services/{domain}/{service} where the domain is the
// entity id's prefix ("light.kitchen" -> "light"). On the bus entities
// appear under hass/{entityId}/status with commands on
// hass/{entityId}/command.

func hassStatusTopic(id string) string {
	return fmt.Sprintf("hass/%s/status", id)
}

func hassCommandTopic(id string) string {
	return fmt.Sprintf("hass/%s/command", id)
}

func hassParseDeviceID(topic string) *DeviceRef {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "hass" || parts[1] == "" {
		return nil
	}
	if parts[2] != "status" && parts[2] != "command" {
		return nil
	}
	return &DeviceRef{ID: parts[1]}
}

func hassParseState(msg bus.Message) State {
	obj := decodeObject(msg.Payload)
	if obj == nil {
		return nil
	}
	return hassNormalise(obj)
}

// hassNormalise flattens a Home Assistant state document: the "state"
// string becomes the power flag and the attributes map is merged in.
func hassNormalise(obj map[string]any) State {
	state := State{}

	if attrs, ok := obj["attributes"].(map[string]any); ok {
		for k, v := range attrs {
			state[k] = v
		}
	}
	for k, v := range obj {
		switch k {
		case "attributes":
		case "state":
			state["power"] = truthy(v)
			state["ha_state"] = v
		default:
			state[k] = v
		}
	}
	return state
}

func hassNewCommand(action string, value any) Command {
	switch action {
	case ActionPowerOn:
		return Command{"service": "turn_on"}
	case ActionPowerOff:
		return Command{"service": "turn_off"}
	case ActionSetBrightness:
		return Command{"service": "turn_on", "brightness": value}
	case ActionSetTemperature:
		return Command{"service": "set_temperature", "temperature": value}
	case ActionSetMode:
		return Command{"service": "set_hvac_mode", "hvac_mode": value}
	case ActionSetScene:
		return Command{"service": "turn_on", "scene": value}
	default:
		return Command{action: value}
	}
}

func hassCommandMessage(id string, cmd Command) bus.Message {
	return bus.NewMessage(hassCommandTopic(id), marshalCommand(cmd))
}

// hassDomain extracts the service domain from an entity id.
// "light.kitchen" -> "light"; ids without a dot fall back to
// "homeassistant", the catch-all domain.
func hassDomain(id string) string {
	if i := strings.Index(id, "."); i > 0 {
		return id[:i]
	}
	return "homeassistant"
}

func hassHeaders(cfg RESTConfig) map[string]string {
	return map[string]string{"Authorization": "Bearer " + cfg.Token}
}

// hassListDevices enumerates entities from /api/states, which answers
// with an array of state documents.
func hassListDevices(ctx context.Context, client *http.Client, cfg RESTConfig) ([]string, error) {
	if cfg.BaseURL == "" || cfg.Token == "" {
		return nil, fmt.Errorf("%w: hass base URL and token are required", ErrMissingConfig)
	}
	endpoint := strings.TrimSuffix(cfg.BaseURL, "/") + "/api/states"

	list, err := getJSONList(ctx, client, endpoint, hassHeaders(cfg))
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, entry := range list {
		if id, ok := entry["entity_id"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func hassDeviceState(ctx context.Context, client *http.Client, cfg RESTConfig, id string) (State, error) {
	if cfg.BaseURL == "" || cfg.Token == "" {
		return nil, fmt.Errorf("%w: hass base URL and token are required", ErrMissingConfig)
	}
	endpoint := fmt.Sprintf("%s/api/states/%s", strings.TrimSuffix(cfg.BaseURL, "/"), id)

	obj, err := getJSON(ctx, client, endpoint, hassHeaders(cfg))
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: empty state document", ErrBadResponse)
	}
	return hassNormalise(obj), nil
}

func hassSendCommand(ctx context.Context, client *http.Client, cfg RESTConfig, id string, cmd Command) error {
	if cfg.BaseURL == "" || cfg.Token == "" {
		return fmt.Errorf("%w: hass base URL and token are required", ErrMissingConfig)
	}

	service, _ := cmd["service"].(string)
	if service == "" {
		service = "turn_on"
	}
	endpoint := fmt.Sprintf("%s/api/services/%s/%s",
		strings.TrimSuffix(cfg.BaseURL, "/"), hassDomain(id), service)

	body := map[string]any{"entity_id": id}
	for k, v := range cmd {
		if k != "service" {
			body[k] = v
		}
	}

	_, err := sendJSON(ctx, client, http.MethodPost, endpoint, hassHeaders(cfg), body)
	return err
}

func hassAdapter() *Adapter {
	return &Adapter{
		Vendor:         device.VendorHomeAssistant,
		StatusTopic:    hassStatusTopic,
		CommandTopic:   hassCommandTopic,
		ParseDeviceID:  hassParseDeviceID,
		ParseState:     hassParseState,
		NewCommand:     hassNewCommand,
		CommandMessage: hassCommandMessage,
		ListDevices:    hassListDevices,
		DeviceState:    hassDeviceState,
		SendCommand:    hassSendCommand,
	}
}

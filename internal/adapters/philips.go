package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/casahub/casahub-core/internal/bus"
	"github.com/casahub/casahub-core/internal/device"
)

// Philips Hue lights live behind a bridge, so the device id is the
// composite "{bridgeId}_{lightId}". On the bus a light's state appears
// under philips/{bridgeId}/lights/{lightId} with commands on the same
// topic plus /command; sensors nest under /sensors/{id}. The bridge
// REST API embeds the application key in the URL path.

func philipsStatusTopic(id string) string {
	bridgeID, lightID := philipsSplitID(id)
	return fmt.Sprintf("philips/%s/lights/%s", bridgeID, lightID)
}

func philipsCommandTopic(id string) string {
	return philipsStatusTopic(id) + "/command"
}

// philipsSplitID splits the composite id at the first underscore. Ids
// without an underscore are treated as a light on the default bridge.
func philipsSplitID(id string) (bridgeID, lightID string) {
	if i := strings.Index(id, "_"); i > 0 {
		return id[:i], id[i+1:]
	}
	return "bridge", id
}

// philipsRefTopic rebuilds the status topic from a parsed ref. Sensor
// refs live under the sensors namespace, which the id-based builder
// cannot recover from the composite id alone.
func philipsRefTopic(ref *DeviceRef) string {
	if ref.SensorID != "" {
		return fmt.Sprintf("philips/%s/sensors/%s", ref.BridgeID, ref.SensorID)
	}
	return philipsStatusTopic(ref.ID)
}

func philipsParseDeviceID(topic string) *DeviceRef {
	parts := strings.Split(topic, "/")
	if parts[0] != "philips" || len(parts) < 4 || parts[1] == "" || parts[3] == "" {
		return nil
	}
	if len(parts) == 5 && parts[4] != "command" {
		return nil
	}
	if len(parts) > 5 {
		return nil
	}

	ref := &DeviceRef{BridgeID: parts[1]}
	switch parts[2] {
	case "lights":
		ref.LightID = parts[3]
	case "sensors":
		ref.SensorID = parts[3]
	default:
		return nil
	}
	ref.ID = parts[1] + "_" + parts[3]
	return ref
}

func philipsParseState(msg bus.Message) State {
	obj := decodeObject(msg.Payload)
	if obj == nil {
		return nil
	}
	return philipsNormalise(obj)
}

// philipsNormalise flattens a Hue light document. The REST API nests
// the interesting fields under "state"; bus payloads may already be
// flat.
func philipsNormalise(obj map[string]any) State {
	state := State{}

	inner, nested := obj["state"].(map[string]any)
	if !nested {
		inner = obj
	} else {
		for k, v := range obj {
			if k != "state" {
				state[k] = v
			}
		}
	}

	for k, v := range inner {
		switch k {
		case "on":
			state["power"] = truthy(v)
		case "bri":
			state["brightness"] = v
		default:
			state[k] = v
		}
	}
	if _, ok := state["power"]; !ok {
		if raw, exists := inner["power"]; exists {
			state["power"] = truthy(raw)
		}
	}
	return state
}

func philipsNewCommand(action string, value any) Command {
	switch action {
	case ActionPowerOn:
		return Command{"on": true}
	case ActionPowerOff:
		return Command{"on": false}
	case ActionSetBrightness:
		return Command{"bri": value}
	case ActionSetScene:
		return Command{"scene": value}
	default:
		return Command{action: value}
	}
}

func philipsCommandMessage(id string, cmd Command) bus.Message {
	return bus.NewMessage(philipsCommandTopic(id), marshalCommand(cmd))
}

// philipsLightURL builds the bridge URL for one light. The application
// key sits in the path, Hue style.
func philipsLightURL(cfg RESTConfig, lightID, suffix string) (string, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return "", fmt.Errorf("%w: philips base URL and API key are required", ErrMissingConfig)
	}
	return fmt.Sprintf("%s/api/%s/lights/%s%s",
		strings.TrimSuffix(cfg.BaseURL, "/"), cfg.APIKey, lightID, suffix), nil
}

// philipsListDevices enumerates the bridge's lights. The list endpoint
// keys lights by id, so the ids are the document keys, composed with
// the configured bridge id.
func philipsListDevices(ctx context.Context, client *http.Client, cfg RESTConfig) ([]string, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: philips base URL and API key are required", ErrMissingConfig)
	}
	endpoint := fmt.Sprintf("%s/api/%s/lights", strings.TrimSuffix(cfg.BaseURL, "/"), cfg.APIKey)

	obj, err := getJSON(ctx, client, endpoint, nil)
	if err != nil {
		return nil, err
	}

	bridgeID := cfg.BridgeID
	if bridgeID == "" {
		bridgeID = "bridge"
	}
	ids := make([]string, 0, len(obj))
	for lightID := range obj {
		ids = append(ids, bridgeID+"_"+lightID)
	}
	return ids, nil
}

func philipsDeviceState(ctx context.Context, client *http.Client, cfg RESTConfig, id string) (State, error) {
	_, lightID := philipsSplitID(id)
	endpoint, err := philipsLightURL(cfg, lightID, "")
	if err != nil {
		return nil, err
	}

	obj, err := getJSON(ctx, client, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: empty light document", ErrBadResponse)
	}
	return philipsNormalise(obj), nil
}

func philipsSendCommand(ctx context.Context, client *http.Client, cfg RESTConfig, id string, cmd Command) error {
	_, lightID := philipsSplitID(id)
	endpoint, err := philipsLightURL(cfg, lightID, "/state")
	if err != nil {
		return err
	}

	_, err = sendJSON(ctx, client, http.MethodPut, endpoint, nil, cmd)
	return err
}

func philipsAdapter() *Adapter {
	return &Adapter{
		Vendor:         device.VendorPhilips,
		StatusTopic:    philipsStatusTopic,
		CommandTopic:   philipsCommandTopic,
		ParseDeviceID:  philipsParseDeviceID,
		ParseState:     philipsParseState,
		NewCommand:     philipsNewCommand,
		CommandMessage: philipsCommandMessage,
		ListDevices:    philipsListDevices,
		DeviceState:    philipsDeviceState,
		SendCommand:    philipsSendCommand,
	}
}

package adapters

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/casahub/casahub-core/internal/bus"
	"github.com/casahub/casahub-core/internal/device"
)

// Known command actions. Every adapter's NewCommand switches over this
// vocabulary; unknown actions fall through to a vendor-specific opaque
// passthrough so new actions do not require touching the dispatcher.
const (
	ActionPowerOn        = "power_on"
	ActionPowerOff       = "power_off"
	ActionSetTemperature = "set_temperature"
	ActionSetBrightness  = "set_brightness"
	ActionSetMode        = "set_mode"
	ActionSetFanSpeed    = "set_fan_speed"
	ActionSetSwing       = "set_swing"
	ActionSetPosition    = "set_position"
	ActionSetScene       = "set_scene"
)

// State is the normalised device state produced by an adapter's ParseState.
// It always carries a "power" boolean when the vendor payload encodes an
// on/off notion, plus whatever vendor-specific fields the payload held
// (brightness, temperature, mode, ...). Only ParseState constructs these.
type State map[string]any

// Power reports the normalised power flag. Devices without an on/off
// notion report false.
func (s State) Power() bool {
	v, ok := s["power"].(bool)
	return ok && v
}

// Command is a vendor-encoded control command as produced by an adapter's
// NewCommand. Its keys are already in the vendor's own wire vocabulary;
// CommandMessage serialises it without further translation.
type Command map[string]any

// DeviceRef is the structured result of parsing a device id out of a
// topic. ID is always set; the remaining fields are populated only by
// vendors whose topics carry extra structure (Shelly channel/generation,
// Philips bridge/light split).
type DeviceRef struct {
	ID         string
	Channel    int
	Generation string
	BridgeID   string
	LightID    string
	SensorID   string
}

// Adapter is the per-vendor function table. MQTT-native vendors populate
// the topic/parse/command functions; REST-native vendors additionally
// populate DeviceState and SendCommand. Fields left nil mean the vendor
// does not support that operation.
type Adapter struct {
	Vendor device.Vendor

	// StatusTopic returns the topic a device's state is published on.
	StatusTopic func(id string) string

	// CommandTopic returns the topic commands for a device are sent on.
	CommandTopic func(id string) string

	// ParseDeviceID extracts the device reference from a status or
	// command topic. Returns nil when the topic does not belong to
	// this vendor or cannot be parsed.
	ParseDeviceID func(topic string) *DeviceRef

	// ParseState decodes a status payload into a normalised State.
	// Returns nil on malformed payloads, never panics.
	ParseState func(msg bus.Message) State

	// NewCommand translates a generic action/value pair into the
	// vendor's command encoding.
	NewCommand func(action string, value any) Command

	// CommandMessage wraps an encoded command into a bus message on
	// the device's command topic.
	CommandMessage func(id string, cmd Command) bus.Message

	// ListDevices fetches the ids of all devices the vendor's REST
	// API currently reports.
	ListDevices func(ctx context.Context, client *http.Client, cfg RESTConfig) ([]string, error)

	// DeviceState fetches live state over the vendor's REST API.
	DeviceState func(ctx context.Context, client *http.Client, cfg RESTConfig, id string) (State, error)

	// SendCommand forwards a command over the vendor's REST API.
	SendCommand func(ctx context.Context, client *http.Client, cfg RESTConfig, id string, cmd Command) error
}

// decodeObject unmarshals a JSON object payload. Returns nil for
// anything that is not a JSON object.
func decodeObject(payload []byte) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil
	}
	return obj
}

// marshalCommand serialises a command payload. A command that cannot be
// marshalled yields an empty JSON object rather than a malformed message.
func marshalCommand(cmd Command) []byte {
	data, err := json.Marshal(cmd)
	if err != nil {
		return []byte("{}")
	}
	return data
}

// truthy normalises the vendor zoo of "on" encodings into a boolean:
// "ON", "on", "1", "true", "open", "active", numeric 1, boolean true.
func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch val {
		case "ON", "on", "On", "1", "true", "open", "active":
			return true
		}
		return false
	case float64:
		return val != 0
	case int:
		return val != 0
	}
	return false
}

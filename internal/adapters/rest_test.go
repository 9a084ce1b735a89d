package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPhilipsDeviceState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/secret-key/lights/3" {
			t.Errorf("path = %q, want /api/secret-key/lights/3", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"name":  "Hallway",
			"state": map[string]any{"on": true, "bri": 254},
		})
	}))
	defer server.Close()

	cfg := RESTConfig{BaseURL: server.URL, APIKey: "secret-key"}
	state, err := philipsDeviceState(context.Background(), server.Client(), cfg, "bridge1_3")
	if err != nil {
		t.Fatalf("philipsDeviceState() error = %v", err)
	}
	if !state.Power() {
		t.Error("power = false, want true")
	}
	if state["brightness"] != float64(254) {
		t.Errorf("brightness = %v, want 254", state["brightness"])
	}
}

func TestPhilipsSendCommand(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`[{"success":{"/lights/3/state/on":true}}]`))
	}))
	defer server.Close()

	cfg := RESTConfig{BaseURL: server.URL, APIKey: "k"}
	err := philipsSendCommand(context.Background(), server.Client(), cfg, "bridge1_3", Command{"on": true})
	if err != nil {
		t.Fatalf("philipsSendCommand() error = %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/api/k/lights/3/state" {
		t.Errorf("request = %s %s, want PUT /api/k/lights/3/state", gotMethod, gotPath)
	}
	if gotBody["on"] != true {
		t.Errorf("body = %v", gotBody)
	}
}

func TestPanasonicREST(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-APPS-Token") != "tok" {
			t.Errorf("missing API key header, got %q", r.Header.Get("X-APPS-Token"))
		}
		switch r.URL.Path {
		case "/devices/ac1/status":
			json.NewEncoder(w).Encode(map[string]any{"operate": 1, "temperature": 22.0})
		case "/devices/ac1/control":
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cfg := RESTConfig{BaseURL: server.URL, APIKey: "tok"}
	state, err := panasonicDeviceState(context.Background(), server.Client(), cfg, "ac1")
	if err != nil {
		t.Fatalf("panasonicDeviceState() error = %v", err)
	}
	if !state.Power() {
		t.Error("operate=1 should normalise to power true")
	}

	err = panasonicSendCommand(context.Background(), server.Client(), cfg, "ac1", Command{"temperature": 21})
	if err != nil {
		t.Fatalf("panasonicSendCommand() error = %v", err)
	}
}

func TestHassREST(t *testing.T) {
	var gotService string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tkn" {
			t.Errorf("auth header = %q", r.Header.Get("Authorization"))
		}
		switch r.URL.Path {
		case "/api/states/light.kitchen":
			json.NewEncoder(w).Encode(map[string]any{
				"state":      "on",
				"attributes": map[string]any{"brightness": 128},
			})
		case "/api/services/light/turn_off":
			gotService = "turn_off"
			json.NewDecoder(r.Body).Decode(&gotBody)
			w.Write([]byte(`[]`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cfg := RESTConfig{BaseURL: server.URL, Token: "tkn"}
	state, err := hassDeviceState(context.Background(), server.Client(), cfg, "light.kitchen")
	if err != nil {
		t.Fatalf("hassDeviceState() error = %v", err)
	}
	if !state.Power() || state["brightness"] != float64(128) {
		t.Errorf("state = %v", state)
	}

	err = hassSendCommand(context.Background(), server.Client(), cfg, "light.kitchen",
		hassNewCommand(ActionPowerOff, nil))
	if err != nil {
		t.Fatalf("hassSendCommand() error = %v", err)
	}
	if gotService != "turn_off" {
		t.Error("turn_off service was not called")
	}
	if gotBody["entity_id"] != "light.kitchen" {
		t.Errorf("body = %v, want entity_id light.kitchen", gotBody)
	}
}

func TestMideaREST(t *testing.T) {
	var actions []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v5/appliance/transparent/send" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("appKey") != "ak" {
			t.Errorf("appKey = %q", r.URL.Query().Get("appKey"))
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		action, _ := body["action"].(string)
		actions = append(actions, action)

		if action == "status" {
			json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{"run_status": "on", "temperature": 24.0},
			})
			return
		}
		w.Write([]byte(`{"code":0}`))
	}))
	defer server.Close()

	cfg := RESTConfig{BaseURL: server.URL, AppKey: "ak"}
	state, err := mideaDeviceState(context.Background(), server.Client(), cfg, "ac-7")
	if err != nil {
		t.Fatalf("mideaDeviceState() error = %v", err)
	}
	if !state.Power() || state["temperature"] != 24.0 {
		t.Errorf("state = %v", state)
	}

	err = mideaSendCommand(context.Background(), server.Client(), cfg, "ac-7", Command{"temperature": 22})
	if err != nil {
		t.Fatalf("mideaSendCommand() error = %v", err)
	}
	if len(actions) != 2 || actions[0] != "status" || actions[1] != "control" {
		t.Errorf("actions = %v, want [status control]", actions)
	}
}

func TestListDevices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/k/lights":
			json.NewEncoder(w).Encode(map[string]any{
				"1": map[string]any{"name": "Hallway"},
				"3": map[string]any{"name": "Kitchen"},
			})
		case "/devices":
			json.NewEncoder(w).Encode(map[string]any{
				"devices": []map[string]any{{"id": "ac1"}, {"id": "ac2"}},
			})
		case "/api/states":
			json.NewEncoder(w).Encode([]map[string]any{
				{"entity_id": "light.kitchen"},
				{"entity_id": "climate.hall"},
			})
		case "/v5/appliance/transparent/send":
			json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{
					"list": []map[string]any{{"applianceId": "ac-7"}},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	ctx := context.Background()

	ids, err := philipsListDevices(ctx, server.Client(), RESTConfig{BaseURL: server.URL, APIKey: "k", BridgeID: "b1"})
	if err != nil {
		t.Fatalf("philipsListDevices() error = %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("philips ids = %v, want 2 composite ids", ids)
	}
	for _, id := range ids {
		if id != "b1_1" && id != "b1_3" {
			t.Errorf("unexpected philips id %q", id)
		}
	}

	ids, err = panasonicListDevices(ctx, server.Client(), RESTConfig{BaseURL: server.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("panasonicListDevices() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "ac1" || ids[1] != "ac2" {
		t.Errorf("panasonic ids = %v", ids)
	}

	ids, err = hassListDevices(ctx, server.Client(), RESTConfig{BaseURL: server.URL, Token: "t"})
	if err != nil {
		t.Fatalf("hassListDevices() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "light.kitchen" {
		t.Errorf("hass ids = %v", ids)
	}

	ids, err = mideaListDevices(ctx, server.Client(), RESTConfig{BaseURL: server.URL, AppKey: "a"})
	if err != nil {
		t.Fatalf("mideaListDevices() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != "ac-7" {
		t.Errorf("midea ids = %v", ids)
	}
}

func TestRESTMissingConfig(t *testing.T) {
	ctx := context.Background()

	if _, err := philipsDeviceState(ctx, nil, RESTConfig{}, "x"); !errors.Is(err, ErrMissingConfig) {
		t.Errorf("philips error = %v, want ErrMissingConfig", err)
	}
	if _, err := panasonicDeviceState(ctx, nil, RESTConfig{BaseURL: "http://x"}, "x"); !errors.Is(err, ErrMissingConfig) {
		t.Errorf("panasonic error = %v, want ErrMissingConfig", err)
	}
	if err := hassSendCommand(ctx, nil, RESTConfig{Token: "t"}, "x", nil); !errors.Is(err, ErrMissingConfig) {
		t.Errorf("hass error = %v, want ErrMissingConfig", err)
	}
	if _, err := mideaDeviceState(ctx, nil, RESTConfig{BaseURL: "http://x"}, "x"); !errors.Is(err, ErrMissingConfig) {
		t.Errorf("midea error = %v, want ErrMissingConfig", err)
	}
}

func TestRESTVendorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := RESTConfig{BaseURL: server.URL, APIKey: "k"}
	_, err := philipsDeviceState(context.Background(), server.Client(), cfg, "b_1")
	if !errors.Is(err, ErrVendorAPI) {
		t.Errorf("error = %v, want ErrVendorAPI", err)
	}
}

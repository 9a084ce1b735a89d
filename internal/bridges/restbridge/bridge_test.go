package restbridge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/casahub/casahub-core/internal/adapters"
	"github.com/casahub/casahub-core/internal/bus"
	"github.com/casahub/casahub-core/internal/device"
)

// mockBus is an in-memory BusClient recording publishes and
// subscriptions, with message simulation for command tests.
type mockBus struct {
	mu        sync.Mutex
	connected bool
	published []bus.Message
	subs      map[string]int
	handlers  map[string]bus.MessageHandler
}

func newMockBus() *mockBus {
	return &mockBus{
		subs:     make(map[string]int),
		handlers: make(map[string]bus.MessageHandler),
	}
}

func (m *mockBus) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

func (m *mockBus) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockBus) Publish(msg bus.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, msg)
	return nil
}

func (m *mockBus) Subscribe(_ byte, topics ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range topics {
		m.subs[t]++
	}
	return nil
}

func (m *mockBus) Unsubscribe(topics ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range topics {
		delete(m.subs, t)
	}
	return nil
}

func (m *mockBus) OnMessage(pattern string, handler bus.MessageHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[pattern] = handler
}

func (m *mockBus) OffMessage(pattern string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, pattern)
}

// SimulateMessage dispatches an inbound message to matching handlers.
func (m *mockBus) SimulateMessage(msg bus.Message) {
	m.mu.Lock()
	var matched []bus.MessageHandler
	for pattern, h := range m.handlers {
		if bus.Match(pattern, msg.Topic) {
			matched = append(matched, h)
		}
	}
	m.mu.Unlock()
	for _, h := range matched {
		h(msg)
	}
}

func (m *mockBus) publishedTo(topic string) []bus.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []bus.Message
	for _, msg := range m.published {
		if msg.Topic == topic {
			out = append(out, msg)
		}
	}
	return out
}

func (m *mockBus) subCount(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subs[topic]
}

// panasonicServer fakes the generic cloud API with two units, one of
// which can be made to fail.
type panasonicServer struct {
	mu       sync.Mutex
	failAC2  bool
	controls []map[string]any
}

func (p *panasonicServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		switch r.URL.Path {
		case "/devices":
			json.NewEncoder(w).Encode(map[string]any{
				"devices": []map[string]any{{"id": "ac1"}, {"id": "ac2"}},
			})
		case "/devices/ac1/status":
			json.NewEncoder(w).Encode(map[string]any{"power": "on", "temperature": 22.0})
		case "/devices/ac2/status":
			if p.failAC2 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"power": "off"})
		case "/devices/ac1/control":
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			p.controls = append(p.controls, body)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestBridge(t *testing.T, serverURL string, busc BusClient, store device.Store) *Bridge {
	t.Helper()
	cfg := Config{
		HouseholdID:     "hh-1",
		REST:            adapters.RESTConfig{BaseURL: serverURL, APIKey: "k"},
		PollInterval:    time.Hour, // ticks driven manually in tests
		CommandWildcard: "panasonic/+/command",
	}
	return New(cfg, adapters.Get(device.VendorPanasonic), busc, store, nil, nil)
}

func TestStartPollsAndPublishesRetained(t *testing.T) {
	vendor := &panasonicServer{}
	server := httptest.NewServer(vendor.handler())
	defer server.Close()

	mock := newMockBus()
	bridge := newTestBridge(t, server.URL, mock, nil)

	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer bridge.Stop()

	msgs := mock.publishedTo("panasonic/ac1/status")
	if len(msgs) != 1 {
		t.Fatalf("published %d messages to ac1 status, want 1", len(msgs))
	}
	if !msgs[0].Retain {
		t.Error("status publish not retained")
	}

	var state map[string]any
	if err := json.Unmarshal(msgs[0].Payload, &state); err != nil {
		t.Fatalf("status payload is not JSON: %v", err)
	}
	if state["power"] != true {
		t.Errorf("payload power = %v, want normalised true", state["power"])
	}

	if len(bridge.Devices()) != 2 {
		t.Errorf("device table has %d devices, want 2", len(bridge.Devices()))
	}
}

func TestStartIsIdempotent(t *testing.T) {
	vendor := &panasonicServer{}
	server := httptest.NewServer(vendor.handler())
	defer server.Close()

	mock := newMockBus()
	bridge := newTestBridge(t, server.URL, mock, nil)

	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := bridge.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	defer bridge.Stop()

	if got := mock.subCount("panasonic/+/command"); got != 1 {
		t.Errorf("command subscriptions = %d, want 1 (no duplicates)", got)
	}
	if got := len(mock.publishedTo("panasonic/ac1/status")); got != 1 {
		t.Errorf("ac1 status publishes = %d, want 1 (no duplicate poll)", got)
	}
}

func TestPerDeviceFailureIsolation(t *testing.T) {
	vendor := &panasonicServer{failAC2: true}
	server := httptest.NewServer(vendor.handler())
	defer server.Close()

	mock := newMockBus()
	bridge := newTestBridge(t, server.URL, mock, nil)

	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer bridge.Stop()

	// ac2 failing must not stop ac1 from being published.
	if got := len(mock.publishedTo("panasonic/ac1/status")); got != 1 {
		t.Errorf("ac1 publishes = %d, want 1 despite ac2 failure", got)
	}
	if got := len(mock.publishedTo("panasonic/ac2/status")); got != 0 {
		t.Errorf("ac2 publishes = %d, want 0", got)
	}
}

func TestCommandForwardedToVendor(t *testing.T) {
	vendor := &panasonicServer{}
	server := httptest.NewServer(vendor.handler())
	defer server.Close()

	mock := newMockBus()
	bridge := newTestBridge(t, server.URL, mock, nil)

	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer bridge.Stop()

	cmd := adapters.Get(device.VendorPanasonic).NewCommand(adapters.ActionSetTemperature, 21)
	mock.SimulateMessage(bus.NewMessage("panasonic/ac1/command", mustJSON(t, cmd)))

	vendor.mu.Lock()
	controls := len(vendor.controls)
	var sent map[string]any
	if controls > 0 {
		sent = vendor.controls[0]
	}
	vendor.mu.Unlock()

	if controls != 1 {
		t.Fatalf("vendor received %d control calls, want 1", controls)
	}
	if sent["temperature"] != float64(21) {
		t.Errorf("control body = %v, want temperature 21", sent)
	}

	// The successful command schedules a re-poll shortly after.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(mock.publishedTo("panasonic/ac1/status")) >= 2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("no re-poll observed after successful command")
}

func TestMalformedCommandIgnored(t *testing.T) {
	vendor := &panasonicServer{}
	server := httptest.NewServer(vendor.handler())
	defer server.Close()

	mock := newMockBus()
	bridge := newTestBridge(t, server.URL, mock, nil)

	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer bridge.Stop()

	mock.SimulateMessage(bus.NewMessage("panasonic/ac1/command", []byte("{broken")))
	mock.SimulateMessage(bus.NewMessage("panasonic/nope/garbage", []byte("{}")))

	vendor.mu.Lock()
	defer vendor.mu.Unlock()
	if len(vendor.controls) != 0 {
		t.Errorf("vendor received %d control calls for malformed input, want 0", len(vendor.controls))
	}
}

func TestStopUnsubscribesButKeepsConnection(t *testing.T) {
	vendor := &panasonicServer{}
	server := httptest.NewServer(vendor.handler())
	defer server.Close()

	mock := newMockBus()
	bridge := newTestBridge(t, server.URL, mock, nil)

	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	bridge.Stop()

	if got := mock.subCount("panasonic/+/command"); got != 0 {
		t.Errorf("command subscriptions after Stop() = %d, want 0", got)
	}
	if !mock.IsConnected() {
		t.Error("Stop() disconnected the bus client; the pool owns the connection")
	}

	// Stopping twice is a no-op.
	bridge.Stop()
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshalling %v: %v", v, err)
	}
	return data
}

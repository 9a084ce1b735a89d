package knx

import (
	"context"
	"sync"
	"testing"

	"github.com/casahub/casahub-core/internal/bus"
	"github.com/casahub/casahub-core/internal/device"
)

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

type recordStore struct {
	mu      sync.Mutex
	upserts []device.Device
}

func (s *recordStore) Upsert(_ context.Context, _ string, d device.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, d)
	return nil
}

func (s *recordStore) Get(context.Context, string, device.Vendor, string) (*device.Device, error) {
	return nil, device.ErrNotFound
}

func (s *recordStore) List(context.Context, string) ([]device.Device, error) { return nil, nil }

func (s *recordStore) Delete(context.Context, string, device.Vendor, string) error { return nil }

func findDevice(devices []device.Device, id string) (device.Device, bool) {
	for _, d := range devices {
		if d.ID == id {
			return d, true
		}
	}
	return device.Device{}, false
}

func TestStartSubscribesAndRequestsDump(t *testing.T) {
	mock := newMockBus()
	bridge := New("hh-1", mock, nil, nil, nil)

	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer bridge.Stop()

	mock.mu.Lock()
	defer mock.mu.Unlock()
	if mock.subs[statusWildcard] != 1 || mock.subs[devicesTopic] != 1 {
		t.Errorf("subscriptions = %v", mock.subs)
	}
	if len(mock.published) != 1 || mock.published[0].Topic != dumpRequestTopic {
		t.Errorf("published = %v, want one dump request", mock.published)
	}
}

func TestAddressDumpMerged(t *testing.T) {
	mock := newMockBus()
	store := &recordStore{}
	bridge := New("hh-1", mock, store, nil, nil)

	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer bridge.Stop()

	dump := []byte(`[
		{"address":"1/2/3","name":"Hallway Light"},
		{"address":"1/2/4","name":"Hallway Dimmer"}
	]`)
	mock.SimulateMessage(bus.NewMessage(devicesTopic, dump))

	devices := bridge.Devices()
	if len(devices) != 2 {
		t.Fatalf("table has %d devices, want 2", len(devices))
	}
	d, ok := findDevice(devices, "1/2/3")
	if !ok {
		t.Fatal("1/2/3 missing from table")
	}
	if d.Name != "Hallway Light" {
		t.Errorf("Name = %q, want Hallway Light", d.Name)
	}
	if d.Topic != "knx/1/2/3" {
		t.Errorf("Topic = %q, want knx/1/2/3", d.Topic)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.upserts) != 2 {
		t.Errorf("store received %d upserts, want 2", len(store.upserts))
	}
}

func TestTelegramRegistersUnknownAddress(t *testing.T) {
	mock := newMockBus()
	bridge := New("hh-1", mock, nil, nil, nil)

	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer bridge.Stop()

	mock.SimulateMessage(bus.NewMessage("knx/4/0/1", []byte(`{"value":true,"dpt":"1.001"}`)))

	d, ok := findDevice(bridge.Devices(), "4/0/1")
	if !ok {
		t.Fatal("telegram-only address was not registered")
	}
	if d.Name != "4/0/1" {
		t.Errorf("Name = %q, want the address itself", d.Name)
	}
	if d.Status != device.StatusOnline {
		t.Errorf("Status = %q, want online", d.Status)
	}
}

func TestDumpNamePreservedOverTelegram(t *testing.T) {
	mock := newMockBus()
	bridge := New("hh-1", mock, nil, nil, nil)

	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer bridge.Stop()

	mock.SimulateMessage(bus.NewMessage(devicesTopic, []byte(`[{"address":"1/2/3","name":"Hallway Light"}]`)))
	mock.SimulateMessage(bus.NewMessage("knx/1/2/3", []byte(`{"value":false,"dpt":"1.001"}`)))

	d, ok := findDevice(bridge.Devices(), "1/2/3")
	if !ok {
		t.Fatal("1/2/3 missing from table")
	}
	if d.Name != "Hallway Light" {
		t.Errorf("Name = %q, want dump name preserved after telegram", d.Name)
	}
}

func TestDumpRequestEchoNotRegistered(t *testing.T) {
	mock := newMockBus()
	store := &recordStore{}
	bridge := New("hh-1", mock, store, nil, nil)

	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer bridge.Stop()

	// The dump request topic has the same four-segment shape as a group
	// address, so the broker echoes it back through the wildcard
	// subscription. It must not turn into a device.
	mock.SimulateMessage(bus.NewMessage(dumpRequestTopic, []byte(`{}`)))

	if got := len(bridge.Devices()); got != 0 {
		t.Errorf("table has %d devices after dump-request echo, want 0", got)
	}
	store.mu.Lock()
	upserts := len(store.upserts)
	store.mu.Unlock()
	if upserts != 0 {
		t.Errorf("store received %d upserts after dump-request echo, want 0", upserts)
	}
}

func TestMalformedTelegramIgnored(t *testing.T) {
	mock := newMockBus()
	bridge := New("hh-1", mock, nil, nil, nil)

	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer bridge.Stop()

	mock.SimulateMessage(bus.NewMessage("knx/1/2/3", []byte(`garbage`)))
	if got := len(bridge.Devices()); got != 0 {
		t.Errorf("table has %d devices after malformed telegram, want 0", got)
	}
}

func TestStopUnsubscribes(t *testing.T) {
	mock := newMockBus()
	bridge := New("hh-1", mock, nil, nil, nil)

	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	bridge.Stop()

	mock.mu.Lock()
	subs := len(mock.subs)
	mock.mu.Unlock()
	if subs != 0 {
		t.Errorf("%d subscriptions remain after Stop()", subs)
	}
	if !mock.IsConnected() {
		t.Error("Stop() disconnected the bus client; the pool owns the connection")
	}
}

package zigbee

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/casahub/casahub-core/internal/adapters"
	"github.com/casahub/casahub-core/internal/bus"
	"github.com/casahub/casahub-core/internal/device"
	"github.com/casahub/casahub-core/internal/infrastructure/history"
	"github.com/casahub/casahub-core/internal/infrastructure/logging"
)

// Gateway topics.
const (
	// statusWildcard matches per-device state topics
	// (zigbee2mqtt/{friendly-name}).
	statusWildcard = "zigbee2mqtt/+"

	// devicesTopic carries the gateway's retained device-list dump.
	devicesTopic = "zigbee2mqtt/bridge/devices"

	// eventTopic carries gateway events, including device announces.
	eventTopic = "zigbee2mqtt/bridge/event"

	// dumpRequestTopic asks the gateway for a fresh device list.
	dumpRequestTopic = "zigbee2mqtt/bridge/request/devices"

	subscribeQoS = 1

	// storeTimeout bounds one registration upsert.
	storeTimeout = 5 * time.Second
)

// Bridge discovers and registers Zigbee devices reachable through a
// zigbee2mqtt gateway. Unlike the cloud bridges it never polls and
// never republishes: the devices' state is already on the bus. Its job
// is the device table — merging the gateway's device dump, announce
// events and bare status messages into registrations.
//
// Devices first seen via a status message with no prior announce are
// still registered, named after their topic id.
type Bridge struct {
	householdID string
	busc        BusClient
	adapter     *adapters.Adapter
	store       device.Store     // optional
	rec         history.Recorder // optional
	table       *device.Table
	logger      *logging.Logger

	started bool
	mu      sync.Mutex
}

// BusClient is the subset of the bus client the discovery bridges use.
type BusClient interface {
	Connect() error
	IsConnected() bool
	Publish(msg bus.Message) error
	Subscribe(qos byte, topics ...string) error
	Unsubscribe(topics ...string) error
	OnMessage(pattern string, handler bus.MessageHandler)
	OffMessage(pattern string)
}

// New creates the zigbee2mqtt discovery bridge.
func New(householdID string, busc BusClient, store device.Store, rec history.Recorder, logger *logging.Logger) *Bridge {
	if logger == nil {
		logger = logging.Default()
	}
	return &Bridge{
		householdID: householdID,
		busc:        busc,
		adapter:     adapters.Get(device.VendorZigbee),
		store:       store,
		rec:         rec,
		table:       device.NewTable(),
		logger:      logger.With("component", "bridge", "vendor", "zigbee"),
	}
}

// Start subscribes to the gateway's device and status topics and
// requests a fresh device dump. Idempotent.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return nil
	}

	if !b.busc.IsConnected() {
		if err := b.busc.Connect(); err != nil {
			return err
		}
	}

	b.busc.OnMessage(statusWildcard, b.handleStatus)
	b.busc.OnMessage(devicesTopic, b.handleDeviceDump)
	b.busc.OnMessage(eventTopic, b.handleEvent)

	if err := b.busc.Subscribe(subscribeQoS, statusWildcard, devicesTopic, eventTopic); err != nil {
		b.offAll()
		return err
	}

	// The dump is retained by the gateway, but request a fresh one in
	// case retention is disabled.
	if err := b.busc.Publish(bus.NewMessage(dumpRequestTopic, []byte("{}"))); err != nil {
		b.logger.Warn("requesting device dump", "error", err)
	}

	b.started = true
	b.logger.Info("bridge started")
	return nil
}

// Stop unsubscribes from the gateway topics. The bus connection stays
// open; the pool owns it.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return
	}

	if err := b.busc.Unsubscribe(statusWildcard, devicesTopic, eventTopic); err != nil {
		b.logger.Warn("unsubscribing gateway topics", "error", err)
	}
	b.offAll()
	b.started = false
	b.logger.Info("bridge stopped")
}

func (b *Bridge) offAll() {
	b.busc.OffMessage(statusWildcard)
	b.busc.OffMessage(devicesTopic)
	b.busc.OffMessage(eventTopic)
}

// Devices returns a snapshot of the discovered device table.
func (b *Bridge) Devices() []device.Device {
	return b.table.List()
}

// handleStatus merges one per-device state message. Unknown devices are
// registered on the spot, named after their topic id.
func (b *Bridge) handleStatus(msg bus.Message) {
	ref := b.adapter.ParseDeviceID(msg.Topic)
	if ref == nil {
		return // gateway topic, not a device
	}

	state := b.adapter.ParseState(msg)
	if state == nil {
		b.logger.Warn("malformed status payload", "topic", msg.Topic)
		return
	}

	b.register(ref.ID, "")
	if b.rec != nil {
		b.rec.RecordState(device.VendorZigbee, ref.ID, state)
	}
}

// handleDeviceDump merges the gateway's device-list dump: a JSON array
// of device documents keyed by friendly name.
func (b *Bridge) handleDeviceDump(msg bus.Message) {
	var list []struct {
		FriendlyName string `json:"friendly_name"`
		IEEEAddress  string `json:"ieee_address"`
		Type         string `json:"type"`
	}
	if err := json.Unmarshal(msg.Payload, &list); err != nil {
		b.logger.Warn("malformed device dump", "error", err)
		return
	}

	for _, entry := range list {
		if entry.FriendlyName == "" || entry.Type == "Coordinator" {
			continue
		}
		b.register(entry.FriendlyName, entry.FriendlyName)
	}
	b.logger.Info("device dump merged", "devices", len(list))
}

// handleEvent merges device_announce events.
func (b *Bridge) handleEvent(msg bus.Message) {
	var event struct {
		Type string `json:"type"`
		Data struct {
			FriendlyName string `json:"friendly_name"`
		} `json:"data"`
	}
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return
	}
	if event.Type != "device_announce" || event.Data.FriendlyName == "" {
		return
	}
	b.register(event.Data.FriendlyName, event.Data.FriendlyName)
}

// register upserts a device into the table and the registration store.
func (b *Bridge) register(id, name string) {
	// A status-only device with no announce still gets a usable name.
	if name == "" {
		if _, known := b.table.Get(id); !known {
			name = id
		}
	}

	stored, created := b.table.Upsert(device.Device{
		ID:     id,
		Name:   name,
		Vendor: device.VendorZigbee,
		Topic:  b.adapter.StatusTopic(id),
	})
	if created {
		b.logger.Info("device discovered", "device_id", id)
	}

	if b.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := b.store.Upsert(ctx, b.householdID, stored); err != nil {
			b.logger.Warn("registering device", "device_id", id, "error", err)
		}
	}
}

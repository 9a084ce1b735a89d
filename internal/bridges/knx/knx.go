package knx

import (
	"context"
	"encoding/json"
	"strings"
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
	// statusWildcard matches group-address state topics (knx/a/b/c).
	statusWildcard = "knx/+/+/+"

	// devicesTopic carries the gateway's group-address dump.
	devicesTopic = "knx/bridge/devices"

	// dumpRequestTopic asks the knx2mqtt gateway for its configured
	// group addresses.
	dumpRequestTopic = "knx/bridge/devices/get"

	subscribeQoS = 1

	// storeTimeout bounds one registration upsert.
	storeTimeout = 5 * time.Second
)

// BusClient is the subset of the bus client the bridge uses.
type BusClient interface {
	Connect() error
	IsConnected() bool
	Publish(msg bus.Message) error
	Subscribe(qos byte, topics ...string) error
	Unsubscribe(topics ...string) error
	OnMessage(pattern string, handler bus.MessageHandler)
	OffMessage(pattern string)
}

// Bridge discovers and registers KNX group addresses reachable through
// a knx2mqtt gateway. Group addresses stand in for device ids: the
// telegram on knx/1/2/3 belongs to "device" 1/2/3. Like the zigbee
// bridge it never republishes state — the gateway already puts it on
// the bus — it maintains the device table and registrations.
//
// Group addresses first seen via a telegram with no prior dump entry
// are still registered, named after the address itself.
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

// New creates the knx2mqtt discovery bridge.
func New(householdID string, busc BusClient, store device.Store, rec history.Recorder, logger *logging.Logger) *Bridge {
	if logger == nil {
		logger = logging.Default()
	}
	return &Bridge{
		householdID: householdID,
		busc:        busc,
		adapter:     adapters.Get(device.VendorKNX),
		store:       store,
		rec:         rec,
		table:       device.NewTable(),
		logger:      logger.With("component", "bridge", "vendor", "knx"),
	}
}

// Start subscribes to the group-address wildcard and the gateway's dump
// topic, then requests a dump. Idempotent.
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

	b.busc.OnMessage(statusWildcard, b.handleTelegram)
	b.busc.OnMessage(devicesTopic, b.handleDeviceDump)

	if err := b.busc.Subscribe(subscribeQoS, statusWildcard, devicesTopic); err != nil {
		b.busc.OffMessage(statusWildcard)
		b.busc.OffMessage(devicesTopic)
		return err
	}

	if err := b.busc.Publish(bus.NewMessage(dumpRequestTopic, []byte("{}"))); err != nil {
		b.logger.Warn("requesting address dump", "error", err)
	}

	b.started = true
	b.logger.Info("bridge started")
	return nil
}

// Stop unsubscribes from the gateway topics; the pool owns the bus
// connection.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return
	}

	if err := b.busc.Unsubscribe(statusWildcard, devicesTopic); err != nil {
		b.logger.Warn("unsubscribing gateway topics", "error", err)
	}
	b.busc.OffMessage(statusWildcard)
	b.busc.OffMessage(devicesTopic)
	b.started = false
	b.logger.Info("bridge stopped")
}

// Devices returns a snapshot of the discovered device table.
func (b *Bridge) Devices() []device.Device {
	return b.table.List()
}

// handleTelegram merges one group-address state message.
func (b *Bridge) handleTelegram(msg bus.Message) {
	ref := b.adapter.ParseDeviceID(msg.Topic)
	if ref == nil {
		return
	}

	// The gateway's own knx/bridge/... namespace shares the wildcard's
	// four-segment shape; our dump request echoes back through it. It
	// never carries group addresses.
	if strings.HasPrefix(ref.ID, "bridge/") {
		return
	}

	state := b.adapter.ParseState(msg)
	if state == nil {
		b.logger.Warn("malformed telegram payload", "topic", msg.Topic)
		return
	}

	b.register(ref.ID, "")
	if b.rec != nil {
		b.rec.RecordState(device.VendorKNX, ref.ID, state)
	}
}

// handleDeviceDump merges the gateway's group-address dump: a JSON
// array of {"address": "1/2/3", "name": "..."} entries.
func (b *Bridge) handleDeviceDump(msg bus.Message) {
	var list []struct {
		Address string `json:"address"`
		Name    string `json:"name"`
	}
	if err := json.Unmarshal(msg.Payload, &list); err != nil {
		b.logger.Warn("malformed address dump", "error", err)
		return
	}

	for _, entry := range list {
		if entry.Address == "" {
			continue
		}
		b.register(entry.Address, entry.Name)
	}
	b.logger.Info("address dump merged", "addresses", len(list))
}

// register upserts a group address into the table and the store.
func (b *Bridge) register(id, name string) {
	// A telegram with no prior dump entry still gets a usable name.
	if name == "" {
		if _, known := b.table.Get(id); !known {
			name = id
		}
	}

	stored, created := b.table.Upsert(device.Device{
		ID:     id,
		Name:   name,
		Vendor: device.VendorKNX,
		Topic:  b.adapter.StatusTopic(id),
	})
	if created {
		b.logger.Info("group address discovered", "address", id)
	}

	if b.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := b.store.Upsert(ctx, b.householdID, stored); err != nil {
			b.logger.Warn("registering group address", "address", id, "error", err)
		}
	}
}

package restbridge

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/casahub/casahub-core/internal/adapters"
	"github.com/casahub/casahub-core/internal/bridges/poller"
	"github.com/casahub/casahub-core/internal/bus"
	"github.com/casahub/casahub-core/internal/device"
	"github.com/casahub/casahub-core/internal/infrastructure/history"
	"github.com/casahub/casahub-core/internal/infrastructure/logging"
)

const (
	// commandTimeout bounds the vendor REST call for one command.
	commandTimeout = 10 * time.Second

	// repollDelay is how long after a successful command the bridge
	// waits before refreshing state, so the bus reflects the change
	// quickly instead of waiting out a full poll interval.
	repollDelay = time.Second

	// statusQoS is the QoS for republished device state.
	statusQoS = 1
)

// BusClient is the subset of the bus client a bridge uses. Satisfied by
// *bus.Client; an interface so tests can substitute a mock.
type BusClient interface {
	Connect() error
	IsConnected() bool
	Publish(msg bus.Message) error
	Subscribe(qos byte, topics ...string) error
	Unsubscribe(topics ...string) error
	OnMessage(pattern string, handler bus.MessageHandler)
	OffMessage(pattern string)
}

// Config carries the vendor-independent bridge settings.
type Config struct {
	// HouseholdID scopes device registrations.
	HouseholdID string

	// REST is the vendor API connection.
	REST adapters.RESTConfig

	// PollInterval between full poll cycles.
	PollInterval time.Duration

	// CommandWildcard is the bus pattern commands arrive on, e.g.
	// "panasonic/+/command" or "philips/+/lights/+/command".
	CommandWildcard string
}

// Bridge polls one cloud-only vendor and bridges it onto the local bus:
// device state is republished retained under the vendor's status
// topics, and inbound bus commands are forwarded to the vendor's REST
// control endpoint.
//
// All cloud bridges (Philips, Panasonic, Home Assistant, Midea) share
// this engine; the vendor packages supply the adapter and config
// mapping.
type Bridge struct {
	cfg     Config
	adapter *adapters.Adapter
	busc    BusClient
	http    *http.Client
	store   device.Store     // optional
	rec     history.Recorder // optional
	table   *device.Table
	loop    *poller.Loop
	logger  *logging.Logger

	started bool
	mu      sync.Mutex
}

// New creates a bridge for one vendor. store and rec may be nil; the
// bridge then keeps state only in its in-memory table.
func New(cfg Config, adapter *adapters.Adapter, busc BusClient, store device.Store, rec history.Recorder, logger *logging.Logger) *Bridge {
	if logger == nil {
		logger = logging.Default()
	}
	b := &Bridge{
		cfg:     cfg,
		adapter: adapter,
		busc:    busc,
		http:    &http.Client{Timeout: commandTimeout},
		store:   store,
		rec:     rec,
		table:   device.NewTable(),
		logger:  logger.With("component", "bridge", "vendor", string(adapter.Vendor)),
	}
	b.loop = poller.New(cfg.PollInterval, b.poll, b.logger)
	return b
}

// Start connects the bus client if needed, subscribes to the vendor's
// command wildcard, runs an immediate poll and begins the interval
// timer. Calling Start on a running bridge is a no-op.
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

	b.busc.OnMessage(b.cfg.CommandWildcard, b.handleCommand)
	if err := b.busc.Subscribe(statusQoS, b.cfg.CommandWildcard); err != nil {
		b.busc.OffMessage(b.cfg.CommandWildcard)
		return err
	}

	b.loop.Start()
	b.started = true
	b.logger.Info("bridge started",
		"command_wildcard", b.cfg.CommandWildcard,
		"poll_interval", b.cfg.PollInterval.String())
	return nil
}

// Stop halts polling and unsubscribes from the command wildcard. The
// bus connection itself belongs to the pool and stays open. In-flight
// vendor calls are signalled through their context but may complete
// after Stop returns.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return
	}

	b.loop.Stop()
	if err := b.busc.Unsubscribe(b.cfg.CommandWildcard); err != nil {
		b.logger.Warn("unsubscribing command wildcard", "error", err)
	}
	b.busc.OffMessage(b.cfg.CommandWildcard)
	b.started = false
	b.logger.Info("bridge stopped")
}

// State returns the poll loop's lifecycle state.
func (b *Bridge) State() poller.State {
	return b.loop.State()
}

// Devices returns a snapshot of the bridge's device table.
func (b *Bridge) Devices() []device.Device {
	return b.table.List()
}

// poll runs one full cycle: list devices, fetch and republish each
// one's state, then flip devices that dropped out of the list to
// offline. A failure for one device is logged and does not abort the
// rest of the cycle.
func (b *Bridge) poll(ctx context.Context) {
	ids, err := b.adapter.ListDevices(ctx, b.http, b.cfg.REST)
	if err != nil {
		b.logger.Error("listing devices", "error", err)
		return
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if err := b.pollDevice(ctx, id); err != nil {
			b.logger.Warn("polling device", "device_id", id, "error", err)
			continue
		}
		seen[id] = true
	}

	for _, id := range b.table.MarkMissingOffline(seen) {
		b.logger.Info("device went offline", "device_id", id)
		b.persistOffline(ctx, id)
	}
}

// pollDevice fetches one device's state and republishes it retained.
func (b *Bridge) pollDevice(ctx context.Context, id string) error {
	state, err := b.adapter.DeviceState(ctx, b.http, b.cfg.REST, id)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}

	msg := bus.NewMessage(b.adapter.StatusTopic(id), payload).Retained()
	if err := b.busc.Publish(msg); err != nil {
		b.logger.Warn("publishing state", "device_id", id, "error", err)
	}

	name, _ := state["name"].(string)
	stored, created := b.table.Upsert(device.Device{
		ID:     id,
		Name:   name,
		Vendor: b.adapter.Vendor,
		Topic:  b.adapter.StatusTopic(id),
	})
	if created {
		b.logger.Info("device discovered", "device_id", id, "name", stored.Name)
	}

	if b.store != nil {
		if err := b.store.Upsert(ctx, b.cfg.HouseholdID, stored); err != nil {
			b.logger.Warn("registering device", "device_id", id, "error", err)
		}
	}
	if b.rec != nil {
		b.rec.RecordState(b.adapter.Vendor, id, state)
	}
	return nil
}

// persistOffline pushes a table device's offline status to the store.
func (b *Bridge) persistOffline(ctx context.Context, id string) {
	if b.store == nil {
		return
	}
	d, ok := b.table.Get(id)
	if !ok {
		return
	}
	if err := b.store.Upsert(ctx, b.cfg.HouseholdID, d); err != nil {
		b.logger.Warn("registering offline device", "device_id", id, "error", err)
	}
}

// handleCommand forwards one inbound bus command to the vendor's REST
// control endpoint and, on success, schedules a short-delay re-poll.
func (b *Bridge) handleCommand(msg bus.Message) {
	ref := b.adapter.ParseDeviceID(msg.Topic)
	if ref == nil {
		b.logger.Warn("command on unparsable topic", "topic", msg.Topic)
		return
	}

	var cmd adapters.Command
	if err := json.Unmarshal(msg.Payload, &cmd); err != nil {
		b.logger.Warn("malformed command payload", "topic", msg.Topic, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := b.adapter.SendCommand(ctx, b.http, b.cfg.REST, ref.ID, cmd); err != nil {
		b.logger.Error("forwarding command", "device_id", ref.ID, "error", err)
		return
	}

	b.logger.Debug("command forwarded", "device_id", ref.ID)
	b.loop.Kick(repollDelay)
}

package bus

import (
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/casahub/casahub-core/internal/infrastructure/config"
)

// ConnState is the connection state of a Client.
//
// The lifecycle is disconnected → connecting → connected → disconnected,
// with a transient reconnecting state driven by the transport's
// auto-reconnect.
type ConnState int

// Connection states.
const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

// String returns the lowercase state name.
func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// MessageHandler is the callback signature for received messages.
//
// Handlers are invoked in separate goroutines by the transport. They
// should not block for extended periods.
type MessageHandler func(msg Message)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Client manages one physical broker connection: connect, subscribe,
// publish, and message dispatch through pattern-matched handlers.
//
// Inbound messages are routed to every handler whose registered pattern
// matches the topic (see Match), plus any handler registered under the
// reserved "*" catch-all pattern.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Subscriptions are automatically restored on reconnection.
type Client struct {
	client  pahomqtt.Client
	options *pahomqtt.ClientOptions
	cfg     config.BusConfig

	// state tracks the connection lifecycle.
	state   ConnState
	stateMu sync.RWMutex

	// subscriptions tracks topic → QoS for re-subscription on reconnect.
	subscriptions map[string]byte
	subMu         sync.RWMutex

	// handlers maps registered patterns to message handlers.
	// Registration is expected at startup, not mid-dispatch.
	handlers  map[string]MessageHandler
	handlerMu sync.RWMutex

	// stats are per-connection counters, mutated only by this client.
	stats   Stats
	statsMu sync.Mutex

	// Callbacks for connection events (optional).
	onConnect    func()
	onDisconnect func(err error)
	onError      func(err error)
	callbackMu   sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a client for the shared (household-agnostic) connection.
// Call Connect to establish the connection.
func New(cfg config.BusConfig) *Client {
	return newClient(cfg, "", cfg.Broker.ClientID, cfg.Auth.Username, cfg.Auth.Password)
}

// NewTenant creates a client bound to a single household. It uses a
// distinct client identity and broker credentials so two households'
// subscriptions and traffic cannot be seen by each other.
func NewTenant(cfg config.BusConfig, householdID, clientID, username, password string) *Client {
	return newClient(cfg, householdID, clientID, username, password)
}

func newClient(cfg config.BusConfig, householdID, clientID, username, password string) *Client {
	opts := buildClientOptions(cfg, clientID, username, password)

	c := &Client{
		cfg:           cfg,
		options:       opts,
		subscriptions: make(map[string]byte),
		handlers:      make(map[string]MessageHandler),
		stats: Stats{
			HouseholdID: householdID,
			ClientID:    clientID,
		},
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		c.setState(StateReconnecting)
	})
	// Route messages delivered without a per-subscription callback
	// (e.g. during session restoration) through the same dispatcher.
	opts.SetDefaultPublishHandler(func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.route(msg)
	})

	c.client = pahomqtt.NewClient(opts)
	return c
}

// Connect establishes the broker connection. It is idempotent: calling
// it while already connected is a no-op.
func (c *Client) Connect() error {
	if c.IsConnected() {
		return nil
	}
	c.setState(StateConnecting)

	token := c.client.Connect()
	if !token.WaitTimeout(c.connectTimeout()) {
		c.setState(StateDisconnected)
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, c.connectTimeout())
	}
	if err := token.Error(); err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnectHandler runs asynchronously and may not have executed
	// yet; record the state here so IsConnected() is true on return.
	c.setState(StateConnected)
	c.markConnected()
	return nil
}

// Disconnect closes the connection gracefully, publishing the graceful
// offline status first. Disconnecting a disconnected client is a no-op.
func (c *Client) Disconnect() {
	if c.client == nil {
		return
	}

	if c.IsConnected() {
		topic := statusTopic(c.stats.ClientID)
		payload := buildOfflinePayload(c.stats.ClientID)
		token := c.client.Publish(topic, byte(c.cfg.QoS), true, payload)
		token.WaitTimeout(defaultPublishTimeout)
	}

	c.client.Disconnect(defaultDisconnectQuiesce)

	c.setState(StateDisconnected)
	c.markDisconnected()
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// IsConnected reports whether the client is currently connected.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected && c.client.IsConnected()
}

func (c *Client) setState(s ConnState) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

// handleConnect runs on initial connect and on every reconnect.
func (c *Client) handleConnect() {
	c.setState(StateConnected)
	c.markConnected()

	c.restoreSubscriptions()
	c.publishOnlineStatus()

	c.callbackMu.RLock()
	callback := c.onConnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

// handleDisconnect runs when the connection is lost unexpectedly.
func (c *Client) handleDisconnect(err error) {
	c.setState(StateDisconnected)
	c.markDisconnected()

	c.callbackMu.RLock()
	onDisconnect := c.onDisconnect
	onError := c.onError
	c.callbackMu.RUnlock()

	if onDisconnect != nil {
		onDisconnect(err)
	}
	if onError != nil && err != nil {
		onError(err)
	}
}

// restoreSubscriptions re-subscribes to all tracked topics after reconnect.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for topic, qos := range c.subscriptions {
		// Re-subscribe (ignore errors during reconnection)
		c.client.Subscribe(topic, qos, c.pahoRoute)
	}
}

// publishOnlineStatus publishes this client's online status.
func (c *Client) publishOnlineStatus() {
	topic := statusTopic(c.stats.ClientID)
	payload := buildOnlinePayload(c.stats.ClientID)
	c.client.Publish(topic, byte(c.cfg.QoS), true, payload)
}

// OnMessage registers a handler for inbound messages whose topic matches
// pattern. Registering a second handler for the same pattern replaces
// the first. The reserved pattern "*" receives every inbound message.
//
// OnMessage only affects dispatch; the caller must also Subscribe to a
// broker-side topic filter that covers the pattern.
func (c *Client) OnMessage(pattern string, handler MessageHandler) {
	if handler == nil {
		return
	}
	c.handlerMu.Lock()
	c.handlers[pattern] = handler
	c.handlerMu.Unlock()
}

// OffMessage removes the handler registered for pattern.
func (c *Client) OffMessage(pattern string) {
	c.handlerMu.Lock()
	delete(c.handlers, pattern)
	c.handlerMu.Unlock()
}

// pahoRoute adapts the paho callback signature to route.
func (c *Client) pahoRoute(_ pahomqtt.Client, msg pahomqtt.Message) {
	c.route(msg)
}

// route dispatches an inbound message to every matching handler.
func (c *Client) route(msg pahomqtt.Message) {
	c.markReceived()

	m := Message{
		Topic:   msg.Topic(),
		Payload: msg.Payload(),
		QoS:     msg.Qos(),
		Retain:  msg.Retained(),
	}

	c.handlerMu.RLock()
	matched := make([]MessageHandler, 0, 2)
	for pattern, handler := range c.handlers {
		if Match(pattern, m.Topic) {
			matched = append(matched, handler)
		}
	}
	c.handlerMu.RUnlock()

	for _, handler := range matched {
		c.invoke(handler, m)
	}
}

// invoke calls a handler with panic recovery.
func (c *Client) invoke(handler MessageHandler, m Message) {
	defer func() {
		if r := recover(); r != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Error("bus handler panic recovered",
					"topic", m.Topic,
					"panic", r,
				)
			}
		}
	}()

	handler(m)
}

// SetOnConnect sets a callback invoked when the connection is
// established, on initial connect and on every reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.callbackMu.Lock()
	c.onConnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect sets a callback invoked when the connection is lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// SetOnError sets a callback invoked on transport errors.
func (c *Client) SetOnError(callback func(err error)) {
	c.callbackMu.Lock()
	c.onError = callback
	c.callbackMu.Unlock()
}

// SetLogger sets a logger for error and panic logging.
// If not set, errors in handlers are silently ignored.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

func (c *Client) connectTimeout() time.Duration {
	if c.cfg.ConnectTimeout > 0 {
		return time.Duration(c.cfg.ConnectTimeout) * time.Second
	}
	return defaultConnectTimeout
}

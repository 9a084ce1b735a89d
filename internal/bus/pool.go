package bus

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/casahub/casahub-core/internal/infrastructure/config"
)

// Credentials supplies broker credentials for a household connection.
// The surrounding application implements this against its credential
// storage; ConfigCredentials is the config-pattern default.
type Credentials interface {
	// For returns the broker username and password for a household.
	For(householdID string) (username, password string, err error)
}

// ConfigCredentials derives tenant usernames from the configured pattern
// and reuses the shared password. Suitable for brokers whose ACLs are
// keyed on username prefixes.
type ConfigCredentials struct {
	cfg config.BusConfig
}

// NewConfigCredentials creates the config-backed credential source.
func NewConfigCredentials(cfg config.BusConfig) ConfigCredentials {
	return ConfigCredentials{cfg: cfg}
}

// For returns pattern-derived credentials for a household.
func (c ConfigCredentials) For(householdID string) (string, string, error) {
	return fmt.Sprintf(c.cfg.TenantUsernamePattern, householdID), c.cfg.Auth.Password, nil
}

// Pool owns the shared bus connection and the per-household tenant
// connections. It replaces the process-wide client singletons: the
// application's startup creates one pool, passes it into bridges and
// handlers, and closes it on shutdown. Tests construct isolated pools.
//
// Tenant connections are created lazily on first use and must be
// explicitly dropped when a household is deleted.
//
// Thread Safety: all methods are safe for concurrent use.
type Pool struct {
	cfg   config.BusConfig
	creds Credentials

	shared *Client

	tenants  map[string]*Client
	tenantMu sync.Mutex

	closed   bool
	closedMu sync.RWMutex

	logger Logger
}

// NewPool creates a connection pool. The shared client is created
// immediately but not connected; tenant clients are created on demand.
// A nil creds falls back to the config-pattern source.
func NewPool(cfg config.BusConfig, creds Credentials) *Pool {
	if creds == nil {
		creds = NewConfigCredentials(cfg)
	}
	return &Pool{
		cfg:     cfg,
		creds:   creds,
		shared:  New(cfg),
		tenants: make(map[string]*Client),
	}
}

// SetLogger sets the logger propagated to clients created by the pool.
func (p *Pool) SetLogger(logger Logger) {
	p.logger = logger
	p.shared.SetLogger(logger)
}

// Shared returns the household-agnostic client. Bridges for site-wide
// vendors (gateways physically attached to the installation) use this.
func (p *Pool) Shared() *Client {
	return p.shared
}

// Household returns the client for a household, creating and connecting
// it on first use. Two households never share a client, so their
// subscriptions and traffic are isolated at the broker.
func (p *Pool) Household(householdID string) (*Client, error) {
	p.closedMu.RLock()
	closed := p.closed
	p.closedMu.RUnlock()
	if closed {
		return nil, ErrPoolClosed
	}

	p.tenantMu.Lock()
	defer p.tenantMu.Unlock()

	if client, ok := p.tenants[householdID]; ok {
		return client, nil
	}

	username, password, err := p.creds.For(householdID)
	if err != nil {
		return nil, fmt.Errorf("resolving credentials for household %s: %w", householdID, err)
	}

	clientID := fmt.Sprintf("%s-%s-%s", p.cfg.Broker.ClientID, householdID, uuid.NewString()[:8])
	client := NewTenant(p.cfg, householdID, clientID, username, password)
	if p.logger != nil {
		client.SetLogger(p.logger)
	}

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("connecting household %s: %w", householdID, err)
	}

	p.tenants[householdID] = client
	return client, nil
}

// DropHousehold tears down a household's connection, releasing the
// broker session and removing its stats. Called when a household is
// deleted. Dropping an unknown household is a no-op.
func (p *Pool) DropHousehold(householdID string) {
	p.tenantMu.Lock()
	client, ok := p.tenants[householdID]
	delete(p.tenants, householdID)
	p.tenantMu.Unlock()

	if ok {
		client.Disconnect()
	}
}

// StatsAll returns snapshots for the shared connection and every tenant
// connection. The shared connection's snapshot comes first.
func (p *Pool) StatsAll() []Stats {
	p.tenantMu.Lock()
	clients := make([]*Client, 0, len(p.tenants))
	for _, c := range p.tenants {
		clients = append(clients, c)
	}
	p.tenantMu.Unlock()

	out := make([]Stats, 0, len(clients)+1)
	out = append(out, p.shared.Stats())
	for _, c := range clients {
		out = append(out, c.Stats())
	}
	return out
}

// Close disconnects every connection in the pool. The pool cannot be
// reused afterwards.
func (p *Pool) Close() {
	p.closedMu.Lock()
	p.closed = true
	p.closedMu.Unlock()

	p.tenantMu.Lock()
	tenants := p.tenants
	p.tenants = make(map[string]*Client)
	p.tenantMu.Unlock()

	for _, client := range tenants {
		client.Disconnect()
	}
	p.shared.Disconnect()
}

// Package midea bridges cloud-registered Midea appliances onto the
// local bus. Appliances appear under midea/{id}/status with commands on
// midea/+/command; the legacy protocol-5.0 gateway exposes one fixed
// endpoint with an "action" body field and a query-embedded app key.
//
// LAN-flashed Midea units speak MQTT directly and bypass this bridge —
// the adapter handles both.
package midea

import (
	"time"

	"github.com/casahub/casahub-core/internal/adapters"
	"github.com/casahub/casahub-core/internal/bridges/restbridge"
	"github.com/casahub/casahub-core/internal/device"
	"github.com/casahub/casahub-core/internal/infrastructure/config"
	"github.com/casahub/casahub-core/internal/infrastructure/history"
	"github.com/casahub/casahub-core/internal/infrastructure/logging"
)

// CommandWildcard is the bus pattern Midea commands arrive on.
const CommandWildcard = "midea/+/command"

// New builds the Midea cloud bridge from its config section.
func New(cfg config.MideaConfig, householdID string, busc restbridge.BusClient, store device.Store, rec history.Recorder, logger *logging.Logger) *restbridge.Bridge {
	return restbridge.New(restbridge.Config{
		HouseholdID: householdID,
		REST: adapters.RESTConfig{
			BaseURL: cfg.BaseURL,
			AppKey:  cfg.AppKey,
		},
		PollInterval:    time.Duration(cfg.PollInterval) * time.Second,
		CommandWildcard: CommandWildcard,
	}, adapters.Get(device.VendorMidea), busc, store, rec, logger)
}

// Package philips bridges Philips Hue bridges onto the local bus.
//
// Lights appear under philips/{bridgeId}/lights/{lightId}; commands
// arrive on the light-style wildcard philips/+/lights/+/command. The
// Hue API is polled more aggressively than the generic cloud vendors
// (default 5s) because lights are expected to react visibly fast.
package philips

import (
	"time"

	"github.com/casahub/casahub-core/internal/adapters"
	"github.com/casahub/casahub-core/internal/bridges/restbridge"
	"github.com/casahub/casahub-core/internal/device"
	"github.com/casahub/casahub-core/internal/infrastructure/config"
	"github.com/casahub/casahub-core/internal/infrastructure/history"
	"github.com/casahub/casahub-core/internal/infrastructure/logging"
)

// CommandWildcard is the bus pattern Hue commands arrive on.
const CommandWildcard = "philips/+/lights/+/command"

// New builds the Hue bridge from its config section.
func New(cfg config.PhilipsConfig, householdID string, busc restbridge.BusClient, store device.Store, rec history.Recorder, logger *logging.Logger) *restbridge.Bridge {
	return restbridge.New(restbridge.Config{
		HouseholdID: householdID,
		REST: adapters.RESTConfig{
			BaseURL:  cfg.Host,
			APIKey:   cfg.APIKey,
			BridgeID: cfg.BridgeID,
		},
		PollInterval:    time.Duration(cfg.PollInterval) * time.Second,
		CommandWildcard: CommandWildcard,
	}, adapters.Get(device.VendorPhilips), busc, store, rec, logger)
}

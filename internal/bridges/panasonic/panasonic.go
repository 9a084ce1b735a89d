// Package panasonic bridges Panasonic cloud climate units onto the
// local bus. Units appear under panasonic/{id}/status with commands on
// panasonic/+/command; the cloud API is the generic /devices shape
// authenticated with an API-key header.
package panasonic

import (
	"time"

	"github.com/casahub/casahub-core/internal/adapters"
	"github.com/casahub/casahub-core/internal/bridges/restbridge"
	"github.com/casahub/casahub-core/internal/device"
	"github.com/casahub/casahub-core/internal/infrastructure/config"
	"github.com/casahub/casahub-core/internal/infrastructure/history"
	"github.com/casahub/casahub-core/internal/infrastructure/logging"
)

// CommandWildcard is the bus pattern Panasonic commands arrive on.
const CommandWildcard = "panasonic/+/command"

// New builds the Panasonic bridge from its config section.
func New(cfg config.PanasonicConfig, householdID string, busc restbridge.BusClient, store device.Store, rec history.Recorder, logger *logging.Logger) *restbridge.Bridge {
	return restbridge.New(restbridge.Config{
		HouseholdID: householdID,
		REST: adapters.RESTConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
		},
		PollInterval:    time.Duration(cfg.PollInterval) * time.Second,
		CommandWildcard: CommandWildcard,
	}, adapters.Get(device.VendorPanasonic), busc, store, rec, logger)
}

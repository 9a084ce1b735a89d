// Package hass bridges a Home Assistant installation onto the local
// bus. Entities appear under hass/{entityId}/status with commands on
// hass/+/command; the API is authenticated with a long-lived bearer
// token and commands are translated into service calls.
package hass

import (
	"time"

	"github.com/casahub/casahub-core/internal/adapters"
	"github.com/casahub/casahub-core/internal/bridges/restbridge"
	"github.com/casahub/casahub-core/internal/device"
	"github.com/casahub/casahub-core/internal/infrastructure/config"
	"github.com/casahub/casahub-core/internal/infrastructure/history"
	"github.com/casahub/casahub-core/internal/infrastructure/logging"
)

// CommandWildcard is the bus pattern Home Assistant commands arrive on.
const CommandWildcard = "hass/+/command"

// New builds the Home Assistant bridge from its config section.
func New(cfg config.HassConfig, householdID string, busc restbridge.BusClient, store device.Store, rec history.Recorder, logger *logging.Logger) *restbridge.Bridge {
	return restbridge.New(restbridge.Config{
		HouseholdID: householdID,
		REST: adapters.RESTConfig{
			BaseURL: cfg.BaseURL,
			Token:   cfg.Token,
		},
		PollInterval:    time.Duration(cfg.PollInterval) * time.Second,
		CommandWildcard: CommandWildcard,
	}, adapters.Get(device.VendorHomeAssistant), busc, store, rec, logger)
}

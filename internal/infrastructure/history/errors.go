package history

import "errors"

// History errors.
var (
	// ErrDisabled indicates history is turned off in configuration.
	ErrDisabled = errors.New("history disabled in configuration")

	// ErrConnectionFailed indicates the InfluxDB server could not be
	// reached or is unhealthy.
	ErrConnectionFailed = errors.New("history connection failed")

	// ErrNotConnected indicates an operation was attempted before
	// Connect or after Close.
	ErrNotConnected = errors.New("not connected to history store")
)

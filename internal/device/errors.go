package device

import "errors"

// Domain-specific errors for device operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound is returned when a device does not exist in the store.
	ErrNotFound = errors.New("device: not found")

	// ErrInvalidVendor is returned when a device carries a vendor outside
	// the closed enumeration.
	ErrInvalidVendor = errors.New("device: invalid vendor")

	// ErrEmptyID is returned when a device has no vendor-specific id.
	ErrEmptyID = errors.New("device: id cannot be empty")
)

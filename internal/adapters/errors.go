package adapters

import "errors"

// Adapter errors. REST failures are wrapped around these sentinels so
// call sites can distinguish setup defects from transient vendor faults.
var (
	// ErrMissingConfig indicates a required vendor setting (base URL,
	// API key, token) is absent. This is a setup defect, not a
	// transient condition.
	ErrMissingConfig = errors.New("adapter configuration incomplete")

	// ErrRequestFailed indicates the HTTP request itself failed
	// (network error, timeout, cancelled context).
	ErrRequestFailed = errors.New("vendor request failed")

	// ErrVendorAPI indicates the vendor answered with a non-2xx
	// status code.
	ErrVendorAPI = errors.New("vendor API error")

	// ErrBadResponse indicates the vendor's response body could not
	// be decoded.
	ErrBadResponse = errors.New("malformed vendor response")

	// ErrUnknownVendor indicates no adapter is registered for the
	// requested vendor.
	ErrUnknownVendor = errors.New("unknown vendor")
)

// Package config loads and validates CasaHub Core configuration.
//
// Configuration comes from a YAML file with three layers of precedence:
// environment-specific defaults (production vs development), the file
// itself, and CASAHUB_* environment variables for operationally
// sensitive values (broker address, credentials, API keys).
//
// Validation treats missing vendor credentials for an enabled bridge as
// fatal: a bridge that cannot authenticate is a deployment defect, not a
// condition to retry around.
package config

// Package logging provides structured logging for CasaHub Core.
//
// It wraps log/slog with configuration-driven handler selection (JSON
// for production, text for development) and service-level default
// attributes. Packages that need logging accept a small local Logger
// interface rather than importing this package, keeping infrastructure
// dependencies at the composition root.
package logging

// Package database provides the SQLite connection for CasaHub's device
// registration store.
//
// SQLite fits the deployment model: one process per installation, no
// separate database server, a single file under the data directory.
// WAL mode allows bridge goroutines to read registrations while an
// upsert is in flight.
//
// Package-level schemas (device.Schema) are applied at startup through
// Bootstrap; all DDL is idempotent, so restarts are safe.
package database

package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Store is the device-registration collaborator the bridges call whenever
// they observe new or changed state. Registrations are scoped to the
// owning household.
//
// Bridges only ever upsert: deletion is an operation of the surrounding
// application (a household removing a device), never of a bridge.
type Store interface {
	// Upsert inserts or updates a registration. The (householdID, vendor,
	// id) triple is the uniqueness key.
	Upsert(ctx context.Context, householdID string, d Device) error

	// Get retrieves a registration.
	// Returns ErrNotFound if no such device is registered.
	Get(ctx context.Context, householdID string, vendor Vendor, id string) (*Device, error)

	// List retrieves all registrations for a household.
	List(ctx context.Context, householdID string) ([]Device, error)

	// Delete removes a registration. Called by the application layer when
	// a household removes a device; bridges never call this.
	Delete(ctx context.Context, householdID string, vendor Vendor, id string) error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed registration store.
// The db parameter should be an open SQLite connection.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Schema is the registration table DDL. The database bootstrap applies it
// on startup; it is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS device_registrations (
	household_id TEXT NOT NULL,
	vendor       TEXT NOT NULL,
	device_id    TEXT NOT NULL,
	name         TEXT NOT NULL DEFAULT '',
	topic        TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'offline',
	last_seen    TIMESTAMP,
	metadata     TEXT,
	created_at   TIMESTAMP NOT NULL,
	updated_at   TIMESTAMP NOT NULL,
	PRIMARY KEY (household_id, vendor, device_id)
);
CREATE INDEX IF NOT EXISTS idx_device_registrations_household
	ON device_registrations (household_id);
`

// Upsert inserts or updates a registration.
func (s *SQLiteStore) Upsert(ctx context.Context, householdID string, d Device) error {
	if d.ID == "" {
		return ErrEmptyID
	}
	if !d.Vendor.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidVendor, d.Vendor)
	}

	metadata, err := marshalMetadata(d.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO device_registrations
			(household_id, vendor, device_id, name, topic, status, last_seen, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (household_id, vendor, device_id) DO UPDATE SET
			name = excluded.name,
			topic = excluded.topic,
			status = excluded.status,
			last_seen = excluded.last_seen,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		householdID, string(d.Vendor), d.ID, d.Name, d.Topic, string(d.Status),
		nullableTime(d.LastSeen), metadata, now, now)
	if err != nil {
		return fmt.Errorf("upserting device registration: %w", err)
	}
	return nil
}

// Get retrieves a registration.
func (s *SQLiteStore) Get(ctx context.Context, householdID string, vendor Vendor, id string) (*Device, error) {
	query := `
		SELECT device_id, name, vendor, topic, status, last_seen, metadata
		FROM device_registrations
		WHERE household_id = ? AND vendor = ? AND device_id = ?`

	d, err := scanDevice(s.db.QueryRowContext(ctx, query, householdID, string(vendor), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying device registration: %w", err)
	}
	return d, nil
}

// List retrieves all registrations for a household.
func (s *SQLiteStore) List(ctx context.Context, householdID string) ([]Device, error) {
	query := `
		SELECT device_id, name, vendor, topic, status, last_seen, metadata
		FROM device_registrations
		WHERE household_id = ?
		ORDER BY vendor, device_id`

	rows, err := s.db.QueryContext(ctx, query, householdID)
	if err != nil {
		return nil, fmt.Errorf("listing device registrations: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device registration: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device registrations: %w", err)
	}
	return devices, nil
}

// Delete removes a registration.
func (s *SQLiteStore) Delete(ctx context.Context, householdID string, vendor Vendor, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM device_registrations WHERE household_id = ? AND vendor = ? AND device_id = ?`,
		householdID, string(vendor), id)
	if err != nil {
		return fmt.Errorf("deleting device registration: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanDevice.
type scanner interface {
	Scan(dest ...any) error
}

// scanDevice reads one registration row.
func scanDevice(row scanner) (*Device, error) {
	var (
		d        Device
		vendor   string
		status   string
		lastSeen sql.NullTime
		metadata sql.NullString
	)

	if err := row.Scan(&d.ID, &d.Name, &vendor, &d.Topic, &status, &lastSeen, &metadata); err != nil {
		return nil, err
	}

	d.Vendor = Vendor(vendor)
	d.Status = Status(status)
	if lastSeen.Valid {
		d.LastSeen = lastSeen.Time
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &d.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
	}
	return &d, nil
}

// marshalMetadata encodes the metadata map as JSON, or NULL when empty.
func marshalMetadata(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// nullableTime converts a zero time to NULL.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

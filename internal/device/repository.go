package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id int64) (*Device, error)

	// Exists reports whether a device id is registered.
	Exists(ctx context.Context, id int64) (bool, error)

	// Create inserts a new device.
	// Returns ErrDeviceExists if the serial number is already registered.
	Create(ctx context.Context, d *Device) error

	// ActiveOwnership returns the currently active ownership for a device.
	// Returns ErrNoActiveOwnership if the device has no active owner.
	ActiveOwnership(ctx context.Context, deviceID int64) (*Ownership, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Device, error) {
	query := `
		SELECT id, serial_number, name, created_at
		FROM devices
		WHERE id = ?`

	var d Device
	var createdAt string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.SerialNumber, &d.Name, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}

	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
	return &d, nil
}

// Exists reports whether a device id is registered.
func (r *SQLiteRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM devices WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking device existence: %w", err)
	}
	return true, nil
}

// Create inserts a new device.
func (r *SQLiteRepository) Create(ctx context.Context, d *Device) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO devices (id, serial_number, name, created_at)
		VALUES (?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.SerialNumber,
		d.Name,
		d.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}

	return nil
}

// ActiveOwnership returns the currently active ownership for a device.
func (r *SQLiteRepository) ActiveOwnership(ctx context.Context, deviceID int64) (*Ownership, error) {
	query := `
		SELECT id, device_id, user_id, is_active, created_at, deactivated_at
		FROM ownerships
		WHERE device_id = ? AND is_active = 1`

	var o Ownership
	var isActive int
	var createdAt string
	var deactivatedAt sql.NullString
	err := r.db.QueryRowContext(ctx, query, deviceID).Scan(
		&o.ID, &o.DeviceID, &o.UserID, &isActive, &createdAt, &deactivatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveOwnership
		}
		return nil, fmt.Errorf("querying active ownership: %w", err)
	}

	o.IsActive = isActive != 0
	o.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
	if deactivatedAt.Valid {
		t, _ := time.Parse(time.RFC3339, deactivatedAt.String) //nolint:errcheck // Format is controlled
		o.DeactivatedAt = &t
	}
	return &o, nil
}

// isUniqueConstraintError checks for a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

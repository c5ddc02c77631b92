package repository

import (
	"context"
	"database/sql"
	"time"

	"attendance.service/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DeviceRepo is the concrete DeviceRepository for PostgreSQL.
type DeviceRepo struct {
	DB *sql.DB
}

// NewDeviceRepository create new instance
func NewDeviceRepository(db *sql.DB) DeviceRepository {
	return &DeviceRepo{DB: db}
}

// FindBySerial fetches one device record, or nil when the serial is unknown.
func (r *DeviceRepo) FindBySerial(ctx context.Context, serial string) (*model.DeviceRecord, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.serialNumber", serial))

	rec := &model.DeviceRecord{}
	query := `SELECT serial_number, status, last_seen, updated_at
              FROM devices
              WHERE serial_number = $1`

	row := r.DB.QueryRowContext(ctx, query, serial)
	err := row.Scan(&rec.SerialNumber, &rec.Status, &rec.LastSeen, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// Insert creates the row for a newly observed serial number.
func (r *DeviceRepo) Insert(ctx context.Context, rec model.DeviceRecord) error {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.serialNumber", rec.SerialNumber))

	query := `INSERT INTO devices (serial_number, status, last_seen, updated_at)
              VALUES ($1, $2, $3, NOW())`

	_, err := r.DB.ExecContext(ctx, query, rec.SerialNumber, rec.Status, rec.LastSeen)

	return err
}

// UpdateStatusAndLastSeen persists a liveness transition.
func (r *DeviceRepo) UpdateStatusAndLastSeen(ctx context.Context, serial string, status model.DeviceStatus, lastSeen time.Time) error {
	query := `UPDATE devices
              SET status = $1,
                  last_seen = $2,
                  updated_at = NOW()
              WHERE serial_number = $3`

	_, err := r.DB.ExecContext(ctx, query, status, lastSeen, serial)

	return err
}

// UpdateLastSeen persists only the last-seen instant. Used by the debounced
// heartbeat write path.
func (r *DeviceRepo) UpdateLastSeen(ctx context.Context, serial string, lastSeen time.Time) error {
	query := `UPDATE devices
              SET last_seen = $1,
                  updated_at = NOW()
              WHERE serial_number = $2`

	_, err := r.DB.ExecContext(ctx, query, lastSeen, serial)

	return err
}

// ListAll returns every known device. Used to warm the liveness cache at startup.
func (r *DeviceRepo) ListAll(ctx context.Context) ([]model.DeviceRecord, error) {
	query := `SELECT serial_number, status, last_seen, updated_at FROM devices`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.DeviceRecord
	for rows.Next() {
		var rec model.DeviceRecord
		if err := rows.Scan(&rec.SerialNumber, &rec.Status, &rec.LastSeen, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"time"

	"attendance.service/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PunchRepo is the concrete PunchRepository for PostgreSQL.
type PunchRepo struct {
	DB *sql.DB
}

// NewPunchRepository create new instance
func NewPunchRepository(db *sql.DB) PunchRepository {
	return &PunchRepo{DB: db}
}

// Append inserts one punch record. Punches are immutable once stored.
func (r *PunchRepo) Append(ctx context.Context, rec model.PunchRecord) (int64, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.identity", rec.Identity))

	var id int64
	query := `INSERT INTO punch_records (identity, punch_time, status, verify_method, work_code, reserved, raw_line)
              VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`

	err := r.DB.QueryRowContext(ctx, query,
		rec.Identity, rec.Timestamp, rec.Status, rec.VerifyMethod, rec.WorkCode, rec.Reserved, rec.RawLine,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

// QueryByTimeRange returns all punches with punch_time in [start, end].
func (r *PunchRepo) QueryByTimeRange(ctx context.Context, start, end time.Time) ([]model.PunchRecord, error) {
	query := `SELECT id, identity, punch_time, status, verify_method, work_code, reserved, raw_line
              FROM punch_records
              WHERE punch_time >= $1 AND punch_time <= $2
              ORDER BY punch_time ASC`

	rows, err := r.DB.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPunches(rows)
}

// QueryByIdentityAndTimeRange returns one identity's punches in [start, end],
// ascending by punch_time.
func (r *PunchRepo) QueryByIdentityAndTimeRange(ctx context.Context, identity string, start, end time.Time) ([]model.PunchRecord, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.identity", identity))

	query := `SELECT id, identity, punch_time, status, verify_method, work_code, reserved, raw_line
              FROM punch_records
              WHERE identity = $1 AND punch_time >= $2 AND punch_time <= $3
              ORDER BY punch_time ASC`

	rows, err := r.DB.QueryContext(ctx, query, identity, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPunches(rows)
}

// ListRecent returns the newest punches, newest first.
func (r *PunchRepo) ListRecent(ctx context.Context, limit int) ([]model.PunchRecord, error) {
	query := `SELECT id, identity, punch_time, status, verify_method, work_code, reserved, raw_line
              FROM punch_records
              ORDER BY punch_time DESC
              LIMIT $1`

	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPunches(rows)
}

func scanPunches(rows *sql.Rows) ([]model.PunchRecord, error) {
	var records []model.PunchRecord
	for rows.Next() {
		var rec model.PunchRecord
		err := rows.Scan(&rec.ID, &rec.Identity, &rec.Timestamp,
			&rec.Status, &rec.VerifyMethod, &rec.WorkCode, &rec.Reserved, &rec.RawLine)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

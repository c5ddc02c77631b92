package repository

import (
	"context"
	"database/sql"
	"time"

	"attendance.service/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AttendanceRepo is the concrete AttendanceRepository for PostgreSQL.
type AttendanceRepo struct {
	DB *sql.DB
}

// NewAttendanceRepository create new instance
func NewAttendanceRepository(db *sql.DB) AttendanceRepository {
	return &AttendanceRepo{DB: db}
}

// FindByIdentityAndDay fetches one aggregate, or nil when none exists yet.
func (r *AttendanceRepo) FindByIdentityAndDay(ctx context.Context, identity string, day time.Time) (*model.AttendanceRecord, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.identity", identity))

	query := `SELECT identity, day, first_time, last_time, duration_minutes, status,
                     report_status, report_retry_count, email_status, email_retry_count, updated_at
              FROM attendance_records
              WHERE identity = $1 AND day = $2`

	rec, err := scanAttendance(r.DB.QueryRowContext(ctx, query, identity, day))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Upsert writes the derived fields for (identity, day), overwriting any
// existing row. Recomputation resets the delivery statuses so downstream
// consumers pick up the fresh values.
func (r *AttendanceRepo) Upsert(ctx context.Context, rec model.AttendanceRecord) error {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.identity", rec.Identity))

	query := `INSERT INTO attendance_records
                  (identity, day, first_time, last_time, duration_minutes, status,
                   report_status, report_retry_count, email_status, email_retry_count, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, 0, $9)
              ON CONFLICT (identity, day) DO UPDATE
              SET first_time = EXCLUDED.first_time,
                  last_time = EXCLUDED.last_time,
                  duration_minutes = EXCLUDED.duration_minutes,
                  status = EXCLUDED.status,
                  report_status = EXCLUDED.report_status,
                  report_retry_count = 0,
                  email_status = EXCLUDED.email_status,
                  email_retry_count = 0,
                  updated_at = EXCLUDED.updated_at`

	_, err := r.DB.ExecContext(ctx, query,
		rec.Identity, rec.Day, rec.FirstTimestamp, rec.LastTimestamp, rec.DurationMinutes, rec.Status,
		model.DeliveryPending, model.DeliveryPending, rec.UpdatedAt)

	return err
}

// ListByDay returns every aggregate for one day.
func (r *AttendanceRepo) ListByDay(ctx context.Context, day time.Time) ([]model.AttendanceRecord, error) {
	query := `SELECT identity, day, first_time, last_time, duration_minutes, status,
                     report_status, report_retry_count, email_status, email_retry_count, updated_at
              FROM attendance_records
              WHERE day = $1
              ORDER BY identity ASC`

	rows, err := r.DB.QueryContext(ctx, query, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// UpdateReportStatus updates the status and retry count for the HR report job.
func (r *AttendanceRepo) UpdateReportStatus(ctx context.Context, identity string, day time.Time, status model.DeliveryStatus, retryCount int) error {
	query := `UPDATE attendance_records
              SET report_status = $1,
                  report_retry_count = $2
              WHERE identity = $3 AND day = $4`

	_, err := r.DB.ExecContext(ctx, query, status, retryCount, identity, day)

	return err
}

// UpdateEmailStatus updates the status and retry count for the email job.
func (r *AttendanceRepo) UpdateEmailStatus(ctx context.Context, identity string, day time.Time, status model.DeliveryStatus, retryCount int) error {
	query := `UPDATE attendance_records
              SET email_status = $1,
                  email_retry_count = $2
              WHERE identity = $3 AND day = $4`

	_, err := r.DB.ExecContext(ctx, query, status, retryCount, identity, day)

	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttendance(row rowScanner) (*model.AttendanceRecord, error) {
	rec := &model.AttendanceRecord{}
	err := row.Scan(&rec.Identity, &rec.Day, &rec.FirstTimestamp, &rec.LastTimestamp,
		&rec.DurationMinutes, &rec.Status,
		&rec.ReportStatus, &rec.ReportRetryCount, &rec.EmailStatus, &rec.EmailRetryCount,
		&rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

package repository

import (
	"context"
	"time"

	"attendance.service/internal/core/model"
)

// PunchRepository is the append-only store for punch records. Time-range
// queries are inclusive on both bounds.
type PunchRepository interface {
	Append(ctx context.Context, rec model.PunchRecord) (int64, error)
	QueryByTimeRange(ctx context.Context, start, end time.Time) ([]model.PunchRecord, error)
	QueryByIdentityAndTimeRange(ctx context.Context, identity string, start, end time.Time) ([]model.PunchRecord, error)
	ListRecent(ctx context.Context, limit int) ([]model.PunchRecord, error)
}

// AttendanceRepository stores the per-(identity, day) aggregates.
type AttendanceRepository interface {
	FindByIdentityAndDay(ctx context.Context, identity string, day time.Time) (*model.AttendanceRecord, error)
	Upsert(ctx context.Context, rec model.AttendanceRecord) error
	ListByDay(ctx context.Context, day time.Time) ([]model.AttendanceRecord, error)
	UpdateReportStatus(ctx context.Context, identity string, day time.Time, status model.DeliveryStatus, retryCount int) error
	UpdateEmailStatus(ctx context.Context, identity string, day time.Time, status model.DeliveryStatus, retryCount int) error
}

// DeviceRepository stores terminal liveness records.
type DeviceRepository interface {
	FindBySerial(ctx context.Context, serial string) (*model.DeviceRecord, error)
	Insert(ctx context.Context, rec model.DeviceRecord) error
	UpdateStatusAndLastSeen(ctx context.Context, serial string, status model.DeviceStatus, lastSeen time.Time) error
	UpdateLastSeen(ctx context.Context, serial string, lastSeen time.Time) error
	ListAll(ctx context.Context) ([]model.DeviceRecord, error)
}

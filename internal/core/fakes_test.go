package core

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"attendance.service/internal/core/model"
)

// In-memory stand-ins for the repositories, the notifier and the producer.
// Shared by the aggregator and ingestion tests.

type memPunchRepo struct {
	mu         sync.Mutex
	records    []model.PunchRecord
	nextID     int64
	failAppend bool
}

func (r *memPunchRepo) Append(ctx context.Context, rec model.PunchRecord) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAppend {
		return 0, errors.New("append failed")
	}
	r.nextID++
	rec.ID = r.nextID
	r.records = append(r.records, rec)
	return rec.ID, nil
}

func (r *memPunchRepo) QueryByTimeRange(ctx context.Context, start, end time.Time) ([]model.PunchRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.PunchRecord
	for _, rec := range r.records {
		if !rec.Timestamp.Before(start) && !rec.Timestamp.After(end) {
			out = append(out, rec)
		}
	}
	sortPunches(out)
	return out, nil
}

func (r *memPunchRepo) QueryByIdentityAndTimeRange(ctx context.Context, identity string, start, end time.Time) ([]model.PunchRecord, error) {
	all, _ := r.QueryByTimeRange(ctx, start, end)
	var out []model.PunchRecord
	for _, rec := range all {
		if rec.Identity == identity {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memPunchRepo) ListRecent(ctx context.Context, limit int) ([]model.PunchRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.PunchRecord, len(r.records))
	copy(out, r.records)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortPunches(records []model.PunchRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].Timestamp.Before(records[j].Timestamp) })
}

type memAttendanceRepo struct {
	mu      sync.Mutex
	records map[string]model.AttendanceRecord
	upserts int
}

func newMemAttendanceRepo() *memAttendanceRepo {
	return &memAttendanceRepo{records: make(map[string]model.AttendanceRecord)}
}

func attendanceKey(identity string, day time.Time) string {
	return identity + "|" + model.DayKey(day)
}

func (r *memAttendanceRepo) FindByIdentityAndDay(ctx context.Context, identity string, day time.Time) (*model.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[attendanceKey(identity, day)]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (r *memAttendanceRepo) Upsert(ctx context.Context, rec model.AttendanceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ReportStatus = model.DeliveryPending
	rec.ReportRetryCount = 0
	rec.EmailStatus = model.DeliveryPending
	rec.EmailRetryCount = 0
	r.records[attendanceKey(rec.Identity, rec.Day)] = rec
	r.upserts++
	return nil
}

func (r *memAttendanceRepo) ListByDay(ctx context.Context, day time.Time) ([]model.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.AttendanceRecord
	for _, rec := range r.records {
		if model.DayKey(rec.Day) == model.DayKey(day) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out, nil
}

func (r *memAttendanceRepo) UpdateReportStatus(ctx context.Context, identity string, day time.Time, status model.DeliveryStatus, retryCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[attendanceKey(identity, day)]
	if ok {
		rec.ReportStatus = status
		rec.ReportRetryCount = retryCount
		r.records[attendanceKey(identity, day)] = rec
	}
	return nil
}

func (r *memAttendanceRepo) UpdateEmailStatus(ctx context.Context, identity string, day time.Time, status model.DeliveryStatus, retryCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[attendanceKey(identity, day)]
	if ok {
		rec.EmailStatus = status
		rec.EmailRetryCount = retryCount
		r.records[attendanceKey(identity, day)] = rec
	}
	return nil
}

// notifierFunc adapts a function to the Notifier interface.
type notifierFunc func(ctx context.Context, rec model.AttendanceRecord) error

func (f notifierFunc) Notify(ctx context.Context, rec model.AttendanceRecord) error {
	return f(ctx, rec)
}

type recordingProducer struct {
	mu      sync.Mutex
	reports []interface{}
	emails  []interface{}
	fail    bool
}

func (p *recordingProducer) PublishReport(ctx context.Context, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("publish failed")
	}
	p.reports = append(p.reports, body)
	return nil
}

func (p *recordingProducer) PublishEmail(ctx context.Context, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("publish failed")
	}
	p.emails = append(p.emails, body)
	return nil
}

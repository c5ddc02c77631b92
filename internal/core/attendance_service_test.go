package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"attendance.service/internal/core/model"
)

func punchAt(identity string, ts time.Time) model.PunchRecord {
	return model.PunchRecord{Identity: identity, Timestamp: ts, RawLine: identity}
}

func newTestAggregator(punches *memPunchRepo, attendance *memAttendanceRepo) *AttendanceService {
	return NewAttendanceService(punches, attendance, nil, nil, 360, time.Second)
}

func TestComputeAttendanceThresholds(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		punchTimes   []time.Time
		wantStatus   model.AttendanceStatus
		wantDuration int64
	}{
		{
			name: "six hours apart is present",
			punchTimes: []time.Time{
				day.Add(9 * time.Hour),
				day.Add(15 * time.Hour),
			},
			wantStatus:   model.StatusPresent,
			wantDuration: 360,
		},
		{
			name: "ten minutes apart is short",
			punchTimes: []time.Time{
				day.Add(9 * time.Hour),
				day.Add(9*time.Hour + 10*time.Minute),
			},
			wantStatus:   model.StatusShort,
			wantDuration: 10,
		},
		{
			name:         "single punch is absent",
			punchTimes:   []time.Time{day.Add(9 * time.Hour)},
			wantStatus:   model.StatusAbsent,
			wantDuration: 0,
		},
		{
			name: "two punches at the same instant are absent",
			punchTimes: []time.Time{
				day.Add(9 * time.Hour),
				day.Add(9 * time.Hour),
			},
			wantStatus:   model.StatusAbsent,
			wantDuration: 0,
		},
		{
			name: "sub-minute remainder floors away",
			punchTimes: []time.Time{
				day.Add(9 * time.Hour),
				day.Add(9*time.Hour + 10*time.Minute + 59*time.Second),
			},
			wantStatus:   model.StatusShort,
			wantDuration: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			punches := &memPunchRepo{}
			for _, ts := range tt.punchTimes {
				punches.Append(context.Background(), punchAt("E1", ts))
			}
			attendance := newMemAttendanceRepo()
			svc := newTestAggregator(punches, attendance)

			records, err := svc.ComputeAttendanceForDay(context.Background(), day)
			if err != nil {
				t.Fatalf("ComputeAttendanceForDay() error: %v", err)
			}
			if len(records) != 1 {
				t.Fatalf("got %d records, want 1", len(records))
			}
			if records[0].Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", records[0].Status, tt.wantStatus)
			}
			if records[0].DurationMinutes != tt.wantDuration {
				t.Errorf("duration = %d, want %d", records[0].DurationMinutes, tt.wantDuration)
			}
		})
	}
}

func TestComputeAttendanceDayBoundsInclusive(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	punches := &memPunchRepo{}
	punches.Append(context.Background(), punchAt("E1", day))                                   // midnight, inclusive
	punches.Append(context.Background(), punchAt("E1", day.Add(24*time.Hour-time.Millisecond))) // 23:59:59.999, inclusive
	punches.Append(context.Background(), punchAt("E2", day.Add(24*time.Hour)))                 // next day, excluded

	attendance := newMemAttendanceRepo()
	svc := newTestAggregator(punches, attendance)

	records, err := svc.ComputeAttendanceForDay(context.Background(), day)
	if err != nil {
		t.Fatalf("ComputeAttendanceForDay() error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 (E2's punch is on the next day)", len(records))
	}
	if records[0].Identity != "E1" {
		t.Errorf("identity = %q, want E1", records[0].Identity)
	}
	if !records[0].FirstTimestamp.Equal(day) {
		t.Errorf("firstTimestamp = %v, want %v", records[0].FirstTimestamp, day)
	}
	if !records[0].LastTimestamp.Equal(day.Add(24*time.Hour - time.Millisecond)) {
		t.Errorf("lastTimestamp = %v", records[0].LastTimestamp)
	}
}

func TestComputeAttendanceIdempotent(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	punches := &memPunchRepo{}
	punches.Append(context.Background(), punchAt("E1", day.Add(8*time.Hour)))
	punches.Append(context.Background(), punchAt("E1", day.Add(17*time.Hour)))

	attendance := newMemAttendanceRepo()
	svc := newTestAggregator(punches, attendance)

	first, err := svc.ComputeAttendanceForDay(context.Background(), day)
	if err != nil {
		t.Fatalf("first compute error: %v", err)
	}
	second, err := svc.ComputeAttendanceForDay(context.Background(), day)
	if err != nil {
		t.Fatalf("second compute error: %v", err)
	}

	if len(attendance.records) != 1 {
		t.Fatalf("store holds %d rows, want 1", len(attendance.records))
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("got %d and %d records, want 1 each", len(first), len(second))
	}

	a, b := first[0], second[0]
	if a.Status != b.Status || a.DurationMinutes != b.DurationMinutes ||
		!a.FirstTimestamp.Equal(b.FirstTimestamp) || !a.LastTimestamp.Equal(b.LastTimestamp) {
		t.Errorf("recomputation diverged: %+v vs %+v", a, b)
	}
}

func TestComputeAttendanceMultipleIdentities(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	punches := &memPunchRepo{}
	punches.Append(context.Background(), punchAt("E1", day.Add(8*time.Hour)))
	punches.Append(context.Background(), punchAt("E1", day.Add(16*time.Hour)))
	punches.Append(context.Background(), punchAt("E2", day.Add(9*time.Hour)))

	attendance := newMemAttendanceRepo()
	svc := newTestAggregator(punches, attendance)

	records, err := svc.ComputeAttendanceForDay(context.Background(), day)
	if err != nil {
		t.Fatalf("ComputeAttendanceForDay() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	byIdentity := map[string]model.AttendanceRecord{}
	for _, rec := range records {
		byIdentity[rec.Identity] = rec
	}
	if byIdentity["E1"].Status != model.StatusPresent {
		t.Errorf("E1 status = %s, want PRESENT", byIdentity["E1"].Status)
	}
	if byIdentity["E2"].Status != model.StatusAbsent {
		t.Errorf("E2 status = %s, want ABSENT", byIdentity["E2"].Status)
	}
}

func TestNotificationFailureDoesNotAbort(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	punches := &memPunchRepo{}
	punches.Append(context.Background(), punchAt("E1", day.Add(8*time.Hour)))
	punches.Append(context.Background(), punchAt("E2", day.Add(9*time.Hour)))

	attendance := newMemAttendanceRepo()
	failing := notifierFunc(func(ctx context.Context, rec model.AttendanceRecord) error {
		return errors.New("endpoint down")
	})
	svc := NewAttendanceService(punches, attendance, failing, &recordingProducer{fail: true}, 360, time.Second)

	records, err := svc.ComputeAttendanceForDay(context.Background(), day)
	if err != nil {
		t.Fatalf("ComputeAttendanceForDay() error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2 despite delivery failures", len(records))
	}
	if len(attendance.records) != 2 {
		t.Errorf("store holds %d rows, want 2", len(attendance.records))
	}
}

func TestComputeAttendancePublishesEvents(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	punches := &memPunchRepo{}
	punches.Append(context.Background(), punchAt("E1", day.Add(8*time.Hour)))

	attendance := newMemAttendanceRepo()
	producer := &recordingProducer{}
	svc := NewAttendanceService(punches, attendance, nil, producer, 360, time.Second)

	if _, err := svc.ComputeAttendanceForDay(context.Background(), day); err != nil {
		t.Fatalf("ComputeAttendanceForDay() error: %v", err)
	}

	if len(producer.reports) != 1 || len(producer.emails) != 1 {
		t.Errorf("published %d report and %d email events, want 1 each", len(producer.reports), len(producer.emails))
	}
}

func TestComputeAttendanceEmptyDay(t *testing.T) {
	svc := newTestAggregator(&memPunchRepo{}, newMemAttendanceRepo())

	records, err := svc.ComputeAttendanceForDay(context.Background(), time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ComputeAttendanceForDay() error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/core/parser"
	"attendance.service/internal/ports/repository"
)

// ErrEmptyPayload is returned when a push request carries no usable body.
// Handlers map it to a 400.
var ErrEmptyPayload = errors.New("payload is empty")

// attendanceTableMarker identifies the strict attendance-log table in the
// declared table name of a push request.
const attendanceTableMarker = "ATTLOG"

// IngestResult reports what one push batch produced.
type IngestResult struct {
	Inserted   int                      `json:"inserted"`
	Attendance []model.AttendanceRecord `json:"attendance"`
}

// IngestService classifies incoming payloads, persists the parsed punches and
// triggers aggregation for every day the batch touched.
type IngestService struct {
	punches    repository.PunchRepository
	aggregator *AttendanceService
}

// NewIngestService wires the ingestion coordinator.
func NewIngestService(punches repository.PunchRepository, aggregator *AttendanceService) *IngestService {
	return &IngestService{
		punches:    punches,
		aggregator: aggregator,
	}
}

// Ingest processes one pushed payload. ATTLOG tables go through the strict
// parser and trigger aggregation for each touched day; anything else goes
// through the permissive fallback parser with no aggregation. All punches of
// the batch are persisted before any aggregation runs.
func (s *IngestService) Ingest(ctx context.Context, declaredTable, payload string) (IngestResult, error) {
	if strings.TrimSpace(payload) == "" {
		return IngestResult{}, ErrEmptyPayload
	}

	if !strings.Contains(strings.ToUpper(declaredTable), attendanceTableMarker) {
		return s.ingestFallback(ctx, payload)
	}

	records := parser.ParseAttendanceLog(payload)

	days := make(map[time.Time]struct{})
	inserted := 0
	for _, rec := range records {
		if _, err := s.punches.Append(ctx, rec); err != nil {
			return IngestResult{}, fmt.Errorf("failed to persist punch for %s: %w", rec.Identity, err)
		}
		inserted++

		day, _ := DayBounds(rec.Timestamp)
		days[day] = struct{}{}
	}

	result := IngestResult{Inserted: inserted}
	for day := range days {
		computed, err := s.aggregator.ComputeAttendanceForDay(ctx, day)
		if err != nil {
			return IngestResult{}, err
		}
		result.Attendance = append(result.Attendance, computed...)
	}

	return result, nil
}

func (s *IngestService) ingestFallback(ctx context.Context, payload string) (IngestResult, error) {
	records := parser.ParseFallbackLog(payload, time.Now().UTC())

	inserted := 0
	for _, rec := range records {
		if _, err := s.punches.Append(ctx, rec); err != nil {
			return IngestResult{}, fmt.Errorf("failed to persist fallback punch: %w", err)
		}
		inserted++
	}

	return IngestResult{Inserted: inserted}, nil
}

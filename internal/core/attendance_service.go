package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/messaging"
	"attendance.service/internal/ports/notify"
	"attendance.service/internal/ports/repository"
	"github.com/rs/zerolog/log"
)

// AttendanceService derives per-(identity, day) aggregates from stored
// punches and fans the results out to the notification sink and the
// downstream queues.
type AttendanceService struct {
	punches    repository.PunchRepository
	attendance repository.AttendanceRepository
	notifier   notify.Notifier
	producer   messaging.EventProducer

	presentThreshold int64
	notifyTimeout    time.Duration
}

// NewAttendanceService wires the aggregator. notifier and producer may be nil
// (notifications and queue publication disabled respectively).
func NewAttendanceService(
	punches repository.PunchRepository,
	attendance repository.AttendanceRepository,
	notifier notify.Notifier,
	producer messaging.EventProducer,
	presentThresholdMinutes int64,
	notifyTimeout time.Duration,
) *AttendanceService {
	return &AttendanceService{
		punches:          punches,
		attendance:       attendance,
		notifier:         notifier,
		producer:         producer,
		presentThreshold: presentThresholdMinutes,
		notifyTimeout:    notifyTimeout,
	}
}

// DayBounds returns the instant range covered by a calendar day:
// [00:00:00.000, 23:59:59.999], inclusive on both ends.
func DayBounds(day time.Time) (time.Time, time.Time) {
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Millisecond)
	return start, end
}

// ComputeAttendanceForDay recomputes every aggregate touched by punches on
// the given day. It is idempotent: re-invocation with an unchanged punch set
// converges to the same stored records.
func (s *AttendanceService) ComputeAttendanceForDay(ctx context.Context, day time.Time) ([]model.AttendanceRecord, error) {
	start, end := DayBounds(day)

	all, err := s.punches.QueryByTimeRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query punches for day %s: %w", model.DayKey(day), err)
	}

	seen := make(map[string]struct{})
	var identities []string
	for _, p := range all {
		if _, ok := seen[p.Identity]; !ok {
			seen[p.Identity] = struct{}{}
			identities = append(identities, p.Identity)
		}
	}
	sort.Strings(identities)

	var results []model.AttendanceRecord
	for _, identity := range identities {
		rec, err := s.computeForIdentity(ctx, identity, start, end)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}

		results = append(results, *rec)
		s.dispatch(ctx, *rec)
	}

	return results, nil
}

// computeForIdentity aggregates one identity's punches inside [start, end]
// and upserts the record. Returns nil when the identity has no punches left
// in the range (possible only if rows were deleted out-of-band).
func (s *AttendanceService) computeForIdentity(ctx context.Context, identity string, start, end time.Time) (*model.AttendanceRecord, error) {
	punches, err := s.punches.QueryByIdentityAndTimeRange(ctx, identity, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query punches for identity %s: %w", identity, err)
	}
	if len(punches) == 0 {
		return nil, nil
	}

	first := punches[0].Timestamp
	last := punches[len(punches)-1].Timestamp
	duration := last.Sub(first).Milliseconds() / 60000

	status := model.StatusAbsent
	switch {
	case duration >= s.presentThreshold:
		status = model.StatusPresent
	case duration > 0:
		status = model.StatusShort
	}

	rec := model.AttendanceRecord{
		Identity:        identity,
		Day:             start,
		FirstTimestamp:  first,
		LastTimestamp:   last,
		DurationMinutes: duration,
		Status:          status,
		ReportStatus:    model.DeliveryPending,
		EmailStatus:     model.DeliveryPending,
		UpdatedAt:       time.Now().UTC(),
	}

	if err := s.attendance.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to upsert attendance for %s/%s: %w", identity, model.DayKey(start), err)
	}

	return &rec, nil
}

// dispatch performs the best-effort side effects for one computed record.
// Failures are logged and dropped; they never abort sibling identities.
func (s *AttendanceService) dispatch(ctx context.Context, rec model.AttendanceRecord) {
	if s.notifier != nil {
		nctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
		if err := s.notifier.Notify(nctx, rec); err != nil {
			log.Ctx(ctx).Warn().Err(err).
				Str("identity", rec.Identity).
				Str("day", model.DayKey(rec.Day)).
				Msg("Attendance notification failed")
		}
		cancel()
	}

	if s.producer == nil {
		return
	}

	event := messaging.AttendanceComputedEvent{
		Identity:        rec.Identity,
		Day:             model.DayKey(rec.Day),
		Status:          string(rec.Status),
		DurationMinutes: rec.DurationMinutes,
		ComputedAt:      rec.UpdatedAt,
	}
	if err := s.producer.PublishReport(ctx, event); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("identity", rec.Identity).Msg("Failed to publish report event")
	}
	if err := s.producer.PublishEmail(ctx, event); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("identity", rec.Identity).Msg("Failed to publish email event")
	}
}

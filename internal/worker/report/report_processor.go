package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/messaging"
	"attendance.service/internal/ports/repository"
	"attendance.service/internal/worker/hrapi"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// ReportProcessor handles jobs from the report queue, forwarding computed
// attendance records to the HR system. It uses a circuit breaker to avoid
// hammering the HR API if it's having issues.
type ReportProcessor struct {
	Repo  repository.AttendanceRepository
	hrapi hrapi.Client
	cb    *gobreaker.CircuitBreaker
}

// NewProcessor creates a new processor for the report queue. It sets up a
// circuit breaker to protect the HR API from being overwhelmed.
func NewProcessor(r repository.AttendanceRepository, client hrapi.Client) *ReportProcessor {
	settings := gobreaker.Settings{
		Name:        "HR-API",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip if failure rate exceeds 50% after at least 10 requests
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
	}

	return &ReportProcessor{
		Repo:  r,
		hrapi: client,
		cb:    gobreaker.NewCircuitBreaker(settings),
	}
}

// Process is the core logic for handling a message from the report queue.
// It calls the HR API through a circuit breaker and handles retries with exponential backoff.
func (p *ReportProcessor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	var event messaging.AttendanceComputedEvent
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal report event")
		return false, 0, err // Do not retry on malformed message
	}

	day, err := time.ParseInLocation("2006-01-02", event.Day, time.UTC)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("day", event.Day).Msg("Malformed day in report event")
		return false, 0, err
	}

	record, err := p.Repo.FindByIdentityAndDay(ctx, event.Identity, day)
	if err != nil {
		return true, 10, fmt.Errorf("failed to get record from db: %w", err)
	}
	if record == nil {
		// Record vanished between publish and delivery; nothing to report.
		return false, 0, nil
	}

	if record.ReportStatus == model.DeliveryCompleted {
		return false, 0, nil
	}

	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.hrapi.RecordAttendance(ctx, event)
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			log.Ctx(ctx).Warn().Msg("Circuit Breaker is OPEN; skipping HR API call")
		}
		newCount := record.ReportRetryCount + 1
		p.Repo.UpdateReportStatus(ctx, event.Identity, day, model.DeliveryPending, newCount)

		delay := calculateBackoff(newCount)
		return true, delay, err
	}

	err = p.Repo.UpdateReportStatus(ctx, event.Identity, day, model.DeliveryCompleted, 0)
	return false, 0, err
}

// calculateBackoff determines how long to wait before retrying a failed job.
// It increases the delay exponentially with each retry.
func calculateBackoff(retryCount int) int32 {
	backoff := int32(math.Pow(2, float64(retryCount)) * 10)
	if backoff > 3600 {
		return 3600 // max at 1 hour
	}
	return backoff
}

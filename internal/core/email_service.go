package core

import (
	"context"
	"fmt"

	"attendance.service/pkg/telemetry"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type EmailService interface {
	SendAttendanceSummary(ctx context.Context, to string, day string, status string, durationMinutes int64) error
}

type SESEmailService struct {
	client *ses.Client
	sender string
}

func NewSESEmailService(client *ses.Client, sender string) *SESEmailService {
	return &SESEmailService{client: client, sender: sender}
}

func (s *SESEmailService) SendAttendanceSummary(ctx context.Context, to string, day string, status string, durationMinutes int64) error {
	tracer := otel.Tracer("ses-email-service")
	ctx, span := tracer.Start(ctx, "send_email", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	// Enrich span with the identity if available in context
	if identity := telemetry.GetIdentityFromContext(ctx); identity != "" {
		span.SetAttributes(attribute.String("app.identity", identity))
	}

	input := &ses.SendEmailInput{
		Source: aws.String(s.sender),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(fmt.Sprintf("Attendance Summary for %s", day)),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(fmt.Sprintf(
						"Hello,\n\nYour attendance for %s has been recorded as %s (%d minutes between first and last punch).",
						day, status, durationMinutes)),
				},
			},
		},
	}

	_, err := s.client.SendEmail(ctx, input)
	return err
}

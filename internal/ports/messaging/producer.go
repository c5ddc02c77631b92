package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Producer struct {
	sender         MessageSender
	reportQueueURL string
	emailQueueURL  string
}

func NewProducer(sender MessageSender, reportQueueURL, emailQueueURL string) *Producer {
	return &Producer{
		sender:         sender,
		reportQueueURL: reportQueueURL,
		emailQueueURL:  emailQueueURL,
	}
}

func NewSQSProducer(client SQSClient, reportQueueURL, emailQueueURL string) *Producer {
	return NewProducer(&SQSSender{client: client}, reportQueueURL, emailQueueURL)
}

func (p *Producer) PublishReport(ctx context.Context, body interface{}) error {
	return p.publish(ctx, p.reportQueueURL, body)
}

func (p *Producer) PublishEmail(ctx context.Context, body interface{}) error {
	return p.publish(ctx, p.emailQueueURL, body)
}

func (p *Producer) publish(ctx context.Context, destination string, body interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}

	// Enrich the current span with the identity if available
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		var payload struct {
			Identity string `json:"identity"`
		}
		if err := json.Unmarshal(b, &payload); err == nil && payload.Identity != "" {
			span.SetAttributes(attribute.String("app.identity", payload.Identity))
		}
	}

	if err := p.sender.SendMessage(ctx, destination, b); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

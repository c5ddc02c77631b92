// Package logger configures zerolog for the attendance binaries and binds
// request-scoped loggers to the active trace.
package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Setup configures the process-wide zerolog logger. The API server and the
// workers all call this once at startup.
func Setup(isLocalDev bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if isLocalDev {
		// Pretty console output while developing against LocalStack
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		// JSON at info level everywhere else
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// EnrichContextWithLogger derives a logger carrying the current trace and span
// IDs and stores it on the context, so ingestion and worker logs correlate
// with their traces.
func EnrichContextWithLogger(ctx context.Context) context.Context {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return ctx
	}

	sCtx := span.SpanContext()
	if !sCtx.HasTraceID() {
		return ctx
	}

	l := log.With().
		Str("trace_id", sCtx.TraceID().String()).
		Str("span_id", sCtx.SpanID().String()).
		Logger()

	return l.WithContext(ctx)
}

// Entry point for the attendance push API
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"attendance.service/internal/api"
	"attendance.service/internal/config"
	"attendance.service/internal/core"
	"attendance.service/internal/core/liveness"
	"attendance.service/internal/ports/messaging"
	"attendance.service/internal/ports/notify"
	"attendance.service/internal/ports/repository"
	"attendance.service/pkg/aws"
	"attendance.service/pkg/database"
	"attendance.service/pkg/logger"
	"attendance.service/pkg/telemetry"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	// Configure structured logging
	logger.Setup(cfg.IsLocalDev)

	// Configure OpenTelemetry Tracing
	shutdownTracer, err := telemetry.InitTracer("attendance-api")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init tracer")
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	// DB connection
	db, err := database.NewInstrumentedConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening database")
	}
	defer db.Close()
	log.Info().Msg("Successfully connected to the database.")

	// AWS SDK Config
	awsCfg, err := aws.NewAWSConfig(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load SDK config")
	}

	// Initialize dependencies
	sqsClient := sqs.NewFromConfig(awsCfg)
	punchRepo := repository.NewPunchRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	producer := messaging.NewSQSProducer(sqsClient, cfg.ReportSQSQueueURL, cfg.EmailSQSQueueURL)

	var notifier notify.Notifier
	if cfg.NotifyEndpoint != "" {
		notifier = notify.NewWebhookClient(cfg.NotifyEndpoint, cfg.NotifyTimeout())
	}

	attendanceService := core.NewAttendanceService(
		punchRepo, attendanceRepo, notifier, producer,
		cfg.PresentThresholdMinutes, cfg.NotifyTimeout())
	ingestService := core.NewIngestService(punchRepo, attendanceService)

	// Liveness tracker: warm the cache before the sweep starts so devices
	// known offline from a previous run are not treated as freshly unknown.
	tracker := liveness.NewTracker(deviceRepo, cfg.OfflineThreshold(), cfg.SweepInterval(), cfg.LastSeenDebounce())
	if err := tracker.Warm(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to warm liveness cache")
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go tracker.Run(sweepCtx)

	// Setup router and server
	router := api.NewRouter(ingestService, attendanceService, attendanceRepo, punchRepo, tracker)

	// Middleware to inject logger with trace ID
	loggerMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.EnrichContextWithLogger(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	// Wrap the router with OpenTelemetry middleware to create spans for each request
	handler := otelhttp.NewHandler(loggerMiddleware(router), "api")

	serverAddr := ":" + cfg.ServerPort
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: handler,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.ServerPort).Msg("Attendance API starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// Stop the sweep and drain pending device writes best-effort.
	stopSweep()
	tracker.Flush()

	// The context is used to inform the server it has 5 seconds to finish
	// the requests it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}

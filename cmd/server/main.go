package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"hyre/internal/app"
	"hyre/internal/config"
	"hyre/internal/domain"
	"hyre/internal/handler"
	"hyre/internal/mq"
	"hyre/internal/payments"
	"hyre/internal/queue"
	internalRedis "hyre/internal/redis"
	"hyre/internal/repository/postgres"
	"hyre/internal/scheduler"
	"hyre/internal/service"
)

func main() {
	// Load .env if present; real deployments set env vars directly.
	_ = godotenv.Load()

	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Connect the event broker when enabled; without it lifecycle events are
	// logged only.
	var publisher *mq.Publisher
	if cfg.AMQP.Enabled {
		publisher, err = mq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer publisher.Close()
		log.Println("Connected to RabbitMQ")
	}

	// Wire dependencies.
	server, jobQueue, sched := wireServer(db, redisClient, publisher, nrApp, cfg)

	// Background workers and scheduler stop on the same cancellation.
	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	go jobQueue.Run(runCtx, cfg.Queue.Concurrency)
	go sched.Run(runCtx)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server, the job
// queue and the scheduler.
func wireServer(db *sql.DB, redisClient *redis.Client, publisher *mq.Publisher, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, *queue.Queue, *scheduler.Scheduler) {
	// Initialize Redis stores.
	sessionStore := internalRedis.NewCheckoutSessionStore(redisClient, cfg.Booking.CheckoutSessionTTL)

	// Initialize repositories.
	carRepo := postgres.NewCarRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	legRepo := postgres.NewBookingLegRepository(db)
	extRepo := postgres.NewExtensionRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)

	// Initialize services.
	var eventPublisher service.EventPublisher
	if publisher != nil {
		eventPublisher = publisher
	}
	notifier := service.NewNotificationService(eventPublisher, nil)
	rates := service.NewStaticRatesProvider(domain.PlatformRates{
		VATRatePercent:         cfg.Rates.VATRatePercent,
		PlatformFeeRatePercent: cfg.Rates.PlatformFeeRatePercent,
		CommissionRatePercent:  cfg.Rates.CommissionRatePercent,
	})
	provider := payments.NewClient(cfg.Payments.BaseURL, cfg.Payments.SecretKey, cfg.Payments.Timeout)
	validator := service.NewDateValidator(cfg.Booking.SameDayCutoffHour, nil)
	availability := service.NewAvailabilityService(carRepo, bookingRepo, cfg.Booking.BufferHours)
	bookingService := service.NewBookingService(db, bookingRepo, legRepo, carRepo,
		validator, availability, rates, provider, sessionStore, notifier, nil)
	extensionService := service.NewExtensionService(bookingRepo, legRepo, extRepo, carRepo,
		rates, provider, notifier, nil)
	reconciliation := service.NewReconciliationService(provider, bookingRepo, extRepo, paymentRepo,
		bookingService, extensionService, nil)
	payouts := service.NewPayoutService(rates, notifier)
	transitions := service.NewTransitionService(bookingRepo, notifier, payouts, nil)

	// Background jobs: the scheduler enqueues triggers, the queue runs them.
	jobQueue := queue.New(redisClient, cfg.Queue.DedupTTL)
	jobQueue.Register(scheduler.JobActivateDue, func(ctx context.Context, payload []byte) error {
		var trigger scheduler.TriggerPayload
		if err := json.Unmarshal(payload, &trigger); err != nil {
			return err
		}
		_, err := transitions.ActivateDueBookings(ctx)
		return err
	})
	jobQueue.Register(scheduler.JobCompleteDue, func(ctx context.Context, payload []byte) error {
		var trigger scheduler.TriggerPayload
		if err := json.Unmarshal(payload, &trigger); err != nil {
			return err
		}
		_, err := transitions.CompleteDueBookings(ctx)
		return err
	})
	sched := scheduler.New(jobQueue, cfg.Scheduler.Interval, cfg.Scheduler.JobAttempts, cfg.Scheduler.JobBackoff)

	// Initialize handlers.
	bookingHandler := handler.NewBookingHandler(bookingService, extensionService)
	carHandler := handler.NewCarHandler(availability, carRepo)
	webhookHandler := handler.NewWebhookHandler(reconciliation)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		BookingHandler: bookingHandler,
		CarHandler:     carHandler,
		WebhookHandler: webhookHandler,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
	})

	// Create HTTP server.
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return server, jobQueue, sched
}

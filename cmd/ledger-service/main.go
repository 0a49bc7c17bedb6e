package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/curevet/ledger-backend/internal/ledger/events"
	"github.com/curevet/ledger-backend/internal/ledger/handler"
	"github.com/curevet/ledger-backend/internal/ledger/repository"
	"github.com/curevet/ledger-backend/internal/ledger/service"
	"github.com/curevet/ledger-backend/pkg/config"
	"github.com/curevet/ledger-backend/pkg/database"
	"github.com/curevet/ledger-backend/pkg/httputil"
	"github.com/curevet/ledger-backend/pkg/logger"
	"github.com/curevet/ledger-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("ledger-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("ledger-service", cfg.Server.Environment)
	log.Info().Msg("starting Ledger Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewLedgerEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	batchRepo := repository.NewBatchRepository(db)
	visitRepo := repository.NewVisitRepository(db)
	dispenseRepo := repository.NewDispenseRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)

	// Initialize services
	catalogService := service.NewCatalogService(batchRepo, publisher, log)
	dispensingService := service.NewDispensingService(db, visitRepo, batchRepo, dispenseRepo, publisher, log)
	purchasingService := service.NewPurchasingService(purchaseRepo, batchRepo, publisher, log)
	reportService := service.NewReportService(dispenseRepo, purchaseRepo, visitRepo, log)
	alertEngine := service.NewAlertEngine(batchRepo, visitRepo, cfg.Alerts, log)

	// Initialize handlers
	batchHandler := handler.NewBatchHandler(catalogService, log)
	visitHandler := handler.NewVisitHandler(dispensingService, log)
	purchaseHandler := handler.NewPurchaseHandler(purchasingService, log)
	reportHandler := handler.NewReportHandler(reportService, log)
	alertHandler := handler.NewAlertHandler(alertEngine, log)

	// Start alert scheduler
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := service.NewAlertScheduler(alertEngine, publisher, cfg.Alerts.Interval, log)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "ledger-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1/ledger", func(r chi.Router) {
		// Batch routes
		r.Route("/batches", func(r chi.Router) {
			r.Get("/", batchHandler.List)
			r.Post("/", batchHandler.Upsert)
			r.Get("/low-stock", batchHandler.LowStock)
			r.Get("/{id}", batchHandler.Get)
			r.Put("/{id}", batchHandler.Update)
			r.Delete("/{id}", batchHandler.Delete)
			r.Get("/{id}/available", batchHandler.Available)
			r.Get("/{id}/purchases", purchaseHandler.ListByBatch)
		})

		// Item routes
		r.Route("/items/{name}", func(r chi.Router) {
			r.Get("/batches", batchHandler.ListByItem)
			r.Get("/candidates", batchHandler.Candidates)
		})

		// Visit routes
		r.Route("/visits", func(r chi.Router) {
			r.Post("/", visitHandler.Create)
			r.Get("/{id}", visitHandler.Get)
			r.Post("/{id}/appointments", visitHandler.CreateAppointments)
			r.Get("/{id}/appointments", visitHandler.ListAppointments)
			r.Post("/{id}/prescriptions", visitHandler.CreatePrescription)
			r.Get("/{id}/prescriptions", visitHandler.ListPrescriptions)
		})
		r.Get("/pets/{id}/visits", visitHandler.ListByPet)
		r.Get("/reasons", visitHandler.ListReasons)

		// Purchase routes
		r.Post("/purchases", purchaseHandler.Create)

		// Alerts and reports
		r.Get("/alerts", alertHandler.Fetch)
		r.Get("/reports/summary", reportHandler.Summary)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop the alert scheduler
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/automas/booking-engine/internal/config"
	"github.com/automas/booking-engine/internal/database"
	"github.com/automas/booking-engine/internal/gateway"
	"github.com/automas/booking-engine/internal/handlers"
	"github.com/automas/booking-engine/internal/services"
	"github.com/automas/booking-engine/internal/utils"
	"github.com/automas/booking-engine/pkg/jwt"
	"github.com/automas/booking-engine/pkg/sms"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Automas booking engine")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(schemaCtx, db.DB); err != nil {
		schemaCancel()
		logger.Fatalf("Failed to apply database schema: %v", err)
	}
	schemaCancel()
	logger.Info("Database connection established")

	// Repositories
	handoffRepository := database.NewHandoffRepository(db.DB)
	paymentEventRepository := database.NewPaymentEventRepository(db.DB, logger)

	// Upstream clients
	backendURLs, err := gateway.NewURLBuilder(cfg.Backend.Profile, cfg.Backend.DevBaseURL, cfg.Backend.ProxyURL)
	if err != nil {
		logger.Fatalf("Failed to configure backend: %v", err)
	}
	actions := gateway.NewActionClient(gateway.NewClient(backendURLs, cfg.Backend.Token, cfg.Backend.Timeout, logger))
	registry := gateway.NewClient(gateway.DirectURL{Base: cfg.Registry.URL}, cfg.Registry.Token, cfg.Registry.Timeout, logger)
	paymentClient := gateway.NewClient(gateway.DirectURL{Base: cfg.Payment.BaseURL}, cfg.Payment.Token, cfg.Payment.Timeout, logger)

	// SMS gateway
	var smsGateway sms.Gateway
	if cfg.SMS.Mode == "production" {
		smsGateway = sms.NewHTTPGateway(sms.HTTPConfig{
			APIURL:   cfg.SMS.APIURL,
			Username: cfg.SMS.Username,
			Password: cfg.SMS.Password,
			Mask:     cfg.SMS.Mask,
		})
		logger.Info("SMS gateway: HTTP API")
	} else {
		smsGateway = sms.NewLogGateway(logger)
		logger.Info("SMS gateway: log only (dev mode)")
	}

	// Initialize services
	logger.Info("Initializing services...")
	handoffKey, err := utils.ParseKey(cfg.Handoff.EncryptionKey)
	if err != nil {
		logger.Fatalf("Invalid handoff encryption key: %v", err)
	}
	serviceNames, err := services.LoadServiceNames(cfg.Catalog.ServiceNamesFile)
	if err != nil {
		logger.Fatalf("Failed to load service names: %v", err)
	}

	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	handoffService := services.NewHandoffService(handoffRepository, handoffKey, cfg.Handoff.Retention, logger)
	vehicleService := services.NewVehicleService(registry, cfg.Backend.Client, logger)
	catalogService := services.NewCatalogService(actions, serviceNames, cfg.Backend.Client, logger)
	scheduleService := services.NewScheduleService(actions, logger)
	reservationService := services.NewReservationService(actions, cfg.Backend.Client, logger)
	paymentGateway := services.NewPaymentGatewayService(paymentClient, &cfg.Payment, paymentEventRepository, logger)
	paymentOrchestrator := services.NewPaymentOrchestrator(
		paymentGateway,
		handoffService,
		paymentEventRepository,
		cfg.Server.PublicBaseURL,
		cfg.Payment.PollAttempts,
		cfg.Payment.PollInterval,
		logger,
	)
	alertService := services.NewAlertService(smsGateway, cfg.SMS.SupportPhone, logger)
	outcomeService := services.NewOutcomeService(handoffService, paymentGateway, reservationService, alertService, paymentEventRepository, &cfg.Outcome, logger)
	receiptService := services.NewReceiptService("Automas")

	wizardService := services.NewWizardService(
		services.NewWizardStore(cfg.Wizard.SessionTTL),
		vehicleService,
		catalogService,
		scheduleService,
		reservationService,
		paymentOrchestrator,
		logger,
	)

	// Scheduled maintenance
	cronService := services.NewCronService(handoffService, wizardService, cfg.Handoff.CleanupSchedule, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	// Initialize handlers
	router := newRouter(cfg, logger, jwtService, routeHandlers{
		health:   handlers.NewHealthHandler(db, version),
		wizard:   handlers.NewWizardHandler(wizardService, logger),
		catalog:  handlers.NewCatalogHandler(catalogService, logger),
		payments: handlers.NewPaymentHandler(paymentOrchestrator, logger),
		outcomes: handlers.NewOutcomeHandler(outcomeService, receiptService, paymentGateway, cfg.Outcome, logger),
		admin:    handlers.NewAdminHandler(paymentEventRepository, handoffService, catalogService, cronService, logger),
	})

	// Create HTTP server. No write timeout: the pending page streams for minutes.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	logger.Info("Stopping cron service...")
	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

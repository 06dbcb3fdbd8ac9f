package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"

	"pickpoint/internal/clock"
	"pickpoint/internal/config"
	"pickpoint/internal/database"
	"pickpoint/internal/handlers"
	"pickpoint/internal/ids"
	"pickpoint/internal/logging"
	"pickpoint/internal/metrics"
	"pickpoint/internal/migrations"
	"pickpoint/internal/redis"
	"pickpoint/internal/repository"
	"pickpoint/internal/services"
	"pickpoint/pkg/whatsapp"
)

type stores struct {
	packages  repository.PackageRepository
	locations repository.LocationRepository
	customers repository.CustomerRepository
	users     repository.UserRepository
}

func main() {
	cfg := config.Load()

	logCfg := logging.DefaultConfig("pickpoint")
	logCfg.Level = cfg.LogLevel
	logger := logging.New(logCfg)
	logger.SetDefault()

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.WhatsAppWebhookSecret == "" {
		logger.Warn("WHATSAPP_WEBHOOK_SECRET not set, webhook accepts unsigned requests")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthChecks := map[string]handlers.HealthCheck{}

	var st stores
	switch cfg.StorageDriver {
	case "memory":
		logger.Warn("Using in-memory storage, data is lost on restart")
		st = stores{
			packages:  repository.NewMemoryPackageRepository(),
			locations: repository.NewMemoryLocationRepository(),
			customers: repository.NewMemoryCustomerRepository(),
			users:     repository.NewMemoryUserRepository(),
		}
	default:
		db, err := database.Initialize(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		logger.Info("Database connected and migrated")
		healthChecks["database"] = database.Ping(db)
		st = stores{
			packages:  repository.NewPackageRepository(db),
			locations: repository.NewLocationRepository(db),
			customers: repository.NewCustomerRepository(db),
			users:     repository.NewUserRepository(db),
		}
	}

	redisURL := cfg.RedisURL
	if cfg.StorageDriver == "memory" {
		mr, err := miniredis.Run()
		if err != nil {
			return err
		}
		defer mr.Close()
		redisURL = "redis://" + mr.Addr()
	}
	redisClient, err := redis.Initialize(redisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	healthChecks["redis"] = redisClient.Ping

	m := metrics.New()
	clk := clock.Real{}

	var notifier services.Notifier
	if cfg.WhatsAppEnabled() {
		notifier = whatsapp.NewClient(cfg.WhatsAppAPIURL, cfg.WhatsAppUsername, cfg.WhatsAppPassword, cfg.WhatsAppPath)
	} else {
		logger.Warn("WHATSAPP_API_URL not set, notifications disabled")
	}
	notifications := services.NewNotificationService(notifier, services.DefaultNotificationConfig(), m, logger)

	packageService := services.NewPackageService(services.PackageServiceDeps{
		Packages:      st.packages,
		Locations:     st.locations,
		Customers:     st.customers,
		Notifications: notifications,
		Clock:         clk,
		IDs:           ids.UUID{},
		Metrics:       m,
		Logger:        logger,
	})
	locationService := services.NewLocationService(st.locations, ids.UUID{}, logger)
	customerService := services.NewCustomerService(st.customers, st.locations, clk, ids.UUID{}, cfg.MembershipDays, m, logger)
	paymentLinkService := services.NewPaymentLinkService(redisClient, packageService, st.packages, notifications, clk, ids.UUID{},
		services.PaymentLinkConfig{TTL: cfg.PaymentLinkTTL, BaseURL: cfg.PaymentLinkBaseURL}, m, logger)
	reportService := services.NewReportService(st.packages, clk)
	reminderService := services.NewReminderService(packageService, st.locations, redisClient, notifications, clk, cfg.ReminderAfterDays, logger)
	userService := services.NewUserService(st.users, logger)

	seedCfg := migrations.SeedConfig{
		Path:          cfg.SeedPath,
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
	}
	if err := migrations.Seed(ctx, seedCfg, locationService, userService, logger); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	router := handlers.SetupRouter(handlers.RouterDeps{
		API:          handlers.NewAPIHandler(packageService, locationService, customerService, paymentLinkService, logger),
		Admin:        handlers.NewAdminHandler(packageService, locationService, reportService, reminderService, logger),
		WhatsApp:     handlers.NewWhatsAppHandler(notifications, packageService, customerService, paymentLinkService, cfg.WhatsAppWebhookSecret, clk, logger),
		Users:        userService,
		Metrics:      m,
		Logger:       logger,
		HealthChecks: healthChecks,
	})

	go reminderService.Start(ctx, cfg.ReminderInterval)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "port", cfg.ServerPort, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

package main

import (
	"context"
	"flag"
	"os"

	"pickpoint/internal/config"
	"pickpoint/internal/database"
	"pickpoint/internal/ids"
	"pickpoint/internal/logging"
	"pickpoint/internal/migrations"
	"pickpoint/internal/models"
	"pickpoint/internal/repository"
	"pickpoint/internal/services"
)

// Creates the schema and seeds locations plus the admin account.
// Run with -reset to drop every table first.
func main() {
	reset := flag.Bool("reset", false, "drop all tables before migrating")
	flag.Parse()

	cfg := config.Load()
	logger := logging.New(logging.DefaultConfig("pickpoint-init-db"))

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}

	if *reset {
		logger.Warn("Dropping existing tables")
		if err := db.Migrator().DropTable(&models.Package{}, &models.Customer{}, &models.Location{}, &models.User{}); err != nil {
			logger.WithError(err).Error("Failed to drop tables")
			os.Exit(1)
		}
		if err := database.AutoMigrate(db); err != nil {
			logger.WithError(err).Error("Failed to migrate database")
			os.Exit(1)
		}
	}

	locations := services.NewLocationService(repository.NewLocationRepository(db), ids.UUID{}, logger)
	users := services.NewUserService(repository.NewUserRepository(db), logger)

	seedCfg := migrations.SeedConfig{
		Path:          cfg.SeedPath,
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
	}
	if err := migrations.Seed(context.Background(), seedCfg, locations, users, logger); err != nil {
		logger.WithError(err).Error("Failed to seed database")
		os.Exit(1)
	}

	logger.Info("Database initialized")
}

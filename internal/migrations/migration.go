package migrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"pickpoint/internal/apperrors"
	"pickpoint/internal/logging"
	"pickpoint/internal/models"
	"pickpoint/internal/services"
)

type SeedConfig struct {
	Path          string
	AdminUsername string
	AdminPassword string
}

type seedFile struct {
	Locations []any `yaml:"locations"`
}

// LoadLocations reads location seeds from YAML. Pricing blocks go through the
// same decoder as API payloads so malformed rates are caught the same way.
func LoadLocations(r io.Reader) ([]*models.Location, error) {
	var file seedFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	raw, err := json.Marshal(file.Locations)
	if err != nil {
		return nil, fmt.Errorf("convert seed file: %w", err)
	}

	var locs []*models.Location
	if err := json.Unmarshal(raw, &locs); err != nil {
		return nil, fmt.Errorf("decode seed locations: %w", err)
	}
	return locs, nil
}

// Seed creates the configured locations and admin account. Existing rows are
// left untouched so restarts never overwrite edits made through the API.
func Seed(ctx context.Context, cfg SeedConfig, locations services.LocationService, users services.UserService, logger *logging.Logger) error {
	logger = logger.WithComponent("seed")

	if cfg.Path != "" {
		f, err := os.Open(cfg.Path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Warn("Seed file not found, skipping locations", "path", cfg.Path)
		case err != nil:
			return fmt.Errorf("open seed file: %w", err)
		default:
			defer f.Close()
			if err := seedLocations(ctx, f, locations, logger); err != nil {
				return err
			}
		}
	}

	if err := users.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}
	return nil
}

func seedLocations(ctx context.Context, r io.Reader, locations services.LocationService, logger *logging.Logger) error {
	locs, err := LoadLocations(r)
	if err != nil {
		return err
	}

	created := 0
	for _, loc := range locs {
		if _, err := locations.Create(ctx, loc); err != nil {
			if apperrors.CodeOf(err) == apperrors.CodeConflict {
				continue
			}
			return fmt.Errorf("seed location %q: %w", loc.ID, err)
		}
		created++
	}

	logger.Info("Locations seeded", "total", len(locs), "created", created)
	return nil
}

package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"pickpoint/internal/apperrors"
	"pickpoint/internal/ids"
	"pickpoint/internal/logging"
	"pickpoint/internal/models"
	"pickpoint/internal/repository"
)

type LocationService interface {
	Create(ctx context.Context, loc *models.Location) (*models.Location, error)
	Update(ctx context.Context, id string, loc *models.Location) (*models.Location, error)
	Get(ctx context.Context, id string) (*models.Location, error)
	List(ctx context.Context) ([]*models.Location, error)
}

type locationService struct {
	locations repository.LocationRepository
	ids       ids.Generator
	logger    *logging.Logger
}

func NewLocationService(locations repository.LocationRepository, idGen ids.Generator, logger *logging.Logger) LocationService {
	if idGen == nil {
		idGen = ids.UUID{}
	}
	return &locationService{locations: locations, ids: idGen, logger: logger.WithComponent("locations")}
}

func (s *locationService) Create(ctx context.Context, loc *models.Location) (*models.Location, error) {
	if err := validateLocation(loc); err != nil {
		return nil, err
	}
	if loc.ID == "" {
		loc.ID = s.ids.NewID()
	}

	if err := s.locations.Create(ctx, loc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("location already exists").WithDetail("id", loc.ID)
		}
		return nil, apperrors.Internal(err)
	}

	s.logger.Audit(ctx, "create", "location", loc.ID, map[string]any{"pricing": loc.Pricing.Kind})
	return loc, nil
}

// Update replaces the location configuration. Packages already picked keep
// their frozen fees; stored ones are priced with the new schema from now on.
func (s *locationService) Update(ctx context.Context, id string, loc *models.Location) (*models.Location, error) {
	loc.ID = id
	if err := validateLocation(loc); err != nil {
		return nil, err
	}

	if err := s.locations.Update(ctx, loc); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("location", id)
		}
		return nil, apperrors.Internal(err)
	}

	s.logger.Audit(ctx, "update", "location", id, map[string]any{"pricing": loc.Pricing.Kind})
	return s.Get(ctx, id)
}

func (s *locationService) Get(ctx context.Context, id string) (*models.Location, error) {
	loc, err := s.locations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("location", id)
		}
		return nil, apperrors.Internal(err)
	}
	return loc, nil
}

func (s *locationService) List(ctx context.Context) ([]*models.Location, error) {
	locs, err := s.locations.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return locs, nil
}

// validateLocation is strict: a misconfigured schema is only tolerated when it
// is already stored, never accepted on write.
func validateLocation(loc *models.Location) error {
	loc.Name = strings.TrimSpace(loc.Name)
	if loc.Name == "" {
		return apperrors.Validation("name is required")
	}
	if problems := loc.Pricing.Problems(); len(problems) > 0 {
		err := apperrors.Validation("pricing schema is invalid")
		err.Code = apperrors.CodeInvalidPricing
		for i, p := range problems {
			err.WithDetail("problem"+strconv.Itoa(i+1), p)
		}
		return err
	}
	if loc.DeliveryFee < 0 || loc.MembershipFee < 0 {
		return apperrors.Validation("fees must not be negative")
	}
	return nil
}

package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"pickpoint/internal/models"
)

type LocationRepository interface {
	Create(ctx context.Context, loc *models.Location) error
	Update(ctx context.Context, loc *models.Location) error
	GetByID(ctx context.Context, id string) (*models.Location, error)
	List(ctx context.Context) ([]*models.Location, error)
}

type locationRepository struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) LocationRepository {
	return &locationRepository{db: db}
}

func (r *locationRepository) Create(ctx context.Context, loc *models.Location) error {
	if err := r.db.WithContext(ctx).Create(loc).Error; err != nil {
		return fmt.Errorf("create location %s: %w", loc.ID, translate(err))
	}
	return nil
}

func (r *locationRepository) Update(ctx context.Context, loc *models.Location) error {
	res := r.db.WithContext(ctx).Model(&models.Location{ID: loc.ID}).Select("*").Omit("created_at").Updates(loc)
	if res.Error != nil {
		return fmt.Errorf("update location %s: %w", loc.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *locationRepository) GetByID(ctx context.Context, id string) (*models.Location, error) {
	var loc models.Location
	if err := r.db.WithContext(ctx).First(&loc, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &loc, nil
}

func (r *locationRepository) List(ctx context.Context) ([]*models.Location, error) {
	var locs []*models.Location
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&locs).Error; err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return locs, nil
}

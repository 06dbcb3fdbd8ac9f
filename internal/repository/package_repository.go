package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"pickpoint/internal/models"
)

type PackageFilter struct {
	LocationID     string
	RecipientPhone string
	Status         models.PackageStatus
	// ArrivedBefore keeps packages that arrived strictly before the instant.
	ArrivedBefore *time.Time
}

type RevenueFilter struct {
	LocationID string
	From       time.Time
	To         time.Time
}

type RevenueSummary struct {
	FeeTotal  int64 `json:"feeTotal"`
	Payments  int64 `json:"payments"`
	Picked    int64 `json:"picked"`
	Destroyed int64 `json:"destroyed"`
}

type PackageRepository interface {
	Create(ctx context.Context, pkg *models.Package) error
	GetByID(ctx context.Context, id string) (*models.Package, error)
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Package, error)
	List(ctx context.Context, filter PackageFilter) ([]*models.Package, error)
	// UpdatePackage applies patch only if the stored row still matches its
	// expectations and returns the updated package.
	UpdatePackage(ctx context.Context, id string, patch models.PackagePatch) (*models.Package, error)
	SetNotificationStatus(ctx context.Context, id string, status models.NotificationStatus) error
	Delete(ctx context.Context, id string) error
	SumRevenue(ctx context.Context, filter RevenueFilter) (*RevenueSummary, error)
}

type packageRepository struct {
	db *gorm.DB
}

func NewPackageRepository(db *gorm.DB) PackageRepository {
	return &packageRepository{db: db}
}

func (r *packageRepository) Create(ctx context.Context, pkg *models.Package) error {
	pkg.TrackingNumber = models.NormalizeTrackingNumber(pkg.TrackingNumber)
	if err := r.db.WithContext(ctx).Create(pkg).Error; err != nil {
		return fmt.Errorf("create package %s: %w", pkg.TrackingNumber, translate(err))
	}
	return nil
}

func (r *packageRepository) GetByID(ctx context.Context, id string) (*models.Package, error) {
	var pkg models.Package
	if err := r.db.WithContext(ctx).First(&pkg, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &pkg, nil
}

func (r *packageRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Package, error) {
	var pkg models.Package
	err := r.db.WithContext(ctx).
		First(&pkg, "tracking_number = ?", models.NormalizeTrackingNumber(trackingNumber)).Error
	if err != nil {
		return nil, translate(err)
	}
	return &pkg, nil
}

func (r *packageRepository) List(ctx context.Context, filter PackageFilter) ([]*models.Package, error) {
	q := r.db.WithContext(ctx).Model(&models.Package{})
	if filter.LocationID != "" {
		q = q.Where("location_id = ?", filter.LocationID)
	}
	if filter.RecipientPhone != "" {
		q = q.Where("recipient_phone = ?", filter.RecipientPhone)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.ArrivedBefore != nil {
		q = q.Where("arrived_at < ?", *filter.ArrivedBefore)
	}

	var pkgs []*models.Package
	if err := q.Order("arrived_at ASC, id ASC").Find(&pkgs).Error; err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	return pkgs, nil
}

func (r *packageRepository) UpdatePackage(ctx context.Context, id string, patch models.PackagePatch) (*models.Package, error) {
	q := r.db.WithContext(ctx).Model(&models.Package{}).
		Where("id = ? AND status = ?", id, string(patch.ExpectStatus))
	if patch.ExpectUnpaid {
		q = q.Where("fee_paid = 0")
	}

	res := q.Updates(patch.Columns())
	if res.Error != nil {
		return nil, fmt.Errorf("update package %s: %w", id, res.Error)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		if err := patch.Check(current); err != nil {
			return nil, err
		}
		return nil, models.ErrConflict
	}
	return current, nil
}

func (r *packageRepository) SetNotificationStatus(ctx context.Context, id string, status models.NotificationStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Package{}).
		Where("id = ?", id).
		Update("notification_status", string(status))
	if res.Error != nil {
		return fmt.Errorf("set notification status %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *packageRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Package{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete package %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *packageRepository) SumRevenue(ctx context.Context, filter RevenueFilter) (*RevenueSummary, error) {
	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Package{})
		if filter.LocationID != "" {
			q = q.Where("location_id = ?", filter.LocationID)
		}
		return q
	}

	var summary RevenueSummary
	err := scoped().
		Select("COALESCE(SUM(fee_paid), 0) AS fee_total, COUNT(*) AS payments").
		Where("fee_paid > 0 AND payment_timestamp >= ? AND payment_timestamp < ?", filter.From, filter.To).
		Scan(&summary).Error
	if err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}

	if err := scoped().
		Where("status = ? AND picked_at >= ? AND picked_at < ?", string(models.StatusPicked), filter.From, filter.To).
		Count(&summary.Picked).Error; err != nil {
		return nil, fmt.Errorf("count picked packages: %w", err)
	}
	if err := scoped().
		Where("status = ? AND destroyed_at >= ? AND destroyed_at < ?", string(models.StatusDestroyed), filter.From, filter.To).
		Count(&summary.Destroyed).Error; err != nil {
		return nil, fmt.Errorf("count destroyed packages: %w", err)
	}
	return &summary, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pickpoint/internal/models"
)

type CustomerRepository interface {
	GetByPhone(ctx context.Context, phone string) (*models.Customer, error)
	// GetByPhones returns the customers found, keyed by phone. Unknown phones
	// are absent from the map.
	GetByPhones(ctx context.Context, phones []string) (map[string]*models.Customer, error)
	// Save inserts a new customer or updates the name of an existing one.
	// Membership is only changed through ExtendMembership.
	Save(ctx context.Context, customer *models.Customer) error
	// ExtendMembership writes customer's membership only while the stored row
	// still carries customer.Version, then bumps the version. A customer with
	// Version 0 is inserted. ErrStale means another writer got there first.
	ExtendMembership(ctx context.Context, customer *models.Customer) error
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) GetByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "phone_number = ?", phone).Error; err != nil {
		return nil, translate(err)
	}
	return &customer, nil
}

func (r *customerRepository) GetByPhones(ctx context.Context, phones []string) (map[string]*models.Customer, error) {
	out := make(map[string]*models.Customer, len(phones))
	if len(phones) == 0 {
		return out, nil
	}

	var customers []*models.Customer
	if err := r.db.WithContext(ctx).Where("phone_number IN ?", phones).Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("get customers by phone: %w", err)
	}
	for _, c := range customers {
		out[c.PhoneNumber] = c
	}
	return out, nil
}

func (r *customerRepository) Save(ctx context.Context, customer *models.Customer) error {
	if customer.Version == 0 {
		customer.Version = 1
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(customer).Error
	if err != nil {
		return fmt.Errorf("save customer %s: %w", customer.PhoneNumber, translate(err))
	}
	return nil
}

func (r *customerRepository) ExtendMembership(ctx context.Context, customer *models.Customer) error {
	db := r.db.WithContext(ctx)

	// First purchase: the insert itself is the guard
	if customer.Version == 0 {
		customer.Version = 1
		res := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "phone_number"}},
			DoNothing: true,
		}).Create(customer)
		if res.Error != nil {
			customer.Version = 0
			return fmt.Errorf("insert member %s: %w", customer.PhoneNumber, translate(res.Error))
		}
		if res.RowsAffected == 0 {
			customer.Version = 0
			return ErrStale
		}
		return nil
	}

	now := time.Now().UTC()
	res := db.Model(&models.Customer{}).
		Where("phone_number = ? AND version = ?", customer.PhoneNumber, customer.Version).
		Updates(map[string]interface{}{
			"is_member":         customer.IsMember,
			"membership_expiry": customer.MembershipExpiry,
			"version":           customer.Version + 1,
			"updated_at":        now,
		})
	if res.Error != nil {
		return fmt.Errorf("extend membership %s: %w", customer.PhoneNumber, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	customer.Version++
	customer.UpdatedAt = now
	return nil
}

package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"pickpoint/internal/apperrors"
	"pickpoint/internal/clock"
	"pickpoint/internal/ids"
	"pickpoint/internal/logging"
	"pickpoint/internal/metrics"
	"pickpoint/internal/models"
	"pickpoint/internal/repository"
	"pickpoint/pkg/whatsapp"
)

const maxMembershipAttempts = 5

type MembershipReceipt struct {
	Customer  *models.Customer `json:"customer"`
	Fee       int64            `json:"fee"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

type CustomerService interface {
	Get(ctx context.Context, phone string) (*models.Customer, error)
	Upsert(ctx context.Context, phone, name string) (*models.Customer, error)
	PurchaseMembership(ctx context.Context, phone, locationID string) (*MembershipReceipt, error)
}

type customerService struct {
	customers      repository.CustomerRepository
	locations      repository.LocationRepository
	clock          clock.Clock
	ids            ids.Generator
	membershipDays int
	metrics        *metrics.Metrics
	logger         *logging.Logger
}

func NewCustomerService(customers repository.CustomerRepository, locations repository.LocationRepository, clk clock.Clock, idGen ids.Generator, membershipDays int, m *metrics.Metrics, logger *logging.Logger) CustomerService {
	if clk == nil {
		clk = clock.Real{}
	}
	if idGen == nil {
		idGen = ids.UUID{}
	}
	if membershipDays <= 0 {
		membershipDays = 30
	}
	return &customerService{
		customers:      customers,
		locations:      locations,
		clock:          clk,
		ids:            idGen,
		membershipDays: membershipDays,
		metrics:        m,
		logger:         logger.WithComponent("customers"),
	}
}

func (s *customerService) Get(ctx context.Context, phone string) (*models.Customer, error) {
	phone = whatsapp.NormalizePhone(phone)
	c, err := s.customers.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("customer", phone)
		}
		return nil, apperrors.Internal(err)
	}
	return c, nil
}

func (s *customerService) Upsert(ctx context.Context, phone, name string) (*models.Customer, error) {
	c, err := s.load(ctx, phone)
	if err != nil {
		return nil, err
	}
	c.Name = strings.TrimSpace(name)

	if err := s.customers.Save(ctx, c); err != nil {
		return nil, apperrors.Internal(err)
	}
	return c, nil
}

// PurchaseMembership extends from the later of now and the current expiry, so
// renewing early never loses paid days.
func (s *customerService) PurchaseMembership(ctx context.Context, phone, locationID string) (*MembershipReceipt, error) {
	loc, err := s.locations.GetByID(ctx, locationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("location", locationID)
		}
		return nil, apperrors.Internal(err)
	}
	if !loc.EnableMembership {
		return nil, apperrors.New(apperrors.CodeMembershipDisabled, "location does not offer membership", http.StatusUnprocessableEntity).
			WithDetail("locationId", locationID)
	}

	// Re-read and retry when another purchase committed first.
	var (
		c      *models.Customer
		expiry time.Time
	)
	for attempt := 1; ; attempt++ {
		c, err = s.load(ctx, phone)
		if err != nil {
			return nil, err
		}

		now := s.clock.Now()
		start := now
		if c.IsActiveMember(now) {
			start = *c.MembershipExpiry
		}
		expiry = start.AddDate(0, 0, s.membershipDays)
		c.IsMember = true
		c.MembershipExpiry = &expiry

		err = s.customers.ExtendMembership(ctx, c)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrStale) {
			return nil, apperrors.Internal(err)
		}
		if attempt == maxMembershipAttempts {
			return nil, apperrors.Conflict("membership changed concurrently, please retry").
				WithDetail("phone", c.PhoneNumber)
		}
		s.logger.Debug("Membership write lost a race, retrying", "phone", c.PhoneNumber, "attempt", attempt)
	}

	if s.metrics != nil {
		s.metrics.MembershipsPurchased.Inc()
	}
	s.logger.Audit(ctx, "purchase_membership", "customer", c.PhoneNumber, map[string]any{
		"locationId": locationID,
		"fee":        loc.MembershipFee,
		"expiresAt":  expiry,
	})
	return &MembershipReceipt{Customer: c, Fee: loc.MembershipFee, ExpiresAt: expiry}, nil
}

func (s *customerService) load(ctx context.Context, phone string) (*models.Customer, error) {
	phone = whatsapp.NormalizePhone(phone)
	if len(phone) < 9 {
		return nil, apperrors.Validation("phone is not a valid phone number")
	}

	c, err := s.customers.GetByPhone(ctx, phone)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.Customer{ID: s.ids.NewID(), PhoneNumber: phone}, nil
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return c, nil
}

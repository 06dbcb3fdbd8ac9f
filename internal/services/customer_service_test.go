package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pickpoint/internal/apperrors"
	"pickpoint/internal/ids"
	"pickpoint/internal/models"
	"pickpoint/internal/repository"
)

func newCustomerService(f *fixture) CustomerService {
	return NewCustomerService(f.customers, f.locations, f.clock, ids.NewSequence("cus"), 30, f.metrics, f.logger)
}

func TestPurchaseMembership_RequiresEnabledLocation(t *testing.T) {
	f := newFixture(t)
	f.addLocation(t, "loc-1", models.FlatPricing(1000, 0))
	svc := newCustomerService(f)

	_, err := svc.PurchaseMembership(context.Background(), "081234567890", "loc-1")
	assert.Equal(t, apperrors.CodeMembershipDisabled, apperrors.CodeOf(err))

	_, err = svc.PurchaseMembership(context.Background(), "081234567890", "missing")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestPurchaseMembership_ExtendsFromLaterOfNowAndExpiry(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.locations.Create(context.Background(), &models.Location{
		ID: "loc-1", Name: "Tower A", Pricing: models.FlatPricing(1000, 0),
		EnableMembership: true, MembershipFee: 50000,
	}))
	svc := newCustomerService(f)

	receipt, err := svc.PurchaseMembership(context.Background(), "081234567890", "loc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50000), receipt.Fee)
	assert.Equal(t, t0.AddDate(0, 0, 30), receipt.ExpiresAt)
	assert.Equal(t, "6281234567890", receipt.Customer.PhoneNumber)
	assert.True(t, receipt.Customer.IsActiveMember(f.clock.Now()))

	// Renewing ten days in stacks on the remaining twenty.
	f.clock.Advance(10 * 24 * time.Hour)
	receipt, err = svc.PurchaseMembership(context.Background(), "6281234567890", "loc-1")
	require.NoError(t, err)
	assert.Equal(t, t0.AddDate(0, 0, 60), receipt.ExpiresAt)
	assert.Equal(t, "cus-1", receipt.Customer.ID)

	// After expiry the new period starts now.
	f.clock.Set(t0.AddDate(0, 0, 90))
	receipt, err = svc.PurchaseMembership(context.Background(), "6281234567890", "loc-1")
	require.NoError(t, err)
	assert.Equal(t, t0.AddDate(0, 0, 120), receipt.ExpiresAt)

	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.MembershipsPurchased))
}

// slowCustomers widens the gap between read and write.
type slowCustomers struct {
	repository.CustomerRepository
	delay time.Duration
}

func (r slowCustomers) GetByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	c, err := r.CustomerRepository.GetByPhone(ctx, phone)
	time.Sleep(r.delay)
	return c, err
}

func TestPurchaseMembership_ConcurrentPurchasesBothCount(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.locations.Create(context.Background(), &models.Location{
		ID: "loc-1", Name: "Tower A", Pricing: models.FlatPricing(1000, 0),
		EnableMembership: true, MembershipFee: 50000,
	}))
	customers := slowCustomers{CustomerRepository: f.customers, delay: 20 * time.Millisecond}
	svc := NewCustomerService(customers, f.locations, f.clock, ids.NewSequence("cus"), 30, f.metrics, f.logger)

	for _, existing := range []bool{false, true} {
		phone := "081234567890"
		want := t0.AddDate(0, 0, 60)
		if existing {
			phone = "081298765432"
			require.NoError(t, f.customers.Save(context.Background(), &models.Customer{ID: "c-x", PhoneNumber: "6281298765432"}))
		}

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.PurchaseMembership(context.Background(), phone, "loc-1")
			}(i)
		}
		wg.Wait()
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		got, err := svc.Get(context.Background(), phone)
		require.NoError(t, err)
		assert.Equal(t, want, *got.MembershipExpiry, "existing=%v", existing)
	}
	assert.Equal(t, 4.0, testutil.ToFloat64(f.metrics.MembershipsPurchased))
}

func TestPurchaseMembership_MakesStoredPackagesFree(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.locations.Create(context.Background(), &models.Location{
		ID: "loc-1", Name: "Tower A", Pricing: models.FlatPricing(1000, 0), EnableMembership: true,
	}))
	f.addPackage(t, "p1", "loc-1", "6281234567890", t0)
	f.clock.Advance(72 * time.Hour)

	preview, err := f.svc.PreviewFee(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), preview.Amount)

	_, err = newCustomerService(f).PurchaseMembership(context.Background(), "081234567890", "loc-1")
	require.NoError(t, err)

	preview, err = f.svc.PreviewFee(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), preview.Amount)
}

func TestCustomer_UpsertAndGet(t *testing.T) {
	f := newFixture(t)
	svc := newCustomerService(f)

	_, err := svc.Get(context.Background(), "081234567890")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	c, err := svc.Upsert(context.Background(), "+62 812-3456-7890", " Siti ")
	require.NoError(t, err)
	assert.Equal(t, "Siti", c.Name)

	c, err = svc.Upsert(context.Background(), "081234567890", "Siti Aminah")
	require.NoError(t, err)
	assert.Equal(t, "cus-1", c.ID)

	got, err := svc.Get(context.Background(), "081234567890")
	require.NoError(t, err)
	assert.Equal(t, "Siti Aminah", got.Name)

	_, err = svc.Upsert(context.Background(), "123", "x")
	assert.Equal(t, apperrors.CodeValidationError, apperrors.CodeOf(err))
}

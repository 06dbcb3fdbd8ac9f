package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pickpoint/internal/models"
)

var arrival = time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC)

func newPackage(id, tracking string, arrived time.Time) *models.Package {
	return &models.Package{
		ID:             id,
		TrackingNumber: tracking,
		RecipientName:  "Budi",
		RecipientPhone: "6281234567890",
		Size:           models.SizeS,
		LocationID:     "loc-1",
		Status:         models.StatusArrived,
		Dates:          models.PackageDates{Arrived: arrived},
	}
}

func pickupPatch(fee int64, at time.Time) models.PackagePatch {
	status := models.StatusPicked
	return models.PackagePatch{
		ExpectStatus:     models.StatusArrived,
		ExpectUnpaid:     true,
		Status:           &status,
		FeePaid:          &fee,
		PaymentTimestamp: &at,
		PickedAt:         &at,
	}
}

func TestMemoryPackageRepository_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPackageRepository()

	require.NoError(t, repo.Create(ctx, newPackage("pkg-1", "jne123", arrival)))

	got, err := repo.GetByTrackingNumber(ctx, "JnE123")
	require.NoError(t, err)
	assert.Equal(t, "pkg-1", got.ID)
	assert.Equal(t, "JNE123", got.TrackingNumber)
	assert.Equal(t, models.NotificationPending, got.NotificationStatus)

	err = repo.Create(ctx, newPackage("pkg-2", "JNE123", arrival))
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryPackageRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPackageRepository()
	require.NoError(t, repo.Create(ctx, newPackage("pkg-1", "A1", arrival)))

	got, err := repo.GetByID(ctx, "pkg-1")
	require.NoError(t, err)
	got.Status = models.StatusDestroyed

	again, err := repo.GetByID(ctx, "pkg-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusArrived, again.Status)
}

func TestMemoryPackageRepository_ListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPackageRepository()

	require.NoError(t, repo.Create(ctx, newPackage("pkg-b", "B", arrival)))
	require.NoError(t, repo.Create(ctx, newPackage("pkg-a", "A", arrival)))
	require.NoError(t, repo.Create(ctx, newPackage("pkg-c", "C", arrival.Add(-time.Hour))))
	other := newPackage("pkg-d", "D", arrival)
	other.LocationID = "loc-2"
	require.NoError(t, repo.Create(ctx, other))

	pkgs, err := repo.List(ctx, PackageFilter{LocationID: "loc-1", Status: models.StatusArrived})
	require.NoError(t, err)
	require.Len(t, pkgs, 3)
	assert.Equal(t, "pkg-c", pkgs[0].ID)
	assert.Equal(t, "pkg-a", pkgs[1].ID)
	assert.Equal(t, "pkg-b", pkgs[2].ID)

	before := arrival
	pkgs, err = repo.List(ctx, PackageFilter{ArrivedBefore: &before})
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "pkg-c", pkgs[0].ID)
}

func TestMemoryPackageRepository_UpdateIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPackageRepository()
	require.NoError(t, repo.Create(ctx, newPackage("pkg-1", "A1", arrival)))

	pickedAt := arrival.Add(26 * time.Hour)
	updated, err := repo.UpdatePackage(ctx, "pkg-1", pickupPatch(4000, pickedAt))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPicked, updated.Status)
	assert.Equal(t, int64(4000), updated.FeePaid)

	_, err = repo.UpdatePackage(ctx, "pkg-1", pickupPatch(9000, pickedAt.Add(time.Hour)))
	assert.ErrorIs(t, err, ErrAlreadyFinalized)

	stored, err := repo.GetByID(ctx, "pkg-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4000), stored.FeePaid)
	assert.True(t, stored.Dates.Picked.Equal(pickedAt))

	_, err = repo.UpdatePackage(ctx, "missing", pickupPatch(1, pickedAt))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryPackageRepository_ConcurrentPickupWinsOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPackageRepository()
	require.NoError(t, repo.Create(ctx, newPackage("pkg-1", "A1", arrival)))

	var wins, finalized atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(fee int64) {
			defer wg.Done()
			_, err := repo.UpdatePackage(ctx, "pkg-1", pickupPatch(fee, arrival.Add(time.Hour)))
			switch {
			case err == nil:
				wins.Add(1)
			case assert.ErrorIs(t, err, ErrAlreadyFinalized):
				finalized.Add(1)
			}
		}(int64(1000 + i))
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(19), finalized.Load())
}

func TestMemoryPackageRepository_MarkPaidGuard(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPackageRepository()
	require.NoError(t, repo.Create(ctx, newPackage("pkg-1", "A1", arrival)))

	fee := int64(2500)
	paidAt := arrival.Add(time.Hour)
	patch := models.PackagePatch{ExpectStatus: models.StatusArrived, ExpectUnpaid: true, FeePaid: &fee, PaymentTimestamp: &paidAt}

	_, err := repo.UpdatePackage(ctx, "pkg-1", patch)
	require.NoError(t, err)
	_, err = repo.UpdatePackage(ctx, "pkg-1", patch)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestMemoryPackageRepository_SumRevenue(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPackageRepository()

	require.NoError(t, repo.Create(ctx, newPackage("pkg-1", "A1", arrival)))
	require.NoError(t, repo.Create(ctx, newPackage("pkg-2", "A2", arrival)))
	require.NoError(t, repo.Create(ctx, newPackage("pkg-3", "A3", arrival)))

	_, err := repo.UpdatePackage(ctx, "pkg-1", pickupPatch(3000, arrival.Add(time.Hour)))
	require.NoError(t, err)
	_, err = repo.UpdatePackage(ctx, "pkg-2", pickupPatch(0, arrival.Add(2*time.Hour)))
	require.NoError(t, err)
	destroyed := models.StatusDestroyed
	at := arrival.Add(3 * time.Hour)
	_, err = repo.UpdatePackage(ctx, "pkg-3", models.PackagePatch{ExpectStatus: models.StatusArrived, Status: &destroyed, DestroyedAt: &at})
	require.NoError(t, err)

	s, err := repo.SumRevenue(ctx, RevenueFilter{From: arrival, To: arrival.Add(24 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, int64(3000), s.FeeTotal)
	assert.Equal(t, int64(1), s.Payments)
	assert.Equal(t, int64(2), s.Picked)
	assert.Equal(t, int64(1), s.Destroyed)

	s, err = repo.SumRevenue(ctx, RevenueFilter{LocationID: "loc-2", From: arrival, To: arrival.Add(24 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.FeeTotal)
}

func TestMemoryCustomerRepository_SaveUpserts(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCustomerRepository()

	expiry := arrival.Add(30 * 24 * time.Hour)
	require.NoError(t, repo.Save(ctx, &models.Customer{ID: "c-1", PhoneNumber: "628111", Name: "Sari", IsMember: true, MembershipExpiry: &expiry}))

	// Updating the name keeps the membership.
	second := &models.Customer{ID: "c-other", PhoneNumber: "628111", Name: "Sari Dewi"}
	require.NoError(t, repo.Save(ctx, second))
	assert.Equal(t, "c-1", second.ID)
	assert.True(t, second.IsActiveMember(arrival))

	got, err := repo.GetByPhone(ctx, "628111")
	require.NoError(t, err)
	assert.Equal(t, "Sari Dewi", got.Name)
	assert.True(t, got.IsActiveMember(arrival))

	byPhone, err := repo.GetByPhones(ctx, []string{"628111", "628222"})
	require.NoError(t, err)
	assert.Len(t, byPhone, 1)
	assert.Contains(t, byPhone, "628111")
}

func TestMemoryCustomerRepository_ExtendMembershipIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCustomerRepository()
	expiry := arrival.Add(30 * 24 * time.Hour)

	first := &models.Customer{ID: "c-1", PhoneNumber: "628111", IsMember: true, MembershipExpiry: &expiry}
	require.NoError(t, repo.ExtendMembership(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	// A second first-time purchase lost the race.
	racer := &models.Customer{ID: "c-2", PhoneNumber: "628111", IsMember: true, MembershipExpiry: &expiry}
	assert.ErrorIs(t, repo.ExtendMembership(ctx, racer), ErrStale)

	loaded, err := repo.GetByPhone(ctx, "628111")
	require.NoError(t, err)
	later := expiry.Add(30 * 24 * time.Hour)
	loaded.MembershipExpiry = &later
	require.NoError(t, repo.ExtendMembership(ctx, loaded))
	assert.Equal(t, int64(2), loaded.Version)

	// first still carries version 1.
	assert.ErrorIs(t, repo.ExtendMembership(ctx, first), ErrStale)

	got, err := repo.GetByPhone(ctx, "628111")
	require.NoError(t, err)
	assert.Equal(t, later, *got.MembershipExpiry)
	assert.Equal(t, "c-1", got.ID)
}

func TestMemoryLocationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryLocationRepository()

	loc := &models.Location{ID: "loc-1", Name: "Tower A", Pricing: models.FlatPricing(2000, 0)}
	require.NoError(t, repo.Create(ctx, loc))
	assert.ErrorIs(t, repo.Create(ctx, loc), ErrDuplicate)

	loc.Pricing = models.SizePricing(5000, 7000, 10000, 1)
	require.NoError(t, repo.Update(ctx, loc))

	got, err := repo.GetByID(ctx, "loc-1")
	require.NoError(t, err)
	assert.Equal(t, models.PricingSize, got.Pricing.Kind)

	assert.ErrorIs(t, repo.Update(ctx, &models.Location{ID: "nope"}), ErrNotFound)
}

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	u := &models.User{Username: "admin", PasswordHash: "x", Role: models.Admin}
	require.NoError(t, repo.Create(ctx, u))
	assert.Equal(t, uint(1), u.ID)
	assert.ErrorIs(t, repo.Create(ctx, &models.User{Username: "admin"}), ErrDuplicate)

	got, err := repo.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.Admin, got.Role)
}

package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pickpoint/internal/models"
)

var baseTime = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func arrived(id string, at time.Time) *models.Package {
	return &models.Package{
		ID:             id,
		LocationID:     "loc-1",
		RecipientPhone: "6281234567890",
		Size:           models.SizeM,
		Status:         models.StatusArrived,
		Dates:          models.PackageDates{Arrived: at},
	}
}

func heldFor(days int) (*models.Package, time.Time) {
	return arrived("pkg-1", baseTime), baseTime.Add(time.Duration(days) * day)
}

func TestHeldDays(t *testing.T) {
	pkg := arrived("pkg-1", baseTime)

	assert.Equal(t, int64(1), HeldDays(pkg, baseTime))
	assert.Equal(t, int64(1), HeldDays(pkg, baseTime.Add(10*time.Minute)))
	assert.Equal(t, int64(1), HeldDays(pkg, baseTime.Add(day)))
	assert.Equal(t, int64(2), HeldDays(pkg, baseTime.Add(day+time.Second)))
	assert.Equal(t, int64(1), HeldDays(pkg, baseTime.Add(-time.Hour)))

	picked := baseTime.Add(2*day + time.Hour)
	pkg.Status = models.StatusPicked
	pkg.Dates.Picked = &picked
	assert.Equal(t, int64(3), HeldDays(pkg, baseTime.Add(30*day)))
}

func TestCalculateFee_Flat(t *testing.T) {
	tests := []struct {
		rate, grace int64
		days        int
		want        int64
	}{
		{2000, 0, 3, 6000},
		{2000, 0, 1, 2000},
		{2000, 1, 3, 4000},
		{2000, 3, 3, 0},
		{2000, 5, 3, 0},
	}

	for _, tt := range tests {
		pkg, now := heldFor(tt.days)
		res := CalculateFee(Input{Package: pkg, Schema: models.FlatPricing(tt.rate, tt.grace), Now: now})
		assert.Equal(t, tt.want, res.Amount, "rate=%d grace=%d days=%d", tt.rate, tt.grace, tt.days)
		assert.Empty(t, res.Warnings)
	}
}

func TestCalculateFee_Progressive(t *testing.T) {
	schema := models.ProgressivePricing(1000, 500, 0)

	pkg, now := heldFor(1)
	assert.Equal(t, int64(1000), CalculateFee(Input{Package: pkg, Schema: schema, Now: now}).Amount)

	pkg, now = heldFor(3)
	assert.Equal(t, int64(2000), CalculateFee(Input{Package: pkg, Schema: schema, Now: now}).Amount)

	withGrace := models.ProgressivePricing(1000, 500, 1)
	pkg, now = heldFor(1)
	assert.Equal(t, int64(0), CalculateFee(Input{Package: pkg, Schema: withGrace, Now: now}).Amount)

	pkg, now = heldFor(3)
	res := CalculateFee(Input{Package: pkg, Schema: withGrace, Now: now})
	assert.Equal(t, int64(1500), res.Amount)
	assert.Equal(t, int64(2), res.Breakdown.ChargeableDays)
}

func TestCalculateFee_SizeIgnoresDuration(t *testing.T) {
	schema := models.SizePricing(5000, 7000, 10000, 0)

	for _, days := range []int{1, 2, 10} {
		pkg, now := heldFor(days)
		assert.Equal(t, int64(7000), CalculateFee(Input{Package: pkg, Schema: schema, Now: now}).Amount)
	}

	pkg, now := heldFor(1)
	pkg.Size = models.SizeL
	assert.Equal(t, int64(10000), CalculateFee(Input{Package: pkg, Schema: schema, Now: now}).Amount)

	pkg.Size = "XL"
	res := CalculateFee(Input{Package: pkg, Schema: schema, Now: now})
	assert.Equal(t, int64(0), res.Amount)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnUnknownSize, res.Warnings[0].Code)
}

func TestCalculateFee_GraceGatesDurationIndependentSchemes(t *testing.T) {
	size := models.SizePricing(5000, 7000, 10000, 2)
	qty := models.QuantityPricing(1000, 500, 2)

	pkg, now := heldFor(2)
	assert.Equal(t, int64(0), CalculateFee(Input{Package: pkg, Schema: size, Now: now}).Amount)
	assert.Equal(t, int64(0), CalculateFee(Input{Package: pkg, Schema: qty, Now: now}).Amount)

	pkg, now = heldFor(3)
	assert.Equal(t, int64(7000), CalculateFee(Input{Package: pkg, Schema: size, Now: now}).Amount)
	assert.Equal(t, int64(1000), CalculateFee(Input{Package: pkg, Schema: qty, Now: now}).Amount)
}

func TestCalculateFee_QuantityOrdinal(t *testing.T) {
	schema := models.QuantityPricing(1000, 500, 0)
	pkg, now := heldFor(4)

	assert.Equal(t, int64(1000), CalculateFee(Input{Package: pkg, Schema: schema, Now: now, Ordinal: 0}).Amount)
	assert.Equal(t, int64(500), CalculateFee(Input{Package: pkg, Schema: schema, Now: now, Ordinal: 1}).Amount)
	assert.Equal(t, int64(500), CalculateFee(Input{Package: pkg, Schema: schema, Now: now, Ordinal: 5}).Amount)
}

func TestCalculateFee_MembershipOverride(t *testing.T) {
	pkg, now := heldFor(10)
	future := now.Add(day)
	past := now.Add(-time.Second)

	schemas := []models.PricingSchema{
		models.FlatPricing(2000, 0),
		models.ProgressivePricing(1000, 500, 0),
		models.SizePricing(5000, 7000, 10000, 0),
		models.QuantityPricing(1000, 500, 0),
		{Kind: models.PricingUnknown},
	}

	for _, schema := range schemas {
		member := &models.Customer{IsMember: true, MembershipExpiry: &future}
		res := CalculateFee(Input{Package: pkg, Schema: schema, Customer: member, Now: now})
		assert.Equal(t, int64(0), res.Amount, string(schema.Kind))
		assert.True(t, res.Breakdown.Member)

		expired := &models.Customer{IsMember: true, MembershipExpiry: &past}
		nonMember := CalculateFee(Input{Package: pkg, Schema: schema, Now: now})
		asExpired := CalculateFee(Input{Package: pkg, Schema: schema, Customer: expired, Now: now})
		assert.Equal(t, nonMember.Amount, asExpired.Amount, string(schema.Kind))
		assert.False(t, asExpired.Breakdown.Member)
	}
}

func TestCalculateFee_InvalidSchemaWarnsWithZero(t *testing.T) {
	pkg, now := heldFor(3)

	res := CalculateFee(Input{Package: pkg, Schema: models.PricingSchema{Kind: models.PricingUnknown}, Now: now})
	assert.Equal(t, int64(0), res.Amount)
	require.NotEmpty(t, res.Warnings)
	assert.Equal(t, WarnInvalidSchema, res.Warnings[0].Code)

	negative := models.FlatPricing(-2000, 0)
	res = CalculateFee(Input{Package: pkg, Schema: negative, Now: now})
	assert.Equal(t, int64(0), res.Amount)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnInvalidSchema, res.Warnings[0].Code)

	partly := models.ProgressivePricing(1000, -500, 0)
	res = CalculateFee(Input{Package: pkg, Schema: partly, Now: now})
	assert.Equal(t, int64(1000), res.Amount)
	assert.Len(t, res.Warnings, 1)
}

func TestCalculateFee_Idempotent(t *testing.T) {
	pkg, now := heldFor(4)
	in := Input{Package: pkg, Schema: models.ProgressivePricing(1000, 500, 1), Now: now}
	assert.Equal(t, CalculateFee(in), CalculateFee(in))
}

func TestCalculateFee_TerminalUsesTransitionTime(t *testing.T) {
	pkg := arrived("pkg-1", baseTime)
	destroyed := baseTime.Add(2 * day)
	pkg.Status = models.StatusDestroyed
	pkg.Dates.Destroyed = &destroyed

	res := CalculateFee(Input{Package: pkg, Schema: models.FlatPricing(1000, 0), Now: baseTime.Add(40 * day)})
	assert.Equal(t, int64(2000), res.Amount)
}

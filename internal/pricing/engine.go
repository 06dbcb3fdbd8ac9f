// Package pricing computes storage fees. Everything here is pure: no I/O, no
// clock reads, no errors. Configuration problems surface as warnings next to a
// safe amount.
package pricing

import (
	"fmt"
	"time"

	"pickpoint/internal/models"
)

const (
	WarnInvalidSchema = "INVALID_PRICING_SCHEMA"
	WarnUnknownSize   = "UNKNOWN_PACKAGE_SIZE"
	WarnNotCandidate  = "NOT_A_CANDIDATE"
)

const day = 24 * time.Hour

type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Input struct {
	Package  *models.Package
	Schema   models.PricingSchema
	Customer *models.Customer
	Now      time.Time
	// Ordinal is the 0-based rank among the recipient's stored packages at the
	// same location. Only QUANTITY reads it.
	Ordinal int
}

type Breakdown struct {
	Scheme         models.PricingKind `json:"scheme"`
	Days           int64              `json:"days"`
	GraceDays      int64              `json:"graceDays"`
	ChargeableDays int64              `json:"chargeableDays"`
	Ordinal        int                `json:"ordinal"`
	Rate           int64              `json:"rate"`
	Member         bool               `json:"member"`
	Frozen         bool               `json:"frozen"`
	Amount         int64              `json:"amount"`
}

type Result struct {
	Amount    int64     `json:"amount"`
	Breakdown Breakdown `json:"breakdown"`
	Warnings  []Warning `json:"warnings,omitempty"`
}

// CalculateFee prices a single package.
func CalculateFee(in Input) Result {
	res := Result{Breakdown: Breakdown{Scheme: in.Schema.Kind, Ordinal: in.Ordinal}}

	if in.Customer.IsActiveMember(in.Now) {
		res.Breakdown.Member = true
		return res
	}

	for _, p := range in.Schema.Problems() {
		res.Warnings = append(res.Warnings, Warning{Code: WarnInvalidSchema, Message: p})
	}
	schema := in.Schema.Sanitized()

	days := HeldDays(in.Package, in.Now)
	res.Breakdown.Days = days
	res.Breakdown.GraceDays = schema.GracePeriodDays
	chargeable := days - schema.GracePeriodDays
	if chargeable < 0 {
		chargeable = 0
	}
	res.Breakdown.ChargeableDays = chargeable

	var amount int64
	switch schema.Kind {
	case models.PricingFlat:
		res.Breakdown.Rate = schema.FlatRate
		amount = schema.FlatRate * chargeable

	case models.PricingProgressive:
		res.Breakdown.Rate = schema.NextDayRate
		if chargeable > 0 {
			amount = schema.FirstDayRate + schema.NextDayRate*(chargeable-1)
		}

	case models.PricingSize:
		rate, ok := sizeRate(schema, in.Package.Size)
		if !ok {
			res.Warnings = append(res.Warnings, Warning{
				Code:    WarnUnknownSize,
				Message: fmt.Sprintf("package size %q has no rate", in.Package.Size),
			})
		}
		res.Breakdown.Rate = rate
		if chargeable > 0 {
			amount = rate
		}

	case models.PricingQuantity:
		rate := schema.QtyNextRate
		if in.Ordinal <= 0 {
			rate = schema.QtyFirst
		}
		res.Breakdown.Rate = rate
		if chargeable > 0 {
			amount = rate
		}
	}

	res.Amount = amount
	res.Breakdown.Amount = amount
	return res
}

// HeldDays counts started 24h windows between arrival and the effective end,
// never less than one.
func HeldDays(pkg *models.Package, now time.Time) int64 {
	end := now
	switch pkg.Status {
	case models.StatusPicked:
		if pkg.Dates.Picked != nil {
			end = *pkg.Dates.Picked
		}
	case models.StatusDestroyed:
		if pkg.Dates.Destroyed != nil {
			end = *pkg.Dates.Destroyed
		}
	}

	elapsed := end.Sub(pkg.Dates.Arrived)
	if elapsed <= 0 {
		return 1
	}
	days := int64(elapsed / day)
	if elapsed%day != 0 {
		days++
	}
	if days < 1 {
		days = 1
	}
	return days
}

func sizeRate(s models.PricingSchema, size models.PackageSize) (int64, bool) {
	switch size {
	case models.SizeS:
		return s.SizeS, true
	case models.SizeM:
		return s.SizeM, true
	case models.SizeL:
		return s.SizeL, true
	}
	return 0, false
}

package pricing

import (
	"cmp"
	"slices"
	"time"

	"pickpoint/internal/models"
)

type Priced struct {
	Package *models.Package `json:"package"`
	Fee     int64           `json:"fee"`
	Ordinal int             `json:"ordinal"`
	Result  Result          `json:"result"`
}

type Batch struct {
	Items []Priced `json:"perPackage"`
	Total int64    `json:"total"`
}

type groupKey struct {
	locationID string
	phone      string
}

// Ordinals ranks ARRIVED packages within each (location, recipient phone)
// group by arrival time, ties broken by id. Other packages are left out.
func Ordinals(pkgs []*models.Package) map[string]int {
	groups := make(map[groupKey][]*models.Package)
	for _, p := range pkgs {
		if p.Status != models.StatusArrived {
			continue
		}
		k := groupKey{locationID: p.LocationID, phone: p.RecipientPhone}
		groups[k] = append(groups[k], p)
	}

	ordinals := make(map[string]int, len(pkgs))
	for _, group := range groups {
		slices.SortFunc(group, func(a, b *models.Package) int {
			if c := a.Dates.Arrived.Compare(b.Dates.Arrived); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
		for i, p := range group {
			ordinals[p.ID] = i
		}
	}
	return ordinals
}

// RankAndPrice prices every package of one location. Results keep the input
// order. customers is keyed by normalized phone number.
func RankAndPrice(pkgs []*models.Package, loc *models.Location, now time.Time, customers map[string]*models.Customer) Batch {
	var ordinals map[string]int
	if loc.Pricing.Kind == models.PricingQuantity {
		ordinals = Ordinals(pkgs)
	}

	batch := Batch{Items: make([]Priced, 0, len(pkgs))}
	for _, p := range pkgs {
		ordinal := ordinals[p.ID]
		res := CalculateFee(Input{
			Package:  p,
			Schema:   loc.Pricing,
			Customer: customers[p.RecipientPhone],
			Now:      now,
			Ordinal:  ordinal,
		})
		if p.Status != models.StatusArrived {
			res.Warnings = append(res.Warnings, Warning{
				Code:    WarnNotCandidate,
				Message: "package is " + string(p.Status) + " and was not ranked",
			})
		}

		batch.Items = append(batch.Items, Priced{Package: p, Fee: res.Amount, Ordinal: ordinal, Result: res})
		batch.Total += res.Amount
	}
	return batch
}

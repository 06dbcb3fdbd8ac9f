package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

type PricingKind string

const (
	PricingFlat        PricingKind = "FLAT"
	PricingProgressive PricingKind = "PROGRESSIVE"
	PricingSize        PricingKind = "SIZE"
	PricingQuantity    PricingKind = "QUANTITY"
	PricingUnknown     PricingKind = "UNKNOWN"
)

func (k PricingKind) IsValid() bool {
	switch k {
	case PricingFlat, PricingProgressive, PricingSize, PricingQuantity:
		return true
	}
	return false
}

// PricingSchema describes how a location charges for storage. Only the fields
// belonging to Kind are meaningful; GracePeriodDays applies to every kind.
type PricingSchema struct {
	Kind            PricingKind
	GracePeriodDays int64

	FlatRate int64

	FirstDayRate int64
	NextDayRate  int64

	SizeS int64
	SizeM int64
	SizeL int64

	QtyFirst    int64
	QtyNextRate int64

	// Malformed holds the names of fields that were present but not whole numbers.
	Malformed []string
}

func FlatPricing(rate, graceDays int64) PricingSchema {
	return PricingSchema{Kind: PricingFlat, FlatRate: rate, GracePeriodDays: graceDays}
}

func ProgressivePricing(firstDay, nextDay, graceDays int64) PricingSchema {
	return PricingSchema{Kind: PricingProgressive, FirstDayRate: firstDay, NextDayRate: nextDay, GracePeriodDays: graceDays}
}

func SizePricing(s, m, l, graceDays int64) PricingSchema {
	return PricingSchema{Kind: PricingSize, SizeS: s, SizeM: m, SizeL: l, GracePeriodDays: graceDays}
}

func QuantityPricing(first, next, graceDays int64) PricingSchema {
	return PricingSchema{Kind: PricingQuantity, QtyFirst: first, QtyNextRate: next, GracePeriodDays: graceDays}
}

// Rates returns the rate fields of the active kind keyed by their wire names.
func (p PricingSchema) Rates() map[string]int64 {
	switch p.Kind {
	case PricingFlat:
		return map[string]int64{"flatRate": p.FlatRate}
	case PricingProgressive:
		return map[string]int64{"firstDayRate": p.FirstDayRate, "nextDayRate": p.NextDayRate}
	case PricingSize:
		return map[string]int64{"sizeS": p.SizeS, "sizeM": p.SizeM, "sizeL": p.SizeL}
	case PricingQuantity:
		return map[string]int64{"qtyFirst": p.QtyFirst, "qtyNextRate": p.QtyNextRate}
	}
	return map[string]int64{}
}

// Problems lists every reason the schema cannot be applied as configured.
func (p PricingSchema) Problems() []string {
	var problems []string
	if !p.Kind.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown pricing scheme %q", p.Kind))
	}
	for _, field := range p.Malformed {
		problems = append(problems, fmt.Sprintf("%s is not numeric, treated as 0", field))
	}
	if p.GracePeriodDays < 0 {
		problems = append(problems, "gracePeriodDays is negative, clamped to 0")
	}
	rates := p.Rates()
	for _, name := range sortedKeys(rates) {
		if rates[name] < 0 {
			problems = append(problems, fmt.Sprintf("%s is negative, clamped to 0", name))
		}
	}
	return problems
}

// Sanitized returns a copy with every negative field clamped to 0.
func (p PricingSchema) Sanitized() PricingSchema {
	clamp := func(v *int64) {
		if *v < 0 {
			*v = 0
		}
	}
	out := p
	for _, v := range []*int64{
		&out.GracePeriodDays, &out.FlatRate, &out.FirstDayRate, &out.NextDayRate,
		&out.SizeS, &out.SizeM, &out.SizeL, &out.QtyFirst, &out.QtyNextRate,
	} {
		clamp(v)
	}
	out.Malformed = nil
	return out
}

// MarshalJSON emits the explicit kind tag alongside the legacy field set, so
// readers that discriminate on field presence keep working.
func (p PricingSchema) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"kind":            p.Kind,
		"gracePeriodDays": p.GracePeriodDays,
	}
	if p.Kind == "" {
		out["kind"] = PricingUnknown
	}
	for name, v := range p.Rates() {
		out[name] = v
	}
	return json.Marshal(out)
}

func (p *PricingSchema) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode pricing schema: %w", err)
	}

	out := PricingSchema{Kind: detectKind(raw)}
	field := func(name string, dst *int64) {
		v, ok, present := decodeRate(raw[name])
		if !present {
			return
		}
		if !ok {
			out.Malformed = append(out.Malformed, name)
			return
		}
		*dst = v
	}

	field("gracePeriodDays", &out.GracePeriodDays)
	switch out.Kind {
	case PricingFlat:
		field("flatRate", &out.FlatRate)
	case PricingProgressive:
		field("firstDayRate", &out.FirstDayRate)
		field("nextDayRate", &out.NextDayRate)
	case PricingSize:
		field("sizeS", &out.SizeS)
		field("sizeM", &out.SizeM)
		field("sizeL", &out.SizeL)
	case PricingQuantity:
		field("qtyFirst", &out.QtyFirst)
		field("qtyNextRate", &out.QtyNextRate)
	}

	*p = out
	return nil
}

// Value stores the schema as jsonb.
func (p PricingSchema) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *PricingSchema) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*p = PricingSchema{Kind: PricingUnknown}
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("scan pricing schema: unsupported type %T", value)
	}
}

func detectKind(raw map[string]json.RawMessage) PricingKind {
	if tag, ok := raw["kind"]; ok {
		var kind string
		if err := json.Unmarshal(tag, &kind); err == nil {
			k := PricingKind(strings.ToUpper(strings.TrimSpace(kind)))
			if k.IsValid() {
				return k
			}
		}
	}

	has := func(names ...string) bool {
		for _, n := range names {
			if _, ok := raw[n]; ok {
				return true
			}
		}
		return false
	}

	switch {
	case has("sizeS", "sizeM", "sizeL"):
		return PricingSize
	case has("flatRate"):
		return PricingFlat
	case has("firstDayRate", "nextDayRate"):
		return PricingProgressive
	case has("qtyFirst", "qtyNextRate"):
		return PricingQuantity
	}
	return PricingUnknown
}

// decodeRate accepts JSON numbers and numeric strings. present is false for a
// missing key or an explicit null.
func decodeRate(raw json.RawMessage) (v int64, ok bool, present bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, true, false
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return wholeRate(f)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return wholeRate(n)
		}
	}
	return 0, false, true
}

// wholeRate rejects fractions and values outside the int64 range.
func wholeRate(f float64) (v int64, ok bool, present bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false, true
	}
	return int64(f), true, true
}

func sortedKeys(m map[string]int64) []string {
	var keys []string
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

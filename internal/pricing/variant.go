package pricing

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/tierprice/internal/money"
)

// Variant is a single sellable SKU with its own prices and volume tiers.
type Variant struct {
	ID           string      `json:"id"`
	BasePrice    money.Money `json:"basePrice"`
	CurrentPrice money.Money `json:"currentPrice"`
	Cost         money.Money `json:"cost"`
	Tiers        []Tier      `json:"tiers"`
}

// Tier is a quantity band that takes DiscountPercent off the current price.
// A nil MaxQuantity means the band is open-ended.
type Tier struct {
	ID              string          `json:"id,omitempty"`
	MinQuantity     int64           `json:"minQuantity"`
	MaxQuantity     *int64          `json:"maxQuantity"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	// ResolvedPrice is a display cache. Resolution never reads it.
	ResolvedPrice money.Money `json:"resolvedPrice"`
}

// Unbounded reports whether the tier has no upper quantity limit.
func (t Tier) Unbounded() bool { return t.MaxQuantity == nil }

// Contains reports whether qty falls inside [MinQuantity, MaxQuantity].
func (t Tier) Contains(qty int64) bool {
	if qty < t.MinQuantity {
		return false
	}
	return t.MaxQuantity == nil || qty <= *t.MaxQuantity
}

// PriceFrom computes the tier's unit price from a current price.
func (t Tier) PriceFrom(current money.Money) money.Money {
	return current.PercentOff(t.DiscountPercent)
}

// IsDiscounted reports whether a sale is in effect right now. It is derived
// from live values on every call; a current price above base is valid.
func (v Variant) IsDiscounted() bool {
	c, err := v.CurrentPrice.Cmp(v.BasePrice)
	return err == nil && c < 0
}

// CheckPrices verifies the variant-level price invariants: positive base and
// current price, non-negative cost, one currency throughout.
func (v Variant) CheckPrices() error {
	if !v.BasePrice.IsPositive() || !v.CurrentPrice.IsPositive() {
		return ErrNonPositivePrice
	}
	if v.Cost.IsNegative() {
		return ErrNegativeCost
	}
	if !v.BasePrice.SameCurrency(v.CurrentPrice) || !v.BasePrice.SameCurrency(v.Cost) {
		return newError(CodeCurrencyMismatch, "base %s, current %s, cost %s",
			v.BasePrice.Currency, v.CurrentPrice.Currency, v.Cost.Currency)
	}
	return nil
}

// SortTiers returns a copy of tiers ordered by ascending MinQuantity.
func SortTiers(tiers []Tier) []Tier {
	sorted := slices.Clone(tiers)
	slices.SortStableFunc(sorted, func(a, b Tier) int {
		return cmp.Compare(a.MinQuantity, b.MinQuantity)
	})
	return sorted
}

// RefreshResolvedPrices returns a copy of the variant's tiers with every
// display cache recomputed from the live current price.
func RefreshResolvedPrices(v Variant) []Tier {
	tiers := slices.Clone(v.Tiers)
	for i := range tiers {
		tiers[i].ResolvedPrice = tiers[i].PriceFrom(v.CurrentPrice)
	}
	return tiers
}

package pricing

import (
	"fmt"

	"github.com/Simplici0/tierprice/internal/money"
)

// Resolution is the price of a quantity of one variant.
type Resolution struct {
	UnitPrice  money.Money `json:"unitPrice"`
	TotalPrice money.Money `json:"totalPrice"`
	// AppliedTier is a copy of the matching tier with a freshly computed
	// ResolvedPrice, or nil when the current price applies.
	AppliedTier      *Tier     `json:"appliedTier"`
	AppliedTierIndex *int      `json:"appliedTierIndex"`
	Warnings         []Warning `json:"warnings,omitempty"`
}

// ResolvePrice returns the unit and total price for quantity units of v.
//
// The unit price of a matching tier is always recomputed from CurrentPrice
// and the tier discount. The total is the rounded unit price times quantity.
// If more than one tier contains quantity the one with the highest
// MinQuantity wins (first by index on a tie) and a TierOverlapDetected
// warning is attached.
func ResolvePrice(v Variant, quantity int64) (Resolution, error) {
	if quantity < 1 {
		return Resolution{}, ErrInvalidQuantity
	}
	if !v.CurrentPrice.IsPositive() {
		return Resolution{}, ErrNonPositivePrice
	}

	var matches []int
	for i, t := range v.Tiers {
		if t.Contains(quantity) {
			matches = append(matches, i)
		}
	}

	if len(matches) == 0 {
		total, err := totalFor(v.CurrentPrice, quantity)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{UnitPrice: v.CurrentPrice, TotalPrice: total}, nil
	}

	chosen := matches[0]
	for _, i := range matches[1:] {
		if v.Tiers[i].MinQuantity > v.Tiers[chosen].MinQuantity {
			chosen = i
		}
	}

	tier := v.Tiers[chosen]
	if !validDiscount(tier.DiscountPercent) {
		return Resolution{}, newError(CodeInvalidDiscount, "tier %d discount %s is outside [0, 100)", chosen, tier.DiscountPercent)
	}

	unit := tier.PriceFrom(v.CurrentPrice)
	total, err := totalFor(unit, quantity)
	if err != nil {
		return Resolution{}, err
	}
	tier.ResolvedPrice = unit
	index := chosen

	res := Resolution{
		UnitPrice:        unit,
		TotalPrice:       total,
		AppliedTier:      &tier,
		AppliedTierIndex: &index,
	}
	if len(matches) > 1 {
		res.Warnings = append(res.Warnings, Warning{
			Code:        CodeTierOverlapDetected,
			TierIndices: matches,
			Message:     fmt.Sprintf("%d tiers contain quantity %d; applied tier %d", len(matches), quantity, chosen),
		})
	}
	return res, nil
}

// totalFor multiplies the rounded unit price by quantity. A total that cannot
// be represented is reported as an invalid quantity.
func totalFor(unit money.Money, quantity int64) (money.Money, error) {
	total, err := unit.Mul(quantity)
	if err != nil {
		return money.Money{}, &Error{
			Code:    CodeInvalidQuantity,
			Message: fmt.Sprintf("total for quantity %d overflows", quantity),
			cause:   err,
		}
	}
	return total, nil
}

package pricing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ValidateTiers checks a tier set before it is accepted into a variant. It
// reports every broken rule rather than stopping at the first, and never
// modifies its input.
func ValidateTiers(tiers []Tier) (bool, []ValidationError) {
	var errs []ValidationError
	var unbounded []int

	for i, t := range tiers {
		if t.MinQuantity < 1 {
			errs = append(errs, ValidationError{
				Code:    CodeInvalidRange,
				Index:   i,
				Message: "minQuantity must be at least 1",
			})
		}
		if t.MaxQuantity != nil && *t.MaxQuantity < t.MinQuantity {
			errs = append(errs, ValidationError{
				Code:    CodeInvalidRange,
				Index:   i,
				Message: "maxQuantity must not be below minQuantity",
			})
		}
		if !validDiscount(t.DiscountPercent) {
			errs = append(errs, ValidationError{
				Code:    CodeInvalidDiscount,
				Index:   i,
				Message: "discountPercent must be at least 0 and below 100",
			})
		}
		if t.Unbounded() {
			unbounded = append(unbounded, i)
		}
	}

	for i := 0; i < len(tiers); i++ {
		if emptyRange(tiers[i]) {
			continue
		}
		for j := i + 1; j < len(tiers); j++ {
			if emptyRange(tiers[j]) || !overlaps(tiers[i], tiers[j]) {
				continue
			}
			other := j
			errs = append(errs, ValidationError{
				Code:       CodeOverlappingTiers,
				Index:      i,
				OtherIndex: &other,
				Message:    "quantity ranges intersect",
			})
		}
	}

	for k := 1; k < len(unbounded); k++ {
		first := unbounded[0]
		errs = append(errs, ValidationError{
			Code:       CodeMultipleUnboundedTiers,
			Index:      unbounded[k],
			OtherIndex: &first,
			Message:    "only one tier may omit maxQuantity",
		})
	}

	for _, u := range unbounded {
		for j, t := range tiers {
			if j == u || t.MinQuantity <= tiers[u].MinQuantity {
				continue
			}
			higher := j
			errs = append(errs, ValidationError{
				Code:       CodeUnboundedTierNotLast,
				Index:      u,
				OtherIndex: &higher,
				Message:    "open-ended tier must have the highest minQuantity",
			})
			break
		}
	}

	return len(errs) == 0, errs
}

func validDiscount(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThan(hundred)
}

// emptyRange marks bands whose own bounds are already invalid; they cannot
// meaningfully intersect anything.
func emptyRange(t Tier) bool {
	return t.MaxQuantity != nil && *t.MaxQuantity < t.MinQuantity
}

func overlaps(a, b Tier) bool {
	aBelowB := a.MaxQuantity != nil && *a.MaxQuantity < b.MinQuantity
	bBelowA := b.MaxQuantity != nil && *b.MaxQuantity < a.MinQuantity
	return !aBelowB && !bBelowA
}

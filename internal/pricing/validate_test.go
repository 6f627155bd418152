package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(errs []ValidationError) []Code {
	out := make([]Code, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestValidateTiers_ValidSets(t *testing.T) {
	cases := map[string][]Tier{
		"empty":        nil,
		"single open":  {tier(1, nil, "0")},
		"scenario":     scenarioVariant().Tiers,
		"gapped":       {tier(5, qty(9), "2"), tier(20, qty(29), "5"), tier(100, nil, "12.5")},
		"adjacent":     {tier(1, qty(1), "0"), tier(2, qty(2), "1"), tier(3, qty(3), "2")},
		"unsorted":     {tier(50, nil, "15"), tier(10, qty(49), "10")},
		"all bounded":  {tier(10, qty(19), "5"), tier(20, qty(29), "99.99")},
		"zero percent": {tier(1, qty(9), "0")},
	}
	for name, tiers := range cases {
		t.Run(name, func(t *testing.T) {
			ok, errs := ValidateTiers(tiers)
			assert.True(t, ok)
			assert.Empty(t, errs)
		})
	}
}

func TestValidateTiers_Overlaps(t *testing.T) {
	cases := map[string][]Tier{
		"shared edge":       {tier(10, qty(50), "10"), tier(50, nil, "15")},
		"nested":            {tier(1, qty(100), "5"), tier(10, qty(20), "10")},
		"duplicate":         {tier(10, qty(20), "5"), tier(10, qty(20), "5")},
		"partial intersect": {tier(5, qty(9), "1"), tier(8, qty(30), "2")},
	}
	for name, tiers := range cases {
		t.Run(name, func(t *testing.T) {
			ok, errs := ValidateTiers(tiers)
			require.False(t, ok)
			require.Len(t, errs, 1)
			assert.Equal(t, CodeOverlappingTiers, errs[0].Code)
			assert.Equal(t, 0, errs[0].Index)
			require.NotNil(t, errs[0].OtherIndex)
			assert.Equal(t, 1, *errs[0].OtherIndex)
		})
	}
}

func TestValidateTiers_Ranges(t *testing.T) {
	ok, errs := ValidateTiers([]Tier{tier(0, qty(5), "1")})
	assert.False(t, ok)
	assert.Equal(t, []Code{CodeInvalidRange}, codes(errs))

	ok, errs = ValidateTiers([]Tier{tier(10, qty(9), "1"), tier(1, qty(20), "2")})
	assert.False(t, ok)
	assert.Equal(t, []Code{CodeInvalidRange}, codes(errs), "an inverted band is not also reported as overlapping")
	assert.Equal(t, 0, errs[0].Index)
}

func TestValidateTiers_Discounts(t *testing.T) {
	for _, d := range []string{"-0.01", "100", "150"} {
		ok, errs := ValidateTiers([]Tier{tier(1, nil, d)})
		assert.False(t, ok, d)
		assert.Equal(t, []Code{CodeInvalidDiscount}, codes(errs), d)
	}
}

func TestValidateTiers_Unbounded(t *testing.T) {
	ok, errs := ValidateTiers([]Tier{tier(1, nil, "1"), tier(10, nil, "2")})
	assert.False(t, ok)
	assert.ElementsMatch(t, []Code{CodeOverlappingTiers, CodeMultipleUnboundedTiers, CodeUnboundedTierNotLast}, codes(errs))

	ok, errs = ValidateTiers([]Tier{tier(10, nil, "5"), tier(100, qty(200), "10")})
	assert.False(t, ok)
	assert.ElementsMatch(t, []Code{CodeOverlappingTiers, CodeUnboundedTierNotLast}, codes(errs))
	for _, e := range errs {
		if e.Code == CodeUnboundedTierNotLast {
			assert.Equal(t, 0, e.Index)
			assert.Equal(t, 1, *e.OtherIndex)
		}
	}
}

func TestValidateTiers_ReportsEveryError(t *testing.T) {
	tiers := []Tier{tier(0, qty(5), "100"), tier(3, nil, "5"), tier(2, nil, "5")}

	ok, errs := ValidateTiers(tiers)

	assert.False(t, ok)
	got := codes(errs)
	assert.Contains(t, got, CodeInvalidRange)
	assert.Contains(t, got, CodeInvalidDiscount)
	assert.Contains(t, got, CodeOverlappingTiers)
	assert.Contains(t, got, CodeMultipleUnboundedTiers)
	assert.Contains(t, got, CodeUnboundedTierNotLast)
}

func TestValidateTiers_DoesNotMutate(t *testing.T) {
	tiers := []Tier{tier(50, nil, "15"), tier(10, qty(49), "10")}
	before := append([]Tier(nil), tiers...)

	ValidateTiers(tiers)

	assert.Equal(t, before, tiers)
}

func TestValidationErrorsMessage(t *testing.T) {
	_, errs := ValidateTiers([]Tier{tier(1, nil, "1"), tier(10, nil, "2")})
	msg := ValidationErrors(errs).Error()
	assert.Contains(t, msg, string(CodeOverlappingTiers))
	assert.Contains(t, msg, "more")
}

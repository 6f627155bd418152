package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Simplici0/tierprice/internal/money"
)

// Margin is (price − cost) / price as a percentage with one decimal place.
//
// CostIsZero marks the zero-cost case, where Percent is defined as 100. It
// usually means the cost was never entered rather than a real 100% margin.
type Margin struct {
	Percent    decimal.Decimal `json:"percent"`
	CostIsZero bool            `json:"costIsZero"`
}

// ComputeMargin returns the margin of selling at price with the given cost.
// Negative margins (selling below cost) are returned unchanged.
func ComputeMargin(price, cost money.Money) (Margin, error) {
	if !price.SameCurrency(cost) {
		_, err := price.Cmp(cost)
		return Margin{}, currencyError(err)
	}
	if !price.IsPositive() {
		return Margin{}, ErrNonPositivePrice
	}
	if cost.IsNegative() {
		return Margin{}, ErrNegativeCost
	}
	if cost.IsZero() {
		return Margin{Percent: hundred, CostIsZero: true}, nil
	}

	p := decimal.NewFromInt(price.Amount)
	gross := p.Sub(decimal.NewFromInt(cost.Amount)).Mul(hundred)
	percent := gross.Div(p)
	return Margin{Percent: money.RoundHalfUp(percent, 1)}, nil
}

// IsBelowThreshold reports whether percent is strictly under thresholdPercent.
// Thresholds are caller configuration, e.g. 40 for a 40% alert line.
func IsBelowThreshold(percent, thresholdPercent decimal.Decimal) bool {
	return percent.LessThan(thresholdPercent)
}

// Package pricing resolves what a customer pays for N units of a variant.
//
// Everything here is a pure function of its arguments: tier validation,
// price resolution against volume tiers, margin, and price-change audit
// records. Nothing is fetched, stored, logged or timed.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Simplici0/tierprice/internal/money"
)

// Quote groups a resolution with the figures reported next to it.
type Quote struct {
	VariantID    string      `json:"variantId"`
	Quantity     int64       `json:"quantity"`
	BasePrice    money.Money `json:"basePrice"`
	CurrentPrice money.Money `json:"currentPrice"`
	IsDiscounted bool        `json:"isDiscounted"`
	Resolution
	// Margin is nil when the unit price is not positive, e.g. a deep tier
	// discount on a tiny price that rounds to zero.
	Margin         *Margin `json:"margin"`
	BelowThreshold bool    `json:"belowThreshold"`
}

// Calculate resolves the price of quantity units of v and reports the unit
// margin against v.Cost, flagged against marginThreshold. A unit price that
// is not positive still yields a quote, without a margin.
func Calculate(v Variant, quantity int64, marginThreshold decimal.Decimal) (Quote, error) {
	res, err := ResolvePrice(v, quantity)
	if err != nil {
		return Quote{}, err
	}

	q := Quote{
		VariantID:    v.ID,
		Quantity:     quantity,
		BasePrice:    v.BasePrice,
		CurrentPrice: v.CurrentPrice,
		IsDiscounted: v.IsDiscounted(),
		Resolution:   res,
	}
	if !res.UnitPrice.IsPositive() {
		return q, nil
	}

	margin, err := ComputeMargin(res.UnitPrice, v.Cost)
	if err != nil {
		return Quote{}, err
	}
	q.Margin = &margin
	q.BelowThreshold = IsBelowThreshold(margin.Percent, marginThreshold)
	return q, nil
}

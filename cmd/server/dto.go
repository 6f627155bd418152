package main

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/tierprice/internal/money"
	"github.com/Simplici0/tierprice/internal/pricing"
)

// percentOneDP renders as a bare JSON number with exactly one decimal place.
type percentOneDP struct{ decimal.Decimal }

func (p percentOneDP) MarshalJSON() ([]byte, error) {
	return []byte(p.StringFixed(1)), nil
}

// bareDecimal renders as a bare JSON number instead of a quoted string.
type bareDecimal struct{ decimal.Decimal }

func (d bareDecimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

type tierRequest struct {
	ID              string           `json:"id" validate:"omitempty,max=64"`
	MinQuantity     *int64           `json:"minQuantity" validate:"required"`
	MaxQuantity     *int64           `json:"maxQuantity"`
	DiscountPercent *decimal.Decimal `json:"discountPercent" validate:"required"`
}

func (t tierRequest) toTier() pricing.Tier {
	return pricing.Tier{
		ID:              t.ID,
		MinQuantity:     *t.MinQuantity,
		MaxQuantity:     t.MaxQuantity,
		DiscountPercent: *t.DiscountPercent,
	}
}

func toTiers(reqs []tierRequest) []pricing.Tier {
	tiers := make([]pricing.Tier, 0, len(reqs))
	for _, r := range reqs {
		tiers = append(tiers, r.toTier())
	}
	return tiers
}

type createVariantRequest struct {
	ID           string        `json:"id" validate:"omitempty,max=64"`
	Currency     string        `json:"currency" validate:"omitempty,len=3,alpha"`
	BasePrice    *int64        `json:"basePrice" validate:"required"`
	CurrentPrice *int64        `json:"currentPrice"`
	Cost         *int64        `json:"cost" validate:"required"`
	Tiers        []tierRequest `json:"tiers" validate:"dive"`
}

type tiersRequest struct {
	Tiers []tierRequest `json:"tiers" validate:"required,dive"`
}

type resolvePriceRequest struct {
	Quantity *int64 `json:"quantity" validate:"required"`
}

type priceChangeRequest struct {
	NewPrice *int64 `json:"newPrice" validate:"required"`
	Currency string `json:"currency" validate:"omitempty,len=3,alpha"`
	Reason   string `json:"reason" validate:"max=500"`
	Actor    string `json:"actor" validate:"max=200"`
}

type tierResponse struct {
	ID              string      `json:"id"`
	MinQuantity     int64       `json:"minQuantity"`
	MaxQuantity     *int64      `json:"maxQuantity"`
	DiscountPercent bareDecimal `json:"discountPercent"`
	ResolvedPrice   money.Money `json:"resolvedPrice"`
}

type variantResponse struct {
	ID           string         `json:"id"`
	BasePrice    money.Money    `json:"basePrice"`
	CurrentPrice money.Money    `json:"currentPrice"`
	Cost         money.Money    `json:"cost"`
	IsDiscounted bool           `json:"isDiscounted"`
	Tiers        []tierResponse `json:"tiers"`
}

func newTierResponse(t pricing.Tier) tierResponse {
	return tierResponse{
		ID:              t.ID,
		MinQuantity:     t.MinQuantity,
		MaxQuantity:     t.MaxQuantity,
		DiscountPercent: bareDecimal{t.DiscountPercent},
		ResolvedPrice:   t.ResolvedPrice,
	}
}

// newVariantResponse recomputes tier display prices from the live current
// price rather than trusting the stored cache.
func newVariantResponse(v pricing.Variant) variantResponse {
	tiers := pricing.RefreshResolvedPrices(v)
	out := variantResponse{
		ID:           v.ID,
		BasePrice:    v.BasePrice,
		CurrentPrice: v.CurrentPrice,
		Cost:         v.Cost,
		IsDiscounted: v.IsDiscounted(),
		Tiers:        make([]tierResponse, 0, len(tiers)),
	}
	for _, t := range tiers {
		out.Tiers = append(out.Tiers, newTierResponse(t))
	}
	return out
}

type marginResponse struct {
	Percent        percentOneDP `json:"percent"`
	CostIsZero     bool         `json:"costIsZero"`
	BelowThreshold bool         `json:"belowThreshold"`
	Threshold      bareDecimal  `json:"threshold"`
	Price          money.Money  `json:"price"`
	Cost           money.Money  `json:"cost"`
}

type quoteMargin struct {
	Percent    percentOneDP `json:"percent"`
	CostIsZero bool         `json:"costIsZero"`
}

type resolvePriceResponse struct {
	VariantID        string            `json:"variantId"`
	Quantity         int64             `json:"quantity"`
	UnitPrice        money.Money       `json:"unitPrice"`
	TotalPrice       money.Money       `json:"totalPrice"`
	AppliedTierID    *string           `json:"appliedTierId"`
	AppliedTierIndex *int              `json:"appliedTierIndex"`
	AppliedTier      *tierResponse     `json:"appliedTier,omitempty"`
	IsDiscounted     bool              `json:"isDiscounted"`
	Warnings         []pricing.Warning `json:"warnings"`
	Margin           *quoteMargin      `json:"margin"`
	BelowThreshold   bool              `json:"belowThreshold"`
}

func newResolvePriceResponse(q pricing.Quote) resolvePriceResponse {
	out := resolvePriceResponse{
		VariantID:        q.VariantID,
		Quantity:         q.Quantity,
		UnitPrice:        q.UnitPrice,
		TotalPrice:       q.TotalPrice,
		AppliedTierIndex: q.AppliedTierIndex,
		IsDiscounted:     q.IsDiscounted,
		Warnings:         q.Warnings,
		BelowThreshold:   q.BelowThreshold,
	}
	if q.Margin != nil {
		out.Margin = &quoteMargin{
			Percent:    percentOneDP{q.Margin.Percent},
			CostIsZero: q.Margin.CostIsZero,
		}
	}
	if out.Warnings == nil {
		out.Warnings = []pricing.Warning{}
	}
	if q.AppliedTier != nil {
		id := q.AppliedTier.ID
		tier := newTierResponse(*q.AppliedTier)
		out.AppliedTierID = &id
		out.AppliedTier = &tier
	}
	return out
}

type validateTiersResponse struct {
	OK     bool                      `json:"ok"`
	Errors []pricing.ValidationError `json:"errors"`
}

type priceChangeResponse struct {
	ID            string        `json:"id"`
	VariantID     string        `json:"variantId"`
	OldPrice      money.Money   `json:"oldPrice"`
	NewPrice      money.Money   `json:"newPrice"`
	ChangePercent *percentOneDP `json:"changePercent"`
	Reason        string        `json:"reason"`
	EffectiveDate string        `json:"effectiveDate"`
	Actor         string        `json:"actor"`
}

func newPriceChangeResponse(rec pricing.PriceChangeRecord) priceChangeResponse {
	out := priceChangeResponse{
		ID:            rec.ID,
		VariantID:     rec.VariantID,
		OldPrice:      rec.OldPrice,
		NewPrice:      rec.NewPrice,
		Reason:        rec.Reason,
		EffectiveDate: rec.EffectiveDate.UTC().Format(time.RFC3339Nano),
		Actor:         rec.Actor,
	}
	if rec.ChangePercent != nil {
		out.ChangePercent = &percentOneDP{*rec.ChangePercent}
	}
	return out
}

type priceChangeResult struct {
	Record  priceChangeResponse `json:"record"`
	Variant variantResponse     `json:"variant"`
}

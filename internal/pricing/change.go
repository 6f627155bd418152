package pricing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/tierprice/internal/money"
)

// PriceChangeRecord is an immutable audit fact about one price mutation.
// ID is assigned by whoever persists the record.
type PriceChangeRecord struct {
	ID            string           `json:"id,omitempty"`
	VariantID     string           `json:"variantId"`
	OldPrice      money.Money      `json:"oldPrice"`
	NewPrice      money.Money      `json:"newPrice"`
	ChangePercent *decimal.Decimal `json:"changePercent"`
	Reason        string           `json:"reason"`
	EffectiveDate time.Time        `json:"effectiveDate"`
	Actor         string           `json:"actor"`
}

// RecordPriceChange builds the audit record for moving a variant from
// oldPrice to newPrice. The caller supplies now; nothing here reads a clock.
func RecordPriceChange(variantID string, oldPrice, newPrice money.Money, reason, actor string, now time.Time) (PriceChangeRecord, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return PriceChangeRecord{}, ErrMissingReason
	}
	if !oldPrice.IsPositive() || !newPrice.IsPositive() {
		return PriceChangeRecord{}, ErrNonPositivePrice
	}
	if _, err := oldPrice.Cmp(newPrice); err != nil {
		return PriceChangeRecord{}, currencyError(err)
	}

	return PriceChangeRecord{
		VariantID:     variantID,
		OldPrice:      oldPrice,
		NewPrice:      newPrice,
		ChangePercent: changePercent(oldPrice, newPrice),
		Reason:        reason,
		EffectiveDate: now.UTC(),
		Actor:         strings.TrimSpace(actor),
	}, nil
}

// changePercent is (new − old) / old × 100 to one decimal place, or nil when
// old is zero.
func changePercent(oldPrice, newPrice money.Money) *decimal.Decimal {
	if oldPrice.IsZero() {
		return nil
	}
	old := decimal.NewFromInt(oldPrice.Amount)
	delta := decimal.NewFromInt(newPrice.Amount).Sub(old).Mul(hundred)
	pct := money.RoundHalfUp(delta.Div(old), 1)
	return &pct
}

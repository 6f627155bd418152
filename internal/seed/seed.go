package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/tierprice/internal/money"
	"github.com/Simplici0/tierprice/internal/pricing"
	"github.com/Simplici0/tierprice/internal/store"
)

const (
	DefaultVariantID = "demo-widget"

	demoBasePrice = "499"
	demoSalePrice = "449"
	demoCost      = "250"
	demoReason    = "Q4 promo"
	demoActor     = "seed"
)

// Config contains the values required by startup seed.
type Config struct {
	VariantID string
	Currency  string
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Store is the persistence the seed writes through.
type Store interface {
	GetVariant(ctx context.Context, id string) (pricing.Variant, error)
	CreateVariant(ctx context.Context, v pricing.Variant) (pricing.Variant, error)
	ApplyPriceChange(ctx context.Context, id string, build store.RecordFunc) (pricing.Variant, pricing.PriceChangeRecord, error)
	ListPriceChanges(ctx context.Context, id string) ([]pricing.PriceChangeRecord, error)
	Now() time.Time
}

// Run seeds the demo variant in an idempotent way: a variant listed at 499
// with 10-49 and 50+ volume tiers, then marked down to 449 with an audited
// price change.
func Run(ctx context.Context, st Store, cfg Config) (Stats, error) {
	if cfg.VariantID == "" {
		cfg.VariantID = DefaultVariantID
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}

	stats := Stats{}

	if err := ensureVariant(ctx, st, cfg, &stats); err != nil {
		return Stats{}, err
	}
	if err := ensureMarkdown(ctx, st, cfg, &stats); err != nil {
		return Stats{}, err
	}

	return stats, nil
}

func ensureVariant(ctx context.Context, st Store, cfg Config, stats *Stats) error {
	_, err := st.GetVariant(ctx, cfg.VariantID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("check demo variant existence: %w", err)
	}

	base, err := money.Parse(demoBasePrice, cfg.Currency)
	if err != nil {
		return fmt.Errorf("demo base price: %w", err)
	}
	cost, err := money.Parse(demoCost, cfg.Currency)
	if err != nil {
		return fmt.Errorf("demo cost: %w", err)
	}

	upper := int64(49)
	tiers := []pricing.Tier{
		{MinQuantity: 10, MaxQuantity: &upper, DiscountPercent: decimal.NewFromInt(10)},
		{MinQuantity: 50, DiscountPercent: decimal.NewFromInt(15)},
	}
	if ok, errs := pricing.ValidateTiers(tiers); !ok {
		return fmt.Errorf("demo tiers: %w", pricing.ValidationErrors(errs))
	}

	if _, err := st.CreateVariant(ctx, pricing.Variant{
		ID:           cfg.VariantID,
		BasePrice:    base,
		CurrentPrice: base,
		Cost:         cost,
		Tiers:        tiers,
	}); err != nil {
		return fmt.Errorf("insert demo variant: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureMarkdown(ctx context.Context, st Store, cfg Config, stats *Stats) error {
	history, err := st.ListPriceChanges(ctx, cfg.VariantID)
	if err != nil {
		return fmt.Errorf("check demo price history: %w", err)
	}
	if len(history) > 0 {
		return nil
	}

	sale, err := money.Parse(demoSalePrice, cfg.Currency)
	if err != nil {
		return fmt.Errorf("demo sale price: %w", err)
	}

	if _, _, err := st.ApplyPriceChange(ctx, cfg.VariantID, func(cur pricing.Variant) (pricing.PriceChangeRecord, error) {
		return pricing.RecordPriceChange(cur.ID, cur.CurrentPrice, sale, demoReason, demoActor, st.Now())
	}); err != nil {
		return fmt.Errorf("apply demo markdown: %w", err)
	}
	stats.Inserts++
	stats.Updates++
	return nil
}

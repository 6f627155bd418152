package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/tierprice/internal/db"
	"github.com/Simplici0/tierprice/internal/migrations"
	"github.com/Simplici0/tierprice/internal/money"
	"github.com/Simplici0/tierprice/internal/pricing"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, filepath.Join(t.TempDir(), "store.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Up(ctx, conn))

	clock := &fakeClock{t: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)}
	seq := 0
	s := New(conn,
		WithClock(clock.Now),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%03d", seq)
		}),
	)
	return s, clock
}

func usd(minor int64) money.Money { return money.MustNew(minor, "USD") }

func bound(n int64) *int64 { return &n }

func demoVariant() pricing.Variant {
	return pricing.Variant{
		ID:           "sku-1",
		BasePrice:    usd(49900),
		CurrentPrice: usd(44900),
		Cost:         usd(25000),
		Tiers: []pricing.Tier{
			{MinQuantity: 50, DiscountPercent: decimal.RequireFromString("15")},
			{MinQuantity: 10, MaxQuantity: bound(49), DiscountPercent: decimal.RequireFromString("10")},
		},
	}
}

func TestCreateAndGetVariant(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateVariant(ctx, demoVariant())
	require.NoError(t, err)
	require.Len(t, created.Tiers, 2)
	assert.Equal(t, int64(10), created.Tiers[0].MinQuantity)
	assert.Equal(t, usd(40410), created.Tiers[0].ResolvedPrice)
	assert.Equal(t, usd(38165), created.Tiers[1].ResolvedPrice)

	got, err := s.GetVariant(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, created.BasePrice, got.BasePrice)
	assert.Equal(t, created.Cost, got.Cost)
	require.Len(t, got.Tiers, 2)
	assert.Equal(t, int64(49), *got.Tiers[0].MaxQuantity)
	assert.Nil(t, got.Tiers[1].MaxQuantity)
	assert.True(t, got.Tiers[1].DiscountPercent.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, created.Tiers[1].ID, got.Tiers[1].ID)
}

func TestCreateVariantGeneratesIDAndRejectsDuplicates(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	v := demoVariant()
	v.ID = ""
	created, err := s.CreateVariant(ctx, v)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = s.CreateVariant(ctx, demoVariant())
	require.NoError(t, err)
	_, err = s.CreateVariant(ctx, demoVariant())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestTierIDsAreScopedToTheirVariant(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	withIDs := func(id string) pricing.Variant {
		v := demoVariant()
		v.ID = id
		v.Tiers[0].ID = "bulk"
		v.Tiers[1].ID = "case"
		return v
	}
	_, err := s.CreateVariant(ctx, withIDs("sku-1"))
	require.NoError(t, err)
	_, err = s.CreateVariant(ctx, withIDs("sku-2"))
	require.NoError(t, err)

	_, _, err = s.ApplyPriceChange(ctx, "sku-2", func(cur pricing.Variant) (pricing.PriceChangeRecord, error) {
		return pricing.PriceChangeRecord{VariantID: cur.ID, OldPrice: cur.CurrentPrice, NewPrice: usd(40000), Reason: "promo"}, nil
	})
	require.NoError(t, err)

	first, err := s.GetVariant(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, usd(40410), first.Tiers[0].ResolvedPrice)
	second, err := s.GetVariant(ctx, "sku-2")
	require.NoError(t, err)
	assert.Equal(t, usd(36000), second.Tiers[0].ResolvedPrice)

	dup := []pricing.Tier{
		{ID: "same", MinQuantity: 5, MaxQuantity: bound(9), DiscountPercent: decimal.RequireFromString("5")},
		{ID: "same", MinQuantity: 10, DiscountPercent: decimal.RequireFromString("10")},
	}
	_, err = s.ReplaceTiers(ctx, "sku-1", dup)
	require.ErrorIs(t, err, ErrDuplicateTier)

	unchanged, err := s.GetVariant(ctx, "sku-1")
	require.NoError(t, err)
	require.Len(t, unchanged.Tiers, 2)
	assert.Equal(t, "case", unchanged.Tiers[0].ID)
}

func TestGetVariantNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.GetVariant(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ListPriceChanges(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplaceTiers(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateVariant(ctx, demoVariant())
	require.NoError(t, err)

	updated, err := s.ReplaceTiers(ctx, "sku-1", []pricing.Tier{
		{MinQuantity: 5, DiscountPercent: decimal.RequireFromString("2.5")},
	})
	require.NoError(t, err)
	require.Len(t, updated.Tiers, 1)
	assert.Equal(t, usd(43778), updated.Tiers[0].ResolvedPrice)

	got, err := s.GetVariant(ctx, "sku-1")
	require.NoError(t, err)
	require.Len(t, got.Tiers, 1)
	assert.Equal(t, "2.5", got.Tiers[0].DiscountPercent.String())

	_, err = s.ReplaceTiers(ctx, "missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyPriceChange(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	v := demoVariant()
	v.CurrentPrice = usd(49900)
	_, err := s.CreateVariant(ctx, v)
	require.NoError(t, err)

	updated, rec, err := s.ApplyPriceChange(ctx, "sku-1", func(cur pricing.Variant) (pricing.PriceChangeRecord, error) {
		return pricing.RecordPriceChange(cur.ID, cur.CurrentPrice, usd(44900), "Q4 promo", "ana", s.Now())
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "-10.0", rec.ChangePercent.StringFixed(1))
	assert.Equal(t, usd(44900), updated.CurrentPrice)
	assert.Equal(t, usd(40410), updated.Tiers[0].ResolvedPrice)

	got, err := s.GetVariant(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, usd(44900), got.CurrentPrice)
	assert.Equal(t, usd(40410), got.Tiers[0].ResolvedPrice)
	assert.Equal(t, usd(38165), got.Tiers[1].ResolvedPrice)

	clock.Advance(time.Hour)
	_, _, err = s.ApplyPriceChange(ctx, "sku-1", func(cur pricing.Variant) (pricing.PriceChangeRecord, error) {
		return pricing.RecordPriceChange(cur.ID, cur.CurrentPrice, usd(49900), "promo over", "", s.Now())
	})
	require.NoError(t, err)

	history, err := s.ListPriceChanges(ctx, "sku-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "promo over", history[0].Reason)
	assert.Equal(t, "Q4 promo", history[1].Reason)
	assert.True(t, history[1].EffectiveDate.Equal(time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "ana", history[1].Actor)
	assert.Equal(t, usd(49900), history[1].OldPrice)
	assert.Equal(t, "11.1", history[0].ChangePercent.StringFixed(1))
}

func TestApplyPriceChangeBuilderErrorLeavesVariantUntouched(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateVariant(ctx, demoVariant())
	require.NoError(t, err)

	_, _, err = s.ApplyPriceChange(ctx, "sku-1", func(cur pricing.Variant) (pricing.PriceChangeRecord, error) {
		return pricing.RecordPriceChange(cur.ID, cur.CurrentPrice, usd(40000), "   ", "ana", s.Now())
	})
	require.ErrorIs(t, err, pricing.ErrMissingReason)

	got, err := s.GetVariant(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, usd(44900), got.CurrentPrice)

	history, err := s.ListPriceChanges(ctx, "sku-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Simplici0/tierprice/internal/money"
	"github.com/Simplici0/tierprice/internal/pricing"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func loadVariantRow(ctx context.Context, q querier, id string) (pricing.Variant, error) {
	var (
		v        pricing.Variant
		currency string
		base     int64
		current  int64
		cost     int64
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, currency, base_price, current_price, cost
		FROM variants
		WHERE id = ?
	`, id).Scan(&v.ID, &currency, &base, &current, &cost)
	if errors.Is(err, sql.ErrNoRows) {
		return pricing.Variant{}, ErrNotFound
	}
	if err != nil {
		return pricing.Variant{}, fmt.Errorf("load variant: %w", err)
	}

	v.BasePrice = money.Money{Amount: base, Currency: currency}
	v.CurrentPrice = money.Money{Amount: current, Currency: currency}
	v.Cost = money.Money{Amount: cost, Currency: currency}
	return v, nil
}

func getVariant(ctx context.Context, q querier, id string) (pricing.Variant, error) {
	v, err := loadVariantRow(ctx, q, id)
	if err != nil {
		return pricing.Variant{}, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, min_quantity, max_quantity, discount_percent, resolved_price
		FROM variant_tiers
		WHERE variant_id = ?
		ORDER BY min_quantity ASC, position ASC
	`, id)
	if err != nil {
		return pricing.Variant{}, fmt.Errorf("query tiers: %w", err)
	}
	defer rows.Close()

	v.Tiers = []pricing.Tier{}
	for rows.Next() {
		var (
			t        pricing.Tier
			upper    sql.NullInt64
			discount string
			resolved int64
		)
		if err := rows.Scan(&t.ID, &t.MinQuantity, &upper, &discount, &resolved); err != nil {
			return pricing.Variant{}, fmt.Errorf("scan tier: %w", err)
		}
		if upper.Valid {
			maxQty := upper.Int64
			t.MaxQuantity = &maxQty
		}
		if t.DiscountPercent, err = decimal.NewFromString(discount); err != nil {
			return pricing.Variant{}, fmt.Errorf("parse tier %s discount %q: %w", t.ID, discount, err)
		}
		t.ResolvedPrice = money.Money{Amount: resolved, Currency: v.CurrentPrice.Currency}
		v.Tiers = append(v.Tiers, t)
	}
	if err := rows.Err(); err != nil {
		return pricing.Variant{}, fmt.Errorf("iterate tiers: %w", err)
	}
	return v, nil
}

func insertTiers(ctx context.Context, tx *sql.Tx, variantID string, tiers []pricing.Tier) error {
	for i, t := range tiers {
		var upper sql.NullInt64
		if t.MaxQuantity != nil {
			upper = sql.NullInt64{Int64: *t.MaxQuantity, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO variant_tiers (id, variant_id, position, min_quantity, max_quantity, discount_percent, resolved_price)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, t.ID, variantID, i, t.MinQuantity, upper, t.DiscountPercent.String(), t.ResolvedPrice.Amount); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("tier %q: %w", t.ID, ErrDuplicateTier)
			}
			return fmt.Errorf("insert tier %d: %w", i, err)
		}
	}
	return nil
}

func touchVariant(ctx context.Context, tx *sql.Tx, id string, now time.Time) error {
	if _, err := tx.ExecContext(ctx, `UPDATE variants SET updated_at = ? WHERE id = ?`, now.Format(timeFormat), id); err != nil {
		return fmt.Errorf("touch variant: %w", err)
	}
	return nil
}

func insertPriceChange(ctx context.Context, tx *sql.Tx, rec pricing.PriceChangeRecord) error {
	var pct sql.NullString
	if rec.ChangePercent != nil {
		pct = sql.NullString{String: rec.ChangePercent.StringFixed(1), Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO price_changes (id, variant_id, currency, old_price, new_price, change_percent, reason, actor, effective_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.VariantID, rec.NewPrice.Currency, rec.OldPrice.Amount, rec.NewPrice.Amount, pct, rec.Reason, rec.Actor,
		rec.EffectiveDate.UTC().Format(timeFormat)); err != nil {
		return fmt.Errorf("insert price change: %w", err)
	}
	return nil
}

func scanPriceChange(row scanner) (pricing.PriceChangeRecord, error) {
	var (
		rec      pricing.PriceChangeRecord
		currency string
		oldPrice int64
		newPrice int64
		pct      sql.NullString
		when     string
	)
	if err := row.Scan(&rec.ID, &rec.VariantID, &currency, &oldPrice, &newPrice, &pct, &rec.Reason, &rec.Actor, &when); err != nil {
		return pricing.PriceChangeRecord{}, fmt.Errorf("scan price change: %w", err)
	}

	rec.OldPrice = money.Money{Amount: oldPrice, Currency: currency}
	rec.NewPrice = money.Money{Amount: newPrice, Currency: currency}
	if pct.Valid {
		d, err := decimal.NewFromString(pct.String)
		if err != nil {
			return pricing.PriceChangeRecord{}, fmt.Errorf("parse change percent %q: %w", pct.String, err)
		}
		rec.ChangePercent = &d
	}
	t, err := time.Parse(timeFormat, when)
	if err != nil {
		return pricing.PriceChangeRecord{}, fmt.Errorf("parse effective date %q: %w", when, err)
	}
	rec.EffectiveDate = t
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}

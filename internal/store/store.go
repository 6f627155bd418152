// Package store persists variants, their tier sets and the append-only price
// change history in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/tierprice/internal/db"
	"github.com/Simplici0/tierprice/internal/pricing"
)

var (
	ErrNotFound = errors.New("variant not found")
	ErrConflict = errors.New("variant already exists")
	// ErrDuplicateTier is returned when two tiers of one variant share an id.
	ErrDuplicateTier = errors.New("duplicate tier id")
)

// Timestamps are stored as fixed-width UTC text so that they sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Store is the SQLite-backed repository for variants, tiers and price
// changes. It is safe for concurrent use.
type Store struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// Option configures a Store in New.
type Option func(*Store)

// WithClock overrides the clock used for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides how row identifiers are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New returns a Store over conn, which must already be migrated. Ids are
// random UUIDs and timestamps come from time.Now unless overridden.
func New(conn *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:    conn,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store clock in UTC.
func (s *Store) Now() time.Time {
	return s.now().UTC()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateVariant inserts v with its tiers sorted by MinQuantity and their
// display prices computed. Missing ids are generated.
func (s *Store) CreateVariant(ctx context.Context, v pricing.Variant) (pricing.Variant, error) {
	if v.ID == "" {
		v.ID = s.newID()
	}
	v.Tiers = s.prepareTiers(v, v.Tiers)
	stamp := s.Now().Format(timeFormat)

	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM variants WHERE id = ?)`, v.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check variant existence: %w", err)
		}
		if exists {
			return ErrConflict
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO variants (id, currency, base_price, current_price, cost, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, v.ID, v.CurrentPrice.Currency, v.BasePrice.Amount, v.CurrentPrice.Amount, v.Cost.Amount, stamp, stamp); err != nil {
			return fmt.Errorf("insert variant: %w", err)
		}
		return insertTiers(ctx, tx, v.ID, v.Tiers)
	})
	if err != nil {
		return pricing.Variant{}, err
	}
	return v, nil
}

// GetVariant loads a variant and its tiers in ascending MinQuantity order.
func (s *Store) GetVariant(ctx context.Context, id string) (pricing.Variant, error) {
	return getVariant(ctx, s.db, id)
}

// ReplaceTiers swaps the variant's whole tier set. Validation is the caller's
// job; the store only orders the tiers and refreshes their display prices.
func (s *Store) ReplaceTiers(ctx context.Context, id string, tiers []pricing.Tier) (pricing.Variant, error) {
	var out pricing.Variant
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		v, err := getVariant(ctx, tx, id)
		if err != nil {
			return err
		}
		v.Tiers = s.prepareTiers(v, tiers)

		if _, err := tx.ExecContext(ctx, `DELETE FROM variant_tiers WHERE variant_id = ?`, id); err != nil {
			return fmt.Errorf("delete tiers: %w", err)
		}
		if err := insertTiers(ctx, tx, id, v.Tiers); err != nil {
			return err
		}
		if err := touchVariant(ctx, tx, id, s.Now()); err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return pricing.Variant{}, err
	}
	return out, nil
}

// RecordFunc builds the audit record for a price change from the variant as
// it stands inside the write transaction.
type RecordFunc func(current pricing.Variant) (pricing.PriceChangeRecord, error)

// ApplyPriceChange moves a variant to a new current price. The record built by
// build is appended, current_price is updated and every tier display price is
// refreshed in one transaction. Errors from build abort the change untouched.
func (s *Store) ApplyPriceChange(ctx context.Context, id string, build RecordFunc) (pricing.Variant, pricing.PriceChangeRecord, error) {
	var (
		updated pricing.Variant
		record  pricing.PriceChangeRecord
	)
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		v, err := getVariant(ctx, tx, id)
		if err != nil {
			return err
		}

		rec, err := build(v)
		if err != nil {
			return err
		}
		if rec.ID == "" {
			rec.ID = s.newID()
		}

		v.CurrentPrice = rec.NewPrice
		v.Tiers = pricing.RefreshResolvedPrices(v)

		if _, err := tx.ExecContext(ctx, `
			UPDATE variants SET current_price = ?, updated_at = ? WHERE id = ?
		`, v.CurrentPrice.Amount, s.Now().Format(timeFormat), id); err != nil {
			return fmt.Errorf("update current price: %w", err)
		}
		for _, t := range v.Tiers {
			if _, err := tx.ExecContext(ctx, `
				UPDATE variant_tiers SET resolved_price = ? WHERE variant_id = ? AND id = ?
			`, t.ResolvedPrice.Amount, id, t.ID); err != nil {
				return fmt.Errorf("refresh tier %s display price: %w", t.ID, err)
			}
		}
		if err := insertPriceChange(ctx, tx, rec); err != nil {
			return err
		}

		updated, record = v, rec
		return nil
	})
	if err != nil {
		return pricing.Variant{}, pricing.PriceChangeRecord{}, err
	}
	return updated, record, nil
}

// ListPriceChanges returns a variant's history, most recent first.
func (s *Store) ListPriceChanges(ctx context.Context, id string) ([]pricing.PriceChangeRecord, error) {
	if _, err := loadVariantRow(ctx, s.db, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, variant_id, currency, old_price, new_price, change_percent, reason, actor, effective_date
		FROM price_changes
		WHERE variant_id = ?
		ORDER BY effective_date DESC, rowid DESC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query price changes: %w", err)
	}
	defer rows.Close()

	records := []pricing.PriceChangeRecord{}
	for rows.Next() {
		rec, err := scanPriceChange(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price changes: %w", err)
	}
	return records, nil
}

func (s *Store) prepareTiers(v pricing.Variant, tiers []pricing.Tier) []pricing.Tier {
	sorted := pricing.SortTiers(tiers)
	for i := range sorted {
		if sorted[i].ID == "" {
			sorted[i].ID = s.newID()
		}
	}
	v.Tiers = sorted
	return pricing.RefreshResolvedPrices(v)
}

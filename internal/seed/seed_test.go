package seed

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/tierprice/internal/db"
	"github.com/Simplici0/tierprice/internal/migrations"
	"github.com/Simplici0/tierprice/internal/money"
	"github.com/Simplici0/tierprice/internal/pricing"
	"github.com/Simplici0/tierprice/internal/store"
)

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()

	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "seed-test.db"), time.Second)
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, migrations.Up(ctx, database))

	st := store.New(database)
	cfg := Config{Currency: "USD"}

	for i := 0; i < 10; i++ {
		stats, err := Run(ctx, st, cfg)
		require.NoError(t, err, "iteration %d", i)
		if i == 0 {
			assert.Equal(t, Stats{Inserts: 2, Updates: 1}, stats)
			continue
		}
		assert.Equal(t, Stats{}, stats, "iteration %d", i)
	}

	assertCount(t, database, `SELECT COUNT(*) FROM variants WHERE id = ?`, DefaultVariantID, 1)
	assertCount(t, database, `SELECT COUNT(*) FROM variant_tiers WHERE variant_id = ?`, DefaultVariantID, 2)
	assertCount(t, database, `SELECT COUNT(*) FROM price_changes WHERE variant_id = ?`, DefaultVariantID, 1)

	v, err := st.GetVariant(ctx, DefaultVariantID)
	require.NoError(t, err)
	assert.Equal(t, money.MustNew(44900, "USD"), v.CurrentPrice)
	assert.True(t, v.IsDiscounted())

	q, err := pricing.ResolvePrice(v, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(38165), q.UnitPrice.Amount)

	history, err := st.ListPriceChanges(ctx, DefaultVariantID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "-10.0", history[0].ChangePercent.StringFixed(1))
}

func TestRunUsesCurrencyScale(t *testing.T) {
	ctx := context.Background()

	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "seed-jpy.db"), time.Second)
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, migrations.Up(ctx, database))

	st := store.New(database)
	_, err = Run(ctx, st, Config{VariantID: "yen", Currency: "JPY"})
	require.NoError(t, err)

	v, err := st.GetVariant(ctx, "yen")
	require.NoError(t, err)
	assert.Equal(t, int64(449), v.CurrentPrice.Amount)
	assert.Equal(t, int64(499), v.BasePrice.Amount)
}

func assertCount(t *testing.T, database *sql.DB, query string, arg any, expected int) {
	t.Helper()

	var count int
	require.NoError(t, database.QueryRow(query, arg).Scan(&count))
	assert.Equal(t, expected, count)
}

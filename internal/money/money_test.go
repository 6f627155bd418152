package money

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNormalizesCurrency(t *testing.T) {
	m, err := New(44900, " usd ")
	require.NoError(t, err)
	assert.Equal(t, "USD", m.Currency)
	assert.Equal(t, int64(44900), m.Amount)

	_, err = New(100, "XYZ1")
	require.ErrorIs(t, err, ErrUnknownCurrency)
}

func TestParse(t *testing.T) {
	cases := []struct {
		name  string
		value string
		code  string
		want  int64
	}{
		{name: "usd", value: "449.00", code: "USD", want: 44900},
		{name: "usd one digit", value: "404.1", code: "USD", want: 40410},
		{name: "yen has no minor unit", value: "1200", code: "JPY", want: 1200},
		{name: "dinar has three digits", value: "1.250", code: "KWD", want: 1250},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.value, tc.code)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Amount)
		})
	}

	_, err := Parse("1.005", "USD")
	require.ErrorIs(t, err, ErrPrecision)

	_, err = Parse("abc", "USD")
	require.Error(t, err)
}

func TestString(t *testing.T) {
	assert.Equal(t, "404.10 USD", MustNew(40410, "USD").String())
	assert.Equal(t, "1200 JPY", MustNew(1200, "JPY").String())
}

func TestArithmeticRejectsCurrencyMismatch(t *testing.T) {
	usd := MustNew(100, "USD")
	eur := MustNew(100, "EUR")

	_, err := usd.Add(eur)
	require.ErrorIs(t, err, ErrCurrencyMismatch)
	_, err = usd.Sub(eur)
	require.ErrorIs(t, err, ErrCurrencyMismatch)
	_, err = usd.Cmp(eur)
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	sum, err := usd.Add(MustNew(250, "USD"))
	require.NoError(t, err)
	assert.Equal(t, int64(350), sum.Amount)

	cmp, err := usd.Cmp(MustNew(99, "USD"))
	require.NoError(t, err)
	assert.Equal(t, 1, cmp)
}

func TestArithmeticDetectsOverflow(t *testing.T) {
	price := MustNew(44900, "USD")

	total, err := price.Mul(1000)
	require.NoError(t, err)
	assert.Equal(t, int64(44_900_000), total.Amount)

	_, err = price.Mul(math.MaxInt64/44900 + 1)
	require.ErrorIs(t, err, ErrOverflow)
	_, err = MustNew(-1, "USD").Mul(math.MinInt64)
	require.ErrorIs(t, err, ErrOverflow)
	_, err = MustNew(math.MinInt64, "USD").Mul(-1)
	require.ErrorIs(t, err, ErrOverflow)

	zero, err := MustNew(0, "USD").Mul(math.MaxInt64)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = MustNew(math.MaxInt64, "USD").Add(MustNew(1, "USD"))
	require.ErrorIs(t, err, ErrOverflow)
	_, err = MustNew(math.MinInt64, "USD").Sub(MustNew(1, "USD"))
	require.ErrorIs(t, err, ErrOverflow)
	_, err = MustNew(0, "USD").Sub(MustNew(math.MinInt64, "USD"))
	require.ErrorIs(t, err, ErrOverflow)

	diff, err := MustNew(-5, "USD").Sub(MustNew(-7, "USD"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), diff.Amount)
}

func TestPercentOffRoundsOnce(t *testing.T) {
	price := MustNew(44900, "USD")

	assert.Equal(t, int64(40410), price.PercentOff(decimal.NewFromInt(10)).Amount)
	assert.Equal(t, int64(38165), price.PercentOff(decimal.NewFromInt(15)).Amount)
	assert.Equal(t, int64(44900), price.PercentOff(decimal.Zero).Amount)

	// 5 * 0.995 = 4.975 -> 5
	assert.Equal(t, int64(5), MustNew(5, "USD").PercentOff(decimal.RequireFromString("0.5")).Amount)
	// 999 * 0.875 = 874.125 -> 874
	assert.Equal(t, int64(874), MustNew(999, "USD").PercentOff(decimal.RequireFromString("12.5")).Amount)
}

func TestRoundHalfUp(t *testing.T) {
	cases := map[string]string{
		"44.32":  "44.3",
		"44.35":  "44.4",
		"-10.02": "-10",
		"-12.35": "-12.3",
		"-12.36": "-12.4",
	}
	for in, want := range cases {
		got := RoundHalfUp(decimal.RequireFromString(in), 1)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s -> %s, want %s", in, got, want)
	}
}

func TestJSON(t *testing.T) {
	raw, err := json.Marshal(MustNew(38165, "USD"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":38165,"currency":"USD"}`, string(raw))

	var m Money
	require.NoError(t, json.Unmarshal([]byte(`{"amount":100,"currency":"eur"}`), &m))
	assert.Equal(t, MustNew(100, "EUR"), m)

	require.Error(t, json.Unmarshal([]byte(`{"currency":"EUR"}`), &m))
	require.Error(t, json.Unmarshal([]byte(`{"amount":1,"currency":"NOPE"}`), &m))
}

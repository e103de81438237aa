package money_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-quotation/internal/money"
)

func TestParseRejectsExcessPrecision(t *testing.T) {
	_, err := money.Parse("10.005", money.THB)
	require.ErrorIs(t, err, money.ErrInvalidAmount)

	m, err := money.Parse("10.500", money.THB)
	require.NoError(t, err)
	require.True(t, m.Equal(money.MustParse("10.5")))
}

func TestParseRejectsNonFinite(t *testing.T) {
	for _, in := range []string{"NaN", "inf", "-Infinity", "abc", ""} {
		_, err := money.Parse(in, money.THB)
		require.ErrorIs(t, err, money.ErrInvalidAmount, in)
	}
}

func TestNewFromFloat(t *testing.T) {
	_, err := money.NewFromFloat(math.NaN(), money.THB)
	require.ErrorIs(t, err, money.ErrInvalidAmount)
	_, err = money.NewFromFloat(math.Inf(1), money.THB)
	require.ErrorIs(t, err, money.ErrInvalidAmount)

	m, err := money.NewFromFloat(19.99, money.THB)
	require.NoError(t, err)
	require.Equal(t, "19.99", m.String())
}

func TestNewRejectsOversizedValues(t *testing.T) {
	_, err := money.New(decimal.New(1, money.MaxIntegerDigits), money.THB)
	require.ErrorIs(t, err, money.ErrInvalidAmount)
}

func TestArithmeticKeepsFullPrecision(t *testing.T) {
	price := money.MustParse("19.99")
	gross := price.Mul(decimal.RequireFromString("2.5"))
	require.Equal(t, "49.975", gross.String())
	require.Equal(t, "6.246875", gross.PercentageOf(decimal.RequireFromString("12.5")).String())
	require.True(t, gross.Sub(money.MustParse("50")).IsNegative())
	require.True(t, gross.Sub(money.MustParse("50")).ClampZero().IsZero())
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	cases := map[string]string{
		"21.945":  "21.95",
		"2.675":   "2.68",
		"-2.675":  "-2.68",
		"0.005":   "0.01",
		"0.0049":  "0.00",
		"100":     "100.00",
		"335.445": "335.45",
	}
	for in, want := range cases {
		got := money.FromDecimal(decimal.RequireFromString(in)).RoundToCents()
		require.Equal(t, want, got.String(), in)
	}
}

func TestDivKeepsSixteenPlaces(t *testing.T) {
	q := money.MustParse("100").Div(decimal.RequireFromString("1.07"))
	require.Equal(t, "93.46", q.RoundToCents().String())
	require.Equal(t, int32(-16), q.Decimal().Exponent())
}

func TestFinalize(t *testing.T) {
	m, err := money.THB.Finalize(money.FromDecimal(decimal.RequireFromString("7.004999")))
	require.NoError(t, err)
	require.Equal(t, "7.00", m.String())

	_, err = money.THB.Finalize(money.FromDecimal(decimal.New(2, money.MaxIntegerDigits)))
	require.ErrorIs(t, err, money.ErrInvalidAmount)
}

func TestJSON(t *testing.T) {
	raw, err := json.Marshal(money.MustParse("1").RoundToCents())
	require.NoError(t, err)
	require.Equal(t, `"1.00"`, string(raw))

	var fromString, fromNumber money.Money
	require.NoError(t, json.Unmarshal([]byte(`"12.30"`), &fromString))
	require.NoError(t, json.Unmarshal([]byte(`12.3`), &fromNumber))
	require.True(t, fromString.Equal(fromNumber))
}

package pricing_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-quotation/internal/money"
	"github.com/noah-isme/toko-quotation/internal/pricing"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func item(qty, price string) pricing.LineItem {
	return pricing.LineItem{Quantity: dec(qty), UnitPrice: money.MustParse(price)}
}

func vat(rate string, mode pricing.TaxMode) pricing.TaxConfig {
	return pricing.TaxConfig{Rate: dec(rate), Mode: mode}
}

func TestExclusiveTax(t *testing.T) {
	totals, err := pricing.ComputeDocumentTotals(
		[]pricing.LineItem{item("1", "100.00")},
		pricing.DocumentDiscount{},
		vat("7", pricing.TaxExclusive),
		pricing.WithholdingConfig{},
	)
	require.NoError(t, err)
	require.Equal(t, "100.00", totals.Subtotal.String())
	require.Equal(t, "7.00", totals.TaxAmount.String())
	require.Equal(t, "107.00", totals.GrossTotal.String())
	require.Equal(t, "107.00", totals.NetPayable.String())
}

func TestInclusiveTax(t *testing.T) {
	totals, err := pricing.ComputeDocumentTotals(
		[]pricing.LineItem{item("1", "107.00")},
		pricing.DocumentDiscount{},
		vat("7", pricing.TaxInclusive),
		pricing.WithholdingConfig{},
	)
	require.NoError(t, err)
	require.Equal(t, "100.00", totals.Subtotal.String())
	require.Equal(t, "7.00", totals.TaxAmount.String())
	require.Equal(t, "107.00", totals.GrossTotal.String())
}

func TestInclusiveTaxRoundsFieldsIndependently(t *testing.T) {
	totals, err := pricing.ComputeDocumentTotals(
		[]pricing.LineItem{item("1", "100.00")},
		pricing.DocumentDiscount{},
		vat("7", pricing.TaxInclusive),
		pricing.WithholdingConfig{},
	)
	require.NoError(t, err)
	// 100 / 1.07 = 93.457943...
	require.Equal(t, "93.46", totals.Subtotal.String())
	require.Equal(t, "6.54", totals.TaxAmount.String())
	require.Equal(t, "100.00", totals.GrossTotal.String())
}

func TestEndToEndQuotation(t *testing.T) {
	items := []pricing.LineItem{
		item("3", "50.00"),
		{Quantity: dec("1"), UnitPrice: money.MustParse("200.00"), LineDiscountPercent: dec("10")},
	}
	totals, err := pricing.ComputeDocumentTotals(items,
		pricing.DocumentDiscount{Percent: dec("5")},
		vat("7", pricing.TaxExclusive),
		pricing.WithholdingConfig{},
	)
	require.NoError(t, err)
	require.Len(t, totals.Lines, 2)
	require.Equal(t, "150.00", totals.Lines[0].String())
	require.Equal(t, "180.00", totals.Lines[1].String())
	require.Equal(t, "330.00", totals.LineSum.String())
	require.Equal(t, "16.50", totals.DiscountTotal.String())
	require.Equal(t, "313.50", totals.Subtotal.String())
	require.Equal(t, "21.95", totals.TaxAmount.String())
	require.Equal(t, "335.45", totals.GrossTotal.String())
	require.Equal(t, "0.00", totals.WithholdingAmount.String())
	require.Equal(t, "335.45", totals.NetPayable.String())
}

func TestDocumentDiscountPercentBeforeAmount(t *testing.T) {
	totals, err := pricing.ComputeDocumentTotals(
		[]pricing.LineItem{item("1", "200.00")},
		pricing.DocumentDiscount{Percent: dec("10"), Amount: money.MustParse("20.00")},
		vat("0", pricing.TaxExclusive),
		pricing.WithholdingConfig{},
	)
	require.NoError(t, err)
	// (200 - 10%) - 20 = 160; amount first would give 162.
	require.Equal(t, "160.00", totals.Subtotal.String())
	require.Equal(t, "0.00", totals.TaxAmount.String())
}

func TestDiscountFloor(t *testing.T) {
	line := pricing.LineItem{Quantity: dec("1"), UnitPrice: money.MustParse("10.00"), LineDiscountAmount: money.MustParse("50.00")}
	net, err := pricing.ResolveLine(line)
	require.NoError(t, err)
	require.True(t, net.IsZero())
	require.False(t, net.IsNegative())

	totals, err := pricing.ComputeDocumentTotals([]pricing.LineItem{line}, pricing.DocumentDiscount{}, vat("7", pricing.TaxExclusive), pricing.WithholdingConfig{})
	require.NoError(t, err)
	require.Equal(t, "0.00", totals.Lines[0].String())
	require.Equal(t, "0.00", totals.GrossTotal.String())
}

func TestDocumentDiscountExceedingSubtotalFloorsAtZero(t *testing.T) {
	totals, err := pricing.ComputeDocumentTotals(
		[]pricing.LineItem{item("2", "15.00")},
		pricing.DocumentDiscount{Amount: money.MustParse("100.00")},
		vat("7", pricing.TaxInclusive),
		pricing.WithholdingConfig{Enabled: true, Percent: dec("3")},
	)
	require.NoError(t, err)
	for _, m := range []money.Money{totals.Subtotal, totals.TaxAmount, totals.GrossTotal, totals.WithholdingAmount, totals.NetPayable} {
		require.False(t, m.IsNegative())
		require.True(t, m.IsZero())
	}
	require.Equal(t, "30.00", totals.DiscountTotal.String())
}

func TestWithholdingDeduction(t *testing.T) {
	totals, err := pricing.ComputeDocumentTotals(
		[]pricing.LineItem{item("1", "1000.00")},
		pricing.DocumentDiscount{},
		vat("0", pricing.TaxExclusive),
		pricing.WithholdingConfig{Enabled: true, Percent: dec("3")},
	)
	require.NoError(t, err)
	require.Equal(t, "1000.00", totals.GrossTotal.String())
	require.Equal(t, "30.00", totals.WithholdingAmount.String())
	require.Equal(t, "970.00", totals.NetPayable.String())
}

func TestWithholdingLeavesTaxFiguresUntouched(t *testing.T) {
	totals, err := pricing.ComputeDocumentTotals(
		[]pricing.LineItem{item("1", "1000.00")},
		pricing.DocumentDiscount{},
		vat("7", pricing.TaxExclusive),
		pricing.WithholdingConfig{Enabled: true, Percent: dec("3")},
	)
	require.NoError(t, err)
	require.Equal(t, "1000.00", totals.Subtotal.String())
	require.Equal(t, "70.00", totals.TaxAmount.String())
	require.Equal(t, "1070.00", totals.GrossTotal.String())
	require.Equal(t, "32.10", totals.WithholdingAmount.String())
	require.Equal(t, "1037.90", totals.NetPayable.String())
}

func TestWithholdingDisabledIgnoresPercent(t *testing.T) {
	totals, err := pricing.ComputeDocumentTotals(
		[]pricing.LineItem{item("1", "1000.00")},
		pricing.DocumentDiscount{},
		vat("0", pricing.TaxExclusive),
		pricing.WithholdingConfig{Enabled: false, Percent: dec("3")},
	)
	require.NoError(t, err)
	require.True(t, totals.WithholdingAmount.IsZero())
	require.Equal(t, "1000.00", totals.NetPayable.String())
}

func TestRoundingOnlyAtFinalisation(t *testing.T) {
	items := []pricing.LineItem{item("0.333", "1.00"), item("0.333", "1.00"), item("0.333", "1.00")}
	totals, err := pricing.ComputeDocumentTotals(items, pricing.DocumentDiscount{}, vat("0", pricing.TaxExclusive), pricing.WithholdingConfig{})
	require.NoError(t, err)
	// per-line rounding would give 0.33 * 3 = 0.99
	require.Equal(t, "1.00", totals.Subtotal.String())
	require.Equal(t, "0.33", totals.Lines[0].String())
}

func TestEmptyModeDefaultsToExclusive(t *testing.T) {
	totals, err := pricing.ComputeDocumentTotals([]pricing.LineItem{item("1", "100.00")}, pricing.DocumentDiscount{}, pricing.TaxConfig{Rate: dec("7")}, pricing.WithholdingConfig{})
	require.NoError(t, err)
	require.Equal(t, "107.00", totals.GrossTotal.String())
}

func TestComputeIsIdempotent(t *testing.T) {
	items := []pricing.LineItem{
		item("3", "50.00"),
		{Quantity: dec("2.5"), UnitPrice: money.MustParse("19.99"), LineDiscountPercent: dec("12.5"), LineDiscountAmount: money.MustParse("1.00")},
	}
	discount := pricing.DocumentDiscount{Percent: dec("5"), Amount: money.MustParse("3.00")}
	tax := vat("7", pricing.TaxInclusive)
	wht := pricing.WithholdingConfig{Enabled: true, Percent: dec("1")}

	first, err := pricing.ComputeDocumentTotals(items, discount, tax, wht)
	require.NoError(t, err)
	second, err := pricing.ComputeDocumentTotals(items, discount, tax, wht)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))
}

func TestOutOfRangeResultIsInvalidAmount(t *testing.T) {
	_, err := pricing.ComputeDocumentTotals(
		[]pricing.LineItem{item("1000", "999999999999.99")},
		pricing.DocumentDiscount{},
		vat("7", pricing.TaxExclusive),
		pricing.WithholdingConfig{},
	)
	require.Error(t, err)
	require.True(t, errors.Is(err, money.ErrInvalidAmount))
}

func TestEngineUsesCurrencyPrecision(t *testing.T) {
	yen := money.Currency{Code: "JPY", Symbol: "¥", Precision: 0}
	engine := pricing.NewEngine(yen)
	totals, err := engine.ComputeDocumentTotals(
		[]pricing.LineItem{{Quantity: dec("1"), UnitPrice: money.FromDecimal(dec("1005"))}},
		pricing.DocumentDiscount{},
		vat("10", pricing.TaxExclusive),
		pricing.WithholdingConfig{},
	)
	require.NoError(t, err)
	// 100.5 rounds half away from zero
	require.Equal(t, "101", totals.TaxAmount.String())
	require.Equal(t, "1106", totals.GrossTotal.String())
}

func TestLineSum(t *testing.T) {
	engine := pricing.NewEngine(money.THB)
	sum, err := engine.LineSum([]pricing.LineItem{item("3", "50.00"), item("1", "0.50")})
	require.NoError(t, err)
	require.True(t, sum.Equal(money.MustParse("150.50")))

	_, err = engine.LineSum(nil)
	require.ErrorIs(t, err, pricing.ErrValidation)
}

func TestDecodedAmountsAreCheckedAgainstCurrency(t *testing.T) {
	var line pricing.LineItem
	require.NoError(t, json.Unmarshal([]byte(`{"quantity":"1","unitPrice":"10.005"}`), &line))

	_, err := pricing.ComputeDocumentTotals([]pricing.LineItem{line}, pricing.DocumentDiscount{}, vat("7", pricing.TaxExclusive), pricing.WithholdingConfig{})
	require.ErrorIs(t, err, money.ErrInvalidAmount)
	require.Contains(t, err.Error(), "items[0].unitPrice")

	yen := pricing.NewEngine(money.Currency{Code: "JPY", Precision: 0})
	_, err = yen.ComputeDocumentTotals(
		[]pricing.LineItem{item("1", "100")},
		pricing.DocumentDiscount{Amount: money.MustParse("0.50")},
		vat("10", pricing.TaxExclusive),
		pricing.WithholdingConfig{},
	)
	require.ErrorIs(t, err, money.ErrInvalidAmount)
	require.Contains(t, err.Error(), "documentDiscount.amount")
}

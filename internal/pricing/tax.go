package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-quotation/internal/money"
)

// TaxMode tells whether the discounted subtotal already contains tax.
type TaxMode string

const (
	// TaxExclusive adds tax on top of the discounted subtotal.
	TaxExclusive TaxMode = "exclusive"
	// TaxInclusive extracts tax from the discounted subtotal.
	TaxInclusive TaxMode = "inclusive"
)

// ParseTaxMode accepts the mode case-insensitively. Empty input means exclusive.
func ParseTaxMode(value string) TaxMode {
	switch mode := TaxMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case "":
		return TaxExclusive
	default:
		return mode
	}
}

func (t TaxConfig) normalized() TaxConfig {
	t.Mode = ParseTaxMode(string(t.Mode))
	return t
}

var one = decimal.NewFromInt(1)

type aggregation struct {
	lineSum    money.Money
	afterFixed money.Money
	subtotal   money.Money
	tax        money.Money
	gross      money.Money
}

// aggregate folds line nets into unrounded subtotal, tax and gross figures.
func aggregate(nets []money.Money, discount DocumentDiscount, tax TaxConfig) aggregation {
	lineSum := money.Zero()
	for _, n := range nets {
		lineSum = lineSum.Add(n)
	}
	afterPercent := lineSum.Sub(lineSum.PercentageOf(discount.Percent))
	afterFixed := afterPercent.Sub(discount.Amount).ClampZero()

	out := aggregation{lineSum: lineSum, afterFixed: afterFixed}
	switch tax.Mode {
	case TaxInclusive:
		divisor := one.Add(tax.Rate.Shift(-2))
		out.tax = afterFixed.Sub(afterFixed.Div(divisor))
		out.subtotal = afterFixed.Sub(out.tax)
		out.gross = afterFixed
	default:
		out.tax = afterFixed.PercentageOf(tax.Rate)
		out.subtotal = afterFixed
		out.gross = afterFixed.Add(out.tax)
	}
	return out
}

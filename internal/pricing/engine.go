package pricing

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-quotation/internal/money"
)

// LineItem describes one priced row of a commercial document.
type LineItem struct {
	Quantity            decimal.Decimal `json:"quantity" validate:"dgt=0"`
	UnitPrice           money.Money     `json:"unitPrice" validate:"dgte=0"`
	LineDiscountPercent decimal.Decimal `json:"lineDiscountPercent" validate:"dgte=0,dlte=100"`
	LineDiscountAmount  money.Money     `json:"lineDiscountAmount" validate:"dgte=0"`
}

// DocumentDiscount is applied to the sum of line nets, percent first and then amount.
type DocumentDiscount struct {
	Percent decimal.Decimal `json:"percent" validate:"dgte=0,dlte=100"`
	Amount  money.Money     `json:"amount" validate:"dgte=0"`
}

// TaxConfig selects the VAT rate and whether prices already include it.
type TaxConfig struct {
	Rate decimal.Decimal `json:"rate" validate:"dgte=0,dlte=100"`
	Mode TaxMode         `json:"mode" validate:"oneof=exclusive inclusive"`
}

// WithholdingConfig controls the withholding deduction applied to the gross total.
type WithholdingConfig struct {
	Enabled bool            `json:"enabled"`
	Percent decimal.Decimal `json:"percent" validate:"dgte=0,dlte=100"`
}

// DocumentTotals is the finalised result of a computation. Every amount is rounded once.
type DocumentTotals struct {
	Subtotal          money.Money `json:"subtotal"`
	TaxAmount         money.Money `json:"taxAmount"`
	GrossTotal        money.Money `json:"grossTotal"`
	WithholdingAmount money.Money `json:"withholdingAmount"`
	NetPayable        money.Money `json:"netPayable"`

	// Display-only figures; none of the totals above are derived from them.
	Lines         []money.Money `json:"lines"`
	LineSum       money.Money   `json:"lineSum"`
	DiscountTotal money.Money   `json:"discountTotal"`
}

// Engine computes document totals for a single currency. It holds no mutable state.
type Engine struct {
	Currency money.Currency
}

// NewEngine returns an engine finalising amounts with the given currency precision.
func NewEngine(cur money.Currency) *Engine {
	return &Engine{Currency: cur}
}

var defaultEngine = NewEngine(money.THB)

// ComputeDocumentTotals computes totals with the default currency.
func ComputeDocumentTotals(items []LineItem, discount DocumentDiscount, tax TaxConfig, withholding WithholdingConfig) (DocumentTotals, error) {
	return defaultEngine.ComputeDocumentTotals(items, discount, tax, withholding)
}

// ComputeDocumentTotals validates the inputs, then resolves lines, aggregates, applies
// tax and withholding. It never returns a partial result.
func (e *Engine) ComputeDocumentTotals(items []LineItem, discount DocumentDiscount, tax TaxConfig, withholding WithholdingConfig) (DocumentTotals, error) {
	tax = tax.normalized()
	if err := e.checkAmounts(items, discount); err != nil {
		return DocumentTotals{}, err
	}
	if err := ValidateDocument(items, discount, tax, withholding); err != nil {
		return DocumentTotals{}, err
	}

	nets := make([]money.Money, len(items))
	for i, item := range items {
		nets[i] = lineNet(item)
	}
	agg := aggregate(nets, discount, tax)

	subtotal, err := e.Currency.Finalize(agg.subtotal)
	if err != nil {
		return DocumentTotals{}, err
	}
	taxAmount, err := e.Currency.Finalize(agg.tax)
	if err != nil {
		return DocumentTotals{}, err
	}
	gross, err := e.Currency.Finalize(agg.gross)
	if err != nil {
		return DocumentTotals{}, err
	}
	withheld, net := applyWithholding(gross, withholding, e.Currency.Precision)

	lines := make([]money.Money, len(nets))
	for i, n := range nets {
		if lines[i], err = e.Currency.Finalize(n); err != nil {
			return DocumentTotals{}, err
		}
	}
	lineSum, err := e.Currency.Finalize(agg.lineSum)
	if err != nil {
		return DocumentTotals{}, err
	}
	discountTotal, err := e.Currency.Finalize(agg.lineSum.Sub(agg.afterFixed))
	if err != nil {
		return DocumentTotals{}, err
	}

	return DocumentTotals{
		Subtotal:          subtotal,
		TaxAmount:         taxAmount,
		GrossTotal:        gross,
		WithholdingAmount: withheld,
		NetPayable:        net,
		Lines:             lines,
		LineSum:           lineSum,
		DiscountTotal:     discountTotal,
	}, nil
}

// LineSum validates items and returns the unrounded sum of their nets. Vouchers use it
// to check minimum spend before the document discount is known.
func (e *Engine) LineSum(items []LineItem) (money.Money, error) {
	if err := ValidateItems(items); err != nil {
		return money.Money{}, err
	}
	sum := money.Zero()
	for _, item := range items {
		sum = sum.Add(lineNet(item))
	}
	return sum, nil
}

// checkAmounts rejects input amounts that do not fit the engine currency. Money decoded
// from JSON carries no precision check of its own.
func (e *Engine) checkAmounts(items []LineItem, discount DocumentDiscount) error {
	check := func(field string, m money.Money) error {
		if _, err := money.New(m.Decimal(), e.Currency); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		return nil
	}
	for i, item := range items {
		prefix := "items[" + strconv.Itoa(i) + "]."
		if err := check(prefix+"unitPrice", item.UnitPrice); err != nil {
			return err
		}
		if err := check(prefix+"lineDiscountAmount", item.LineDiscountAmount); err != nil {
			return err
		}
	}
	return check("documentDiscount.amount", discount.Amount)
}

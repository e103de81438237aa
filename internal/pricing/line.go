package pricing

import "github.com/noah-isme/toko-quotation/internal/money"

// ResolveLine validates a single item and returns its unrounded net amount.
func ResolveLine(item LineItem) (money.Money, error) {
	if err := validateLine(item); err != nil {
		return money.Money{}, err
	}
	return lineNet(item), nil
}

// lineNet assumes a validated item. A discount larger than the line floors at zero.
func lineNet(item LineItem) money.Money {
	gross := item.UnitPrice.Mul(item.Quantity)
	percentOff := gross.PercentageOf(item.LineDiscountPercent)
	return gross.Sub(percentOff).Sub(item.LineDiscountAmount).ClampZero()
}

package pricing

import "github.com/noah-isme/toko-quotation/internal/money"

// applyWithholding deducts withholding tax from the finalised gross total. Subtotal and
// tax are left untouched; the net payable is the cash actually collected.
func applyWithholding(gross money.Money, cfg WithholdingConfig, places int32) (withheld, net money.Money) {
	withheld = money.Zero().Round(places)
	if cfg.Enabled {
		withheld = gross.PercentageOf(cfg.Percent).Round(places)
	}
	net = gross.Sub(withheld).ClampZero().Round(places)
	return withheld, net
}

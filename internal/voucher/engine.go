package voucher

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-quotation/internal/money"
	"github.com/noah-isme/toko-quotation/internal/pricing"
)

var (
	// ErrNotEligible is returned when the voucher cannot be applied to the provided document.
	ErrNotEligible = errors.New("voucher not eligible")
	// ErrUsageLimitReached indicates the voucher has exhausted the global usage quota.
	ErrUsageLimitReached = errors.New("voucher usage limit reached")
	// ErrVoucherInactive is returned when attempting to use a voucher outside of its active window.
	ErrVoucherInactive = errors.New("voucher not active")
	// ErrVoucherExpired is returned when the voucher has already expired.
	ErrVoucherExpired = errors.New("voucher expired")
	// ErrMinimumSpendUnmet indicates the line sum did not meet the voucher requirement.
	ErrMinimumSpendUnmet = errors.New("voucher minimum spend not met")
)

// Kind selects how the voucher value is interpreted.
type Kind string

const (
	// KindPercent takes Percent off the line sum.
	KindPercent Kind = "percent"
	// KindFixed takes Amount off the line sum.
	KindFixed Kind = "fixed"
)

// Rule captures the runtime constraints of a voucher.
type Rule struct {
	Code       string
	Kind       Kind
	Percent    decimal.Decimal
	Amount     money.Money
	MinSpend   money.Money
	UsageLimit *int32
	UsedCount  int32
	ValidFrom  *time.Time
	ValidTo    *time.Time
}

// Validate ensures the rule can be applied at the provided instant and line sum.
func (r Rule) Validate(now time.Time, lineSum money.Money) error {
	if lineSum.Cmp(r.MinSpend) < 0 {
		return ErrMinimumSpendUnmet
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrVoucherInactive
	}
	if r.ValidTo != nil && now.After(*r.ValidTo) {
		return ErrVoucherExpired
	}
	if r.UsageLimit != nil && *r.UsageLimit >= 0 && r.UsedCount >= *r.UsageLimit {
		return ErrUsageLimitReached
	}
	return nil
}

// Discount converts the rule into the document discount it grants. A percent voucher
// without a positive percent grants nothing.
func (r Rule) Discount() pricing.DocumentDiscount {
	if strings.EqualFold(string(r.Kind), string(KindPercent)) {
		if !r.Percent.IsPositive() {
			return pricing.DocumentDiscount{}
		}
		return pricing.DocumentDiscount{Percent: r.Percent}
	}
	if r.Amount.IsNegative() {
		return pricing.DocumentDiscount{}
	}
	return pricing.DocumentDiscount{Amount: r.Amount}
}

package voucher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-quotation/internal/money"
)

func TestDiscountPercent(t *testing.T) {
	rule := Rule{Kind: KindPercent, Percent: decimal.NewFromInt(20)}
	discount := rule.Discount()
	if !discount.Percent.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected 20 percent, got %s", discount.Percent)
	}
	if !discount.Amount.IsZero() {
		t.Fatalf("expected no fixed amount, got %s", discount.Amount)
	}
}

func TestDiscountFixed(t *testing.T) {
	rule := Rule{Kind: KindFixed, Amount: money.MustParse("50.00")}
	discount := rule.Discount()
	if !discount.Amount.Equal(money.MustParse("50")) {
		t.Fatalf("expected 50 off, got %s", discount.Amount)
	}
}

func TestValidateWindowAndLimits(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)
	limit := int32(5)

	cases := []struct {
		name string
		rule Rule
		want error
	}{
		{"ok", Rule{ValidFrom: &earlier, ValidTo: &later}, nil},
		{"min spend", Rule{MinSpend: money.MustParse("500")}, ErrMinimumSpendUnmet},
		{"inactive", Rule{ValidFrom: &later}, ErrVoucherInactive},
		{"expired", Rule{ValidTo: &earlier}, ErrVoucherExpired},
		{"usage", Rule{UsageLimit: &limit, UsedCount: 5}, ErrUsageLimitReached},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rule.Validate(now, money.MustParse("330.00"))
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
			require.True(t, IsIneligible(err))
		})
	}
}

type stubStore struct {
	rules map[string]Rule
}

func (s stubStore) GetByCode(_ context.Context, code string) (Rule, error) {
	rule, ok := s.rules[code]
	if !ok {
		return Rule{}, ErrNotEligible
	}
	return rule, nil
}

func TestServiceResolve(t *testing.T) {
	svc := &Service{
		Store: stubStore{rules: map[string]Rule{
			"HEMAT5": {Code: "HEMAT5", Kind: KindPercent, Percent: decimal.NewFromInt(5)},
			"ZERO":   {Code: "ZERO", Kind: KindPercent},
		}},
		Now: func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	}

	res, err := svc.Resolve(context.Background(), " HEMAT5 ", money.MustParse("100"))
	require.NoError(t, err)
	require.Equal(t, "HEMAT5", res.Code)
	require.True(t, res.Discount.Percent.Equal(decimal.NewFromInt(5)))

	_, err = svc.Resolve(context.Background(), "ZERO", money.MustParse("100"))
	require.ErrorIs(t, err, ErrNotEligible)

	_, err = svc.Resolve(context.Background(), "", money.MustParse("100"))
	require.True(t, errors.Is(err, ErrNotEligible))

	_, err = svc.Resolve(context.Background(), "MISSING", money.MustParse("100"))
	require.ErrorIs(t, err, ErrNotEligible)
}

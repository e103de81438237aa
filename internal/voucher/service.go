package voucher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-quotation/internal/money"
	"github.com/noah-isme/toko-quotation/internal/pricing"
)

// ErrStoreUnavailable indicates the voucher store dependency is not configured.
var ErrStoreUnavailable = errors.New("voucher: store unavailable")

// Store loads voucher rules by code.
type Store interface {
	GetByCode(ctx context.Context, code string) (Rule, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

// GetByCode returns ErrNotEligible when no voucher matches the code.
func (s *pgStore) GetByCode(ctx context.Context, code string) (Rule, error) {
	if s == nil || s.pool == nil {
		return Rule{}, ErrStoreUnavailable
	}
	var (
		rule                      Rule
		kind                      string
		percent, amount, minSpend decimal.Decimal
	)
	err := s.pool.QueryRow(ctx, `SELECT code, kind, percent, amount, min_spend, usage_limit, used_count, valid_from, valid_to
FROM vouchers WHERE upper(code) = upper($1)`, code).Scan(
		&rule.Code, &kind, &percent, &amount, &minSpend, &rule.UsageLimit, &rule.UsedCount, &rule.ValidFrom, &rule.ValidTo,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, ErrNotEligible
		}
		return Rule{}, err
	}
	rule.Kind = Kind(kind)
	rule.Percent = percent
	rule.Amount = money.FromDecimal(amount)
	rule.MinSpend = money.FromDecimal(minSpend)
	return rule, nil
}

// Service resolves voucher codes into document discounts.
type Service struct {
	Store Store
	Now   func() time.Time
}

// Result describes a voucher that can be applied to a document.
type Result struct {
	Code     string
	Discount pricing.DocumentDiscount
}

// Resolve looks up code and checks it against the document line sum.
func (s *Service) Resolve(ctx context.Context, code string, lineSum money.Money) (Result, error) {
	if s == nil || s.Store == nil {
		return Result{}, errors.New("voucher service not configured")
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return Result{}, fmt.Errorf("code is required: %w", ErrNotEligible)
	}
	rule, err := s.Store.GetByCode(ctx, trimmed)
	if err != nil {
		return Result{}, err
	}
	if err := rule.Validate(s.now(), lineSum); err != nil {
		return Result{}, err
	}
	discount := rule.Discount()
	if discount.Percent.IsZero() && discount.Amount.IsZero() {
		return Result{}, ErrNotEligible
	}
	return Result{Code: rule.Code, Discount: discount}, nil
}

// IsIneligible reports whether err is one of the voucher eligibility errors.
func IsIneligible(err error) bool {
	return errors.Is(err, ErrNotEligible) ||
		errors.Is(err, ErrUsageLimitReached) ||
		errors.Is(err, ErrVoucherInactive) ||
		errors.Is(err, ErrVoucherExpired) ||
		errors.Is(err, ErrMinimumSpendUnmet)
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

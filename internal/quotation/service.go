package quotation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/toko-quotation/internal/money"
	"github.com/noah-isme/toko-quotation/internal/obs"
	"github.com/noah-isme/toko-quotation/internal/pricing"
	"github.com/noah-isme/toko-quotation/internal/voucher"
)

var (
	nopLogger = zerolog.Nop()
	tracer    = otel.Tracer("github.com/noah-isme/toko-quotation/internal/quotation")
)

// VoucherResolver turns a voucher code into a document discount.
type VoucherResolver interface {
	Resolve(ctx context.Context, code string, lineSum money.Money) (voucher.Result, error)
}

// Service prices and persists quotations.
type Service struct {
	Store     Store
	Cache     *Cache
	Engine    *pricing.Engine
	Vouchers  VoucherResolver
	Scheduler Scheduler

	// DefaultTax applies when the input carries no tax configuration.
	DefaultTax     pricing.TaxConfig
	NumberTemplate string
	// Validity sets ValidUntil when the input leaves it empty. Zero means no expiry.
	Validity time.Duration
	Now      func() time.Time
	Logger   *zerolog.Logger
}

type computed struct {
	totals      pricing.DocumentTotals
	discount    pricing.DocumentDiscount
	tax         pricing.TaxConfig
	voucherCode string
}

// Preview computes totals without persisting anything.
func (s *Service) Preview(ctx context.Context, in Input) (pricing.DocumentTotals, error) {
	ctx, span := tracer.Start(ctx, "quotation.Preview")
	defer span.End()

	c, err := s.compute(ctx, in)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return pricing.DocumentTotals{}, err
	}
	return c.totals, nil
}

// Create computes totals, numbers the quotation and stores it as a draft.
func (s *Service) Create(ctx context.Context, in Input) (Quotation, error) {
	ctx, span := tracer.Start(ctx, "quotation.Create")
	defer span.End()

	q, err := s.create(ctx, in)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Quotation{}, err
	}
	span.SetAttributes(
		attribute.String("quotation.id", q.ID.String()),
		attribute.String("quotation.number", q.Number),
	)
	return q, nil
}

func (s *Service) create(ctx context.Context, in Input) (Quotation, error) {
	if s.Store == nil {
		return Quotation{}, ErrStoreUnavailable
	}
	now := s.now().UTC()

	var extra []pricing.Violation
	customer := strings.TrimSpace(in.CustomerName)
	if customer == "" {
		extra = append(extra, pricing.Violation{Field: "customerName", Reason: "is required"})
	}
	validUntil := in.ValidUntil
	if validUntil != nil && !validUntil.After(now) {
		extra = append(extra, pricing.Violation{Field: "validUntil", Reason: "must be in the future"})
	}

	c, err := s.compute(ctx, in)
	if err != nil {
		if errors.Is(err, pricing.ErrValidation) {
			s.recordViolations(extra)
		}
		return Quotation{}, mergeViolations(err, extra)
	}
	if len(extra) > 0 {
		s.recordViolations(extra)
		return Quotation{}, &pricing.ValidationError{Violations: extra}
	}

	if validUntil == nil && s.Validity > 0 {
		until := now.Add(s.Validity)
		validUntil = &until
	}
	seq, err := s.Store.NextSequence(ctx)
	if err != nil {
		return Quotation{}, fmt.Errorf("next quotation sequence: %w", err)
	}
	template := s.NumberTemplate
	if template == "" {
		template = DefaultNumberTemplate
	}
	number, err := FormatNumber(template, now, seq)
	if err != nil {
		return Quotation{}, err
	}

	q := Quotation{
		ID:           uuid.New(),
		Number:       number,
		CustomerName: customer,
		Currency:     s.engine().Currency.Code,
		Status:       StatusDraft,
		Items:        in.Items,
		Discount:     c.discount,
		Tax:          c.tax,
		Withholding:  in.Withholding,
		VoucherCode:  c.voucherCode,
		Totals:       c.totals,
		Notes:        strings.TrimSpace(in.Notes),
		ValidUntil:   validUntil,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Insert(ctx, q); err != nil {
		return Quotation{}, fmt.Errorf("insert quotation: %w", err)
	}

	log := s.logger()
	if err := s.Cache.Set(ctx, q); err != nil {
		log.Warn().Err(err).Str("quotation_id", q.ID.String()).Msg("cache quotation")
	}
	if q.ValidUntil != nil && s.Scheduler != nil {
		if err := s.Scheduler.ScheduleExpiry(ctx, q.ID, *q.ValidUntil); err != nil {
			log.Error().Err(err).Str("quotation_id", q.ID.String()).Msg("schedule quotation expiry")
		}
	}

	if obs.QuotationCreatedTotal != nil {
		obs.QuotationCreatedTotal.Inc()
	}
	if obs.QuotationGrossTotal != nil {
		obs.QuotationGrossTotal.Observe(q.Totals.GrossTotal.Decimal().InexactFloat64())
	}
	log.Info().
		Str("quotation_id", q.ID.String()).
		Str("number", q.Number).
		Str("gross_total", q.Totals.GrossTotal.String()).
		Msg("quotation created")
	return q, nil
}

// Get reads through the Redis cache.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Quotation, error) {
	if q, ok, err := s.Cache.Get(ctx, id); err != nil {
		s.logger().Warn().Err(err).Str("quotation_id", id.String()).Msg("read quotation cache")
	} else if ok {
		return q, nil
	}
	if s.Store == nil {
		return Quotation{}, ErrStoreUnavailable
	}
	q, err := s.Store.Get(ctx, id)
	if err != nil {
		return Quotation{}, err
	}
	if err := s.Cache.Set(ctx, q); err != nil {
		s.logger().Warn().Err(err).Str("quotation_id", id.String()).Msg("cache quotation")
	}
	return q, nil
}

// List returns one page of quotations, newest first, and the total count.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Quotation, int64, error) {
	if s.Store == nil {
		return nil, 0, ErrStoreUnavailable
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	items, err := s.Store.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Store.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Transition moves a quotation to status to.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to Status) (Quotation, error) {
	if !to.Valid() {
		v := []pricing.Violation{{Field: "status", Reason: "must be one of: draft, sent, accepted, rejected, expired"}}
		s.recordViolations(v)
		return Quotation{}, &pricing.ValidationError{Violations: v}
	}
	if s.Store == nil {
		return Quotation{}, ErrStoreUnavailable
	}
	current, err := s.Store.Get(ctx, id)
	if err != nil {
		return Quotation{}, err
	}
	if !current.Status.CanTransition(to) {
		return Quotation{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
	}
	return s.updateStatus(ctx, current, to)
}

// Expire marks a quotation expired once its validity has passed. Quotations that are
// already final, or still valid, are left untouched.
func (s *Service) Expire(ctx context.Context, id uuid.UUID) error {
	if s.Store == nil {
		return ErrStoreUnavailable
	}
	current, err := s.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	log := s.logger().With().Str("quotation_id", id.String()).Logger()
	if current.Status.Final() {
		log.Debug().Str("status", string(current.Status)).Msg("quotation already final")
		return nil
	}
	if current.ValidUntil != nil && s.now().Before(*current.ValidUntil) {
		log.Debug().Time("valid_until", *current.ValidUntil).Msg("quotation still valid")
		return nil
	}
	_, err = s.updateStatus(ctx, current, StatusExpired)
	if errors.Is(err, ErrStatusConflict) {
		latest, getErr := s.Store.Get(ctx, id)
		if getErr == nil && latest.Status.Final() {
			return nil
		}
	}
	return err
}

func (s *Service) updateStatus(ctx context.Context, current Quotation, to Status) (Quotation, error) {
	updated, err := s.Store.UpdateStatus(ctx, current.ID, current.Status, to, s.now().UTC())
	if err != nil {
		return Quotation{}, err
	}
	if err := s.Cache.Delete(ctx, current.ID); err != nil {
		s.logger().Warn().Err(err).Str("quotation_id", current.ID.String()).Msg("evict quotation cache")
	}
	if obs.QuotationTransitionsTotal != nil {
		obs.QuotationTransitionsTotal.WithLabelValues(string(to)).Inc()
	}
	s.logger().Info().
		Str("quotation_id", current.ID.String()).
		Str("from", string(current.Status)).
		Str("to", string(to)).
		Msg("quotation status changed")
	return updated, nil
}

func (s *Service) compute(ctx context.Context, in Input) (computed, error) {
	tax := s.DefaultTax
	if in.Tax != nil {
		tax = *in.Tax
	}
	tax.Mode = pricing.ParseTaxMode(string(tax.Mode))

	items := lineItems(in.Items)
	var c computed
	err := pricing.ValidateDocument(items, in.Discount, tax, in.Withholding)
	if err == nil {
		c, err = s.resolveDiscount(ctx, in, items)
	}
	if err == nil {
		c.tax = tax
		c.totals, err = s.engine().ComputeDocumentTotals(items, c.discount, tax, in.Withholding)
	}
	s.recordComputation(tax.Mode, err)
	if err != nil {
		return computed{}, err
	}
	return c, nil
}

// resolveDiscount runs after the whole document has been validated, so a voucher lookup
// never hides field violations.
func (s *Service) resolveDiscount(ctx context.Context, in Input, items []pricing.LineItem) (computed, error) {
	code := strings.TrimSpace(in.VoucherCode)
	if code == "" {
		return computed{discount: in.Discount}, nil
	}
	if !in.Discount.Percent.IsZero() || !in.Discount.Amount.IsZero() {
		return computed{}, ErrVoucherConflict
	}
	if s.Vouchers == nil {
		return computed{}, fmt.Errorf("voucher %q: %w", code, voucher.ErrNotEligible)
	}
	lineSum, err := s.engine().LineSum(items)
	if err != nil {
		return computed{}, err
	}
	res, err := s.Vouchers.Resolve(ctx, code, lineSum)
	if err != nil {
		return computed{}, err
	}
	return computed{discount: res.Discount, voucherCode: res.Code}, nil
}

func (s *Service) recordComputation(mode pricing.TaxMode, err error) {
	var verr *pricing.ValidationError
	if errors.As(err, &verr) {
		s.recordViolations(verr.Violations)
	}
	if obs.TotalsComputedTotal == nil {
		return
	}
	label := string(mode)
	if mode != pricing.TaxExclusive && mode != pricing.TaxInclusive {
		label = "invalid"
	}
	result := "ok"
	switch {
	case err == nil:
	case verr != nil:
		result = "invalid"
	default:
		result = "error"
	}
	obs.TotalsComputedTotal.WithLabelValues(label, result).Inc()
}

func (s *Service) recordViolations(violations []pricing.Violation) {
	if obs.ValidationViolationsTotal == nil {
		return
	}
	for _, v := range violations {
		obs.ValidationViolationsTotal.WithLabelValues(metricField(v.Field)).Inc()
	}
}

// metricField strips indexes so "items[3].quantity" is counted as "items.quantity".
func metricField(field string) string {
	var b strings.Builder
	depth := 0
	for _, r := range field {
		switch {
		case r == '[':
			depth++
		case r == ']':
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func mergeViolations(err error, extra []pricing.Violation) error {
	if len(extra) == 0 {
		return err
	}
	var verr *pricing.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	return &pricing.ValidationError{Violations: append(append([]pricing.Violation{}, extra...), verr.Violations...)}
}

func (s *Service) engine() *pricing.Engine {
	if s == nil || s.Engine == nil {
		return pricing.NewEngine(money.THB)
	}
	return s.Engine
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) logger() *zerolog.Logger {
	if s == nil || s.Logger == nil {
		return &nopLogger
	}
	return s.Logger
}

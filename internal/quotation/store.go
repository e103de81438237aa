package quotation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStoreUnavailable indicates the quotation store dependency is not configured.
var ErrStoreUnavailable = errors.New("quotation: store unavailable")

// Store persists quotations.
type Store interface {
	NextSequence(ctx context.Context) (int64, error)
	Insert(ctx context.Context, q Quotation) error
	Get(ctx context.Context, id uuid.UUID) (Quotation, error)
	List(ctx context.Context, limit, offset int) ([]Quotation, error)
	Count(ctx context.Context) (int64, error)
	// UpdateStatus moves id from one status to another and returns ErrStatusConflict
	// when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) (Quotation, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

const selectColumns = `id, number, customer_name, currency, status, items, document_discount, tax, withholding,
voucher_code, totals, notes, valid_until, created_at, updated_at`

func (s *pgStore) NextSequence(ctx context.Context) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, ErrStoreUnavailable
	}
	var seq int64
	if err := s.pool.QueryRow(ctx, `SELECT nextval('quotation_number_seq')`).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

// Insert writes the quotation with its configuration as JSONB and the finalised
// totals duplicated into NUMERIC columns for reporting.
func (s *pgStore) Insert(ctx context.Context, q Quotation) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	items, err := json.Marshal(q.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	discount, err := json.Marshal(q.Discount)
	if err != nil {
		return fmt.Errorf("encode discount: %w", err)
	}
	tax, err := json.Marshal(q.Tax)
	if err != nil {
		return fmt.Errorf("encode tax: %w", err)
	}
	withholding, err := json.Marshal(q.Withholding)
	if err != nil {
		return fmt.Errorf("encode withholding: %w", err)
	}
	totals, err := json.Marshal(q.Totals)
	if err != nil {
		return fmt.Errorf("encode totals: %w", err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO quotations (
	id, number, customer_name, currency, status, items, document_discount, tax, withholding,
	voucher_code, totals, subtotal, tax_amount, gross_total, withholding_amount, net_payable,
	notes, valid_until, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12, $13, $14, $15, $16, NULLIF($17, ''), $18, $19, $20)`,
		q.ID, q.Number, q.CustomerName, q.Currency, string(q.Status), items, discount, tax, withholding,
		q.VoucherCode, totals,
		q.Totals.Subtotal.Decimal(), q.Totals.TaxAmount.Decimal(), q.Totals.GrossTotal.Decimal(),
		q.Totals.WithholdingAmount.Decimal(), q.Totals.NetPayable.Decimal(),
		q.Notes, q.ValidUntil, q.CreatedAt, q.UpdatedAt,
	)
	return err
}

func (s *pgStore) Get(ctx context.Context, id uuid.UUID) (Quotation, error) {
	if s == nil || s.pool == nil {
		return Quotation{}, ErrStoreUnavailable
	}
	q, err := scanQuotation(s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM quotations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Quotation{}, ErrNotFound
	}
	return q, err
}

// List returns quotations newest first.
func (s *pgStore) List(ctx context.Context, limit, offset int) ([]Quotation, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.pool.Query(ctx, `SELECT `+selectColumns+` FROM quotations ORDER BY created_at DESC, number DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Quotation, 0, limit)
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *pgStore) Count(ctx context.Context) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, ErrStoreUnavailable
	}
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quotations`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *pgStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) (Quotation, error) {
	if s == nil || s.pool == nil {
		return Quotation{}, ErrStoreUnavailable
	}
	q, err := scanQuotation(s.pool.QueryRow(ctx, `UPDATE quotations SET status = $3, updated_at = $4
WHERE id = $1 AND status = $2 RETURNING `+selectColumns, id, string(from), string(to), at))
	if errors.Is(err, pgx.ErrNoRows) {
		return Quotation{}, ErrStatusConflict
	}
	return q, err
}

func scanQuotation(row pgx.Row) (Quotation, error) {
	var (
		q                                         Quotation
		status                                    string
		items, discount, tax, withholding, totals []byte
		voucherCode, notes                        *string
	)
	if err := row.Scan(&q.ID, &q.Number, &q.CustomerName, &q.Currency, &status, &items, &discount, &tax, &withholding,
		&voucherCode, &totals, &notes, &q.ValidUntil, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return Quotation{}, err
	}
	q.Status = Status(status)
	if voucherCode != nil {
		q.VoucherCode = *voucherCode
	}
	if notes != nil {
		q.Notes = *notes
	}
	for _, part := range []struct {
		name string
		data []byte
		dst  any
	}{
		{"items", items, &q.Items},
		{"discount", discount, &q.Discount},
		{"tax", tax, &q.Tax},
		{"withholding", withholding, &q.Withholding},
		{"totals", totals, &q.Totals},
	} {
		if len(part.data) == 0 {
			continue
		}
		if err := json.Unmarshal(part.data, part.dst); err != nil {
			return Quotation{}, fmt.Errorf("decode %s: %w", part.name, err)
		}
	}
	return q, nil
}

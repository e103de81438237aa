package quotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-quotation/internal/common"
	"github.com/noah-isme/toko-quotation/internal/money"
	"github.com/noah-isme/toko-quotation/internal/pricing"
	"github.com/noah-isme/toko-quotation/internal/voucher"
)

// Handler wires the quotation service to HTTP.
type Handler struct {
	Svc            *Service
	DefaultPerPage int
}

type lineRequest struct {
	Description         string          `json:"description"`
	SKU                 string          `json:"sku"`
	Quantity            decimal.Decimal `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unitPrice"`
	LineDiscountPercent decimal.Decimal `json:"lineDiscountPercent"`
	LineDiscountAmount  decimal.Decimal `json:"lineDiscountAmount"`
}

type discountRequest struct {
	Percent decimal.Decimal `json:"percent"`
	Amount  decimal.Decimal `json:"amount"`
}

type taxRequest struct {
	Rate decimal.Decimal `json:"rate"`
	Mode string          `json:"mode"`
}

type withholdingRequest struct {
	Enabled bool            `json:"enabled"`
	Percent decimal.Decimal `json:"percent"`
}

type quotationRequest struct {
	CustomerName     string              `json:"customerName"`
	Items            []lineRequest       `json:"items"`
	DocumentDiscount *discountRequest    `json:"documentDiscount"`
	Tax              *taxRequest         `json:"tax"`
	Withholding      *withholdingRequest `json:"withholding"`
	VoucherCode      string              `json:"voucherCode"`
	Notes            string              `json:"notes"`
	ValidUntil       *time.Time          `json:"validUntil"`
}

// amountError lists every request field whose amount was rejected.
type amountError struct {
	Violations []pricing.Violation
	errs       []error
}

func (e *amountError) add(field string, err error) {
	e.Violations = append(e.Violations, pricing.Violation{Field: field, Reason: err.Error()})
	e.errs = append(e.errs, fmt.Errorf("%s: %w", field, err))
}

func (e *amountError) Error() string { return errors.Join(e.errs...).Error() }
func (e *amountError) Unwrap() []error { return e.errs }

func (req quotationRequest) input(cur money.Currency) (Input, error) {
	bad := &amountError{}
	amount := func(field string, v decimal.Decimal) money.Money {
		m, err := money.New(v, cur)
		if err != nil {
			bad.add(field, err)
		}
		return m
	}

	in := Input{
		CustomerName: req.CustomerName,
		Items:        make([]Item, 0, len(req.Items)),
		VoucherCode:  req.VoucherCode,
		Notes:        req.Notes,
		ValidUntil:   req.ValidUntil,
	}
	for i, line := range req.Items {
		prefix := "items[" + strconv.Itoa(i) + "]."
		in.Items = append(in.Items, Item{
			Description: strings.TrimSpace(line.Description),
			SKU:         strings.TrimSpace(line.SKU),
			LineItem: pricing.LineItem{
				Quantity:            line.Quantity,
				UnitPrice:           amount(prefix+"unitPrice", line.UnitPrice),
				LineDiscountPercent: line.LineDiscountPercent,
				LineDiscountAmount:  amount(prefix+"lineDiscountAmount", line.LineDiscountAmount),
			},
		})
	}
	if d := req.DocumentDiscount; d != nil {
		in.Discount = pricing.DocumentDiscount{Percent: d.Percent, Amount: amount("documentDiscount.amount", d.Amount)}
	}
	if t := req.Tax; t != nil {
		in.Tax = &pricing.TaxConfig{Rate: t.Rate, Mode: pricing.TaxMode(t.Mode)}
	}
	if wh := req.Withholding; wh != nil {
		in.Withholding = pricing.WithholdingConfig{Enabled: wh.Enabled, Percent: wh.Percent}
	}
	if len(bad.errs) > 0 {
		return Input{}, bad
	}
	return in, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Input, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quotation service not configured", nil)
		return Input{}, false
	}
	var req quotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return Input{}, false
	}
	in, err := req.input(h.Svc.engine().Currency)
	if err != nil {
		h.writeError(w, err)
		return Input{}, false
	}
	return in, true
}

// Preview computes totals for an unsaved quotation.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	totals, err := h.Svc.Preview(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": totals})
}

// Create stores a new draft quotation.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	q, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/quotations/"+q.ID.String())
	common.JSON(w, http.StatusCreated, map[string]any{"data": q})
}

// List returns a page of quotations.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quotation service not configured", nil)
		return
	}
	perPageDefault := h.DefaultPerPage
	if perPageDefault <= 0 {
		perPageDefault = 20
	}
	page, perPage := common.ParsePagination(r, perPageDefault)
	if perPage > 100 {
		perPage = 100
	}
	items, total, err := h.Svc.List(r.Context(), page, perPage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": common.NewPagination(page, perPage, int(total)),
	})
}

// Get returns one quotation.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quotation service not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid quotation id", nil)
		return
	}
	q, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}

// UpdateStatus moves a quotation through its lifecycle.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quotation service not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid quotation id", nil)
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	status := Status(strings.ToLower(strings.TrimSpace(payload.Status)))
	q, err := h.Svc.Transition(r.Context(), id, status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	appErr := toAppError(err)
	if appErr == nil {
		h.Svc.logger().Error().Err(err).Msg("quotation request failed")
		common.WriteError(w, err)
		return
	}
	common.WriteError(w, appErr)
}

// toAppError maps domain errors onto the API error envelope; nil means an unexpected failure.
func toAppError(err error) *common.AppError {
	var (
		verr   *pricing.ValidationError
		amtErr *amountError
	)
	switch {
	case errors.As(err, &verr):
		return common.Unprocessable("VALIDATION_ERROR", "validation failed", err).WithDetails(verr.Violations)
	case errors.As(err, &amtErr):
		return common.Unprocessable("INVALID_AMOUNT", "invalid amount", err).WithDetails(amtErr.Violations)
	case errors.Is(err, money.ErrInvalidAmount):
		return common.Unprocessable("INVALID_AMOUNT", "amount out of range", err)
	case errors.Is(err, ErrVoucherConflict):
		return common.Unprocessable("VOUCHER_CONFLICT", err.Error(), err)
	case voucher.IsIneligible(err):
		return common.Unprocessable("VOUCHER_NOT_ELIGIBLE", err.Error(), err)
	case errors.Is(err, ErrNotFound):
		return common.NewAppError("NOT_FOUND", "quotation not found", http.StatusNotFound, err)
	case errors.Is(err, ErrInvalidTransition):
		return common.NewAppError("INVALID_TRANSITION", err.Error(), http.StatusConflict, err)
	case errors.Is(err, ErrStatusConflict):
		return common.NewAppError("STATUS_CONFLICT", err.Error(), http.StatusConflict, err)
	}
	if appErr, ok := common.AsAppError(err); ok {
		return appErr
	}
	return nil
}

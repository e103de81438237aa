package quotation

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-quotation/internal/pricing"
)

var (
	// ErrNotFound is returned when a quotation does not exist.
	ErrNotFound = errors.New("quotation not found")
	// ErrInvalidTransition is returned for a status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("quotation status transition not allowed")
	// ErrStatusConflict means the stored status changed between read and update.
	ErrStatusConflict = errors.New("quotation status changed concurrently")
	// ErrVoucherConflict is returned when a voucher and a manual document discount are both given.
	ErrVoucherConflict = errors.New("voucher cannot be combined with a manual document discount")
)

// Status is the lifecycle state of a quotation.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

var transitions = map[Status][]Status{
	StatusDraft: {StatusSent, StatusExpired},
	StatusSent:  {StatusAccepted, StatusRejected, StatusExpired},
}

// CanTransition reports whether s may move to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Final reports whether no further transition is possible.
func (s Status) Final() bool {
	return len(transitions[s]) == 0
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusAccepted, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// Item is a quotation row: product text plus the priced line fed to the engine.
type Item struct {
	Description string `json:"description"`
	SKU         string `json:"sku,omitempty"`
	pricing.LineItem
}

// Quotation is a commercial offer with totals computed at creation.
type Quotation struct {
	ID           uuid.UUID                 `json:"id"`
	Number       string                    `json:"number"`
	CustomerName string                    `json:"customerName"`
	Currency     string                    `json:"currency"`
	Status       Status                    `json:"status"`
	Items        []Item                    `json:"items"`
	Discount     pricing.DocumentDiscount  `json:"documentDiscount"`
	Tax          pricing.TaxConfig         `json:"tax"`
	Withholding  pricing.WithholdingConfig `json:"withholding"`
	VoucherCode  string                    `json:"voucherCode,omitempty"`
	Totals       pricing.DocumentTotals    `json:"totals"`
	Notes        string                    `json:"notes,omitempty"`
	ValidUntil   *time.Time                `json:"validUntil,omitempty"`
	CreatedAt    time.Time                 `json:"createdAt"`
	UpdatedAt    time.Time                 `json:"updatedAt"`
}

// Input carries the caller-supplied fields of a quotation.
type Input struct {
	CustomerName string
	Items        []Item
	Discount     pricing.DocumentDiscount
	// Tax falls back to the service default when nil.
	Tax         *pricing.TaxConfig
	Withholding pricing.WithholdingConfig
	VoucherCode string
	Notes       string
	ValidUntil  *time.Time
}

func lineItems(items []Item) []pricing.LineItem {
	out := make([]pricing.LineItem, len(items))
	for i, it := range items {
		out[i] = it.LineItem
	}
	return out
}

package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Income      Stream = "income"
	Expense     Stream = "expense"
	Installment Stream = "installment"
)

const (
	// MaxDescriptionLength bounds the free-text description of a record.
	MaxDescriptionLength = 200

	// MaxMonthCount bounds the number of installments of one purchase.
	MaxMonthCount = 600

	// MaxYear is the last year a stored date can round-trip through DateLayout.
	MaxYear = 9999
)

type (
	// Stream names a category of monetary records.
	Stream string

	// Record is a single dated monetary entry. ID is empty until the store
	// assigns one.
	Record struct {
		ID          string           `json:"id,omitempty"`
		Amount      decimal.Decimal  `json:"amount"`
		Description string           `json:"description"`
		Date        Date             `json:"date"`
		Installment *InstallmentInfo `json:"installment,omitempty"`
	}

	// InstallmentInfo is carried only by records of the installment stream.
	InstallmentInfo struct {
		Index         int             `json:"index"`
		Count         int             `json:"count"`
		PurchaseTotal decimal.Decimal `json:"purchase_total"`
	}

	// RecordPatch holds the fields of an update; nil fields are left as is.
	RecordPatch struct {
		Amount      *decimal.Decimal `json:"amount,omitempty"`
		Description *string          `json:"description,omitempty"`
		Date        *Date            `json:"date,omitempty"`
	}

	// InstallmentPurchase is a purchase paid over MonthCount months.
	InstallmentPurchase struct {
		TotalAmount decimal.Decimal
		Description string
		StartDate   Date
		MonthCount  int
	}
)

// Streams lists every stream in a stable order.
func Streams() []Stream {
	return []Stream{Income, Expense, Installment}
}

// String implements fmt.Stringer
func (s Stream) String() string {
	return string(s)
}

// IsValid reports whether s is a known stream.
func (s Stream) IsValid() bool {
	switch s {
	case Income, Expense, Installment:
		return true
	default:
		return false
	}
}

// ParseStream converts a user supplied name into a Stream.
func ParseStream(s string) (Stream, error) {
	st := Stream(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", invalid("stream", "unknown stream "+s)
	}
	return st, nil
}

// Validate checks the fields every stored record must have.
func (r Record) Validate() error {
	if r.Date.IsZero() {
		return invalid("date", "is required")
	}
	if len(strings.TrimSpace(r.Description)) == 0 {
		return invalid("description", "is required")
	}
	if len(r.Description) > MaxDescriptionLength {
		return invalid("description", "too long (max 200 characters)")
	}
	if r.Installment != nil {
		if r.Installment.Count < 1 {
			return invalid("installment.count", "must be at least 1")
		}
		if r.Installment.Index < 1 || r.Installment.Index > r.Installment.Count {
			return invalid("installment.index", "must be between 1 and count")
		}
	}
	return nil
}

// Apply returns a copy of r with the non-nil patch fields applied.
func (p RecordPatch) Apply(r Record) Record {
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Date != nil {
		r.Date = *p.Date
	}
	return r
}

// IsEmpty reports whether the patch changes nothing.
func (p RecordPatch) IsEmpty() bool {
	return p.Amount == nil && p.Description == nil && p.Date == nil
}

// LastDate returns the date of the final installment.
func (p InstallmentPurchase) LastDate() Date {
	return p.StartDate.AddMonths(p.MonthCount - 1)
}

// Validate checks the purchase before it is expanded.
func (p InstallmentPurchase) Validate() error {
	if p.MonthCount < 1 {
		return invalid("month_count", "must be at least 1")
	}
	if p.MonthCount > MaxMonthCount {
		return invalid("month_count", "must be at most 600")
	}
	if !p.TotalAmount.IsPositive() {
		return invalid("total_amount", "must be greater than zero")
	}
	if p.StartDate.IsZero() {
		return invalid("start_date", "is required")
	}
	if p.LastDate().Year() > MaxYear {
		return invalid("month_count", "last installment falls after 9999-12-31")
	}
	if len(strings.TrimSpace(p.Description)) == 0 {
		return invalid("description", "is required")
	}
	return nil
}

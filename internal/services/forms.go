package services

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"finanzas/internal/core"
)

// RecordForm carries raw user input for a new income or expense record.
type RecordForm struct {
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description" validate:"required,max=200"`
	Date        string `json:"date" validate:"required"`
}

// PatchForm carries raw input for an edit. Empty fields are left unchanged.
type PatchForm struct {
	Amount      string `json:"amount"`
	Description string `json:"description" validate:"max=200"`
	Date        string `json:"date"`
}

// PurchaseForm carries raw input for an installment purchase.
type PurchaseForm struct {
	TotalAmount string `json:"total_amount" validate:"required"`
	Description string `json:"description" validate:"required,max=200"`
	StartDate   string `json:"start_date" validate:"required"`
	MonthCount  string `json:"month_count" validate:"required,numeric"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// checkForm runs the struct tags and reports the first failure as an
// InvalidInputError.
func checkForm(v *validator.Validate, form any) error {
	err := v.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "max":
		reason = "too long (max " + fe.Param() + " characters)"
	case "numeric":
		reason = "must be a whole number"
	default:
		reason = "failed " + fe.Tag() + " check"
	}
	return &core.InvalidInputError{Field: fe.Field(), Reason: reason}
}

// Record converts the form into a record ready to be stored.
func (f RecordForm) Record(v *validator.Validate) (core.Record, error) {
	f.Description = strings.TrimSpace(f.Description)
	if err := checkForm(v, f); err != nil {
		return core.Record{}, err
	}
	amount, err := core.ParsePositiveAmount(f.Amount)
	if err != nil {
		return core.Record{}, err
	}
	date, err := core.ParseDate(f.Date)
	if err != nil {
		return core.Record{}, err
	}
	return core.Record{Amount: amount, Description: f.Description, Date: date}, nil
}

// Patch converts the form into a record patch.
func (f PatchForm) Patch(v *validator.Validate) (core.RecordPatch, error) {
	if err := checkForm(v, f); err != nil {
		return core.RecordPatch{}, err
	}
	var p core.RecordPatch
	if strings.TrimSpace(f.Amount) != "" {
		amount, err := core.ParsePositiveAmount(f.Amount)
		if err != nil {
			return p, err
		}
		p.Amount = &amount
	}
	if d := strings.TrimSpace(f.Description); d != "" {
		p.Description = &d
	}
	if strings.TrimSpace(f.Date) != "" {
		date, err := core.ParseDate(f.Date)
		if err != nil {
			return p, err
		}
		p.Date = &date
	}
	if p.IsEmpty() {
		return p, &core.InvalidInputError{Field: "patch", Reason: "no fields to update"}
	}
	return p, nil
}

// Purchase converts the form into an installment purchase.
func (f PurchaseForm) Purchase(v *validator.Validate) (core.InstallmentPurchase, error) {
	f.Description = strings.TrimSpace(f.Description)
	f.MonthCount = strings.TrimSpace(f.MonthCount)
	if err := checkForm(v, f); err != nil {
		return core.InstallmentPurchase{}, err
	}
	total, err := core.ParseAmount(f.TotalAmount)
	if err != nil {
		return core.InstallmentPurchase{}, err
	}
	start, err := core.ParseDate(f.StartDate)
	if err != nil {
		return core.InstallmentPurchase{}, err
	}
	months, err := strconv.Atoi(f.MonthCount)
	if err != nil {
		return core.InstallmentPurchase{}, &core.ParseError{Field: "month_count", Input: f.MonthCount, Err: err}
	}
	p := core.InstallmentPurchase{
		TotalAmount: total,
		Description: f.Description,
		StartDate:   start,
		MonthCount:  months,
	}
	if err := p.Validate(); err != nil {
		return core.InstallmentPurchase{}, err
	}
	return p, nil
}

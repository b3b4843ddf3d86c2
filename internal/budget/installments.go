package budget

import (
	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// ExpandInstallments decomposes a purchase into one record per month.
//
// Every installment carries the total divided by the month count, rounded to
// cents. The rounding remainder is not pushed onto the last installment, so
// the sum may drift from the total by less than half a cent per installment.
// Installment i is dated StartDate plus i-1 months, clamped to month end.
func ExpandInstallments(p core.InstallmentPurchase) ([]core.Record, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	amount := core.Round2(p.TotalAmount.Div(decimal.NewFromInt(int64(p.MonthCount))))
	out := make([]core.Record, p.MonthCount)
	for i := range out {
		out[i] = core.Record{
			Amount:      amount,
			Description: p.Description,
			Date:        p.StartDate.AddMonths(i),
			Installment: &core.InstallmentInfo{
				Index:         i + 1,
				Count:         p.MonthCount,
				PurchaseTotal: p.TotalAmount,
			},
		}
	}
	return out, nil
}

// PurchaseRecords returns the installment records that belong to the purchase
// with the given description, in input order.
func PurchaseRecords(records []core.Record, description string) []core.Record {
	var out []core.Record
	for _, r := range records {
		if r.Description == description {
			out = append(out, r)
		}
	}
	return out
}

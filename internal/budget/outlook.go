package budget

import (
	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// Outlook span around the current month, in months.
const (
	OutlookMonthsBack  = 6
	OutlookMonthsAhead = 6
)

// OutlookMonth is the installment load of one month.
type OutlookMonth struct {
	Month     string          `json:"month"`
	Count     int             `json:"count"`
	Total     decimal.Decimal `json:"total"`
	IsCurrent bool            `json:"is_current"`
}

// InstallmentOutlook lists every month from six months before today to six
// months after it, with the number and total of installments due in each.
// Months without installments are included with zero values.
func InstallmentOutlook(records []core.Record, today core.Date) []OutlookMonth {
	first := core.NewDate(today.Year(), today.Month(), 1)

	out := make([]OutlookMonth, 0, OutlookMonthsBack+OutlookMonthsAhead+1)
	index := make(map[string]int, cap(out))
	for i := -OutlookMonthsBack; i <= OutlookMonthsAhead; i++ {
		key := first.AddMonths(i).MonthKey()
		index[key] = len(out)
		out = append(out, OutlookMonth{Month: key, Total: decimal.Zero, IsCurrent: i == 0})
	}

	for _, r := range records {
		if i, ok := index[r.Date.MonthKey()]; ok {
			out[i].Count++
			out[i].Total = out[i].Total.Add(r.Amount)
		}
	}
	return out
}

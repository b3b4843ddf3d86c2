package google

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"finanzas/internal/budget"
)

var header = []string{"Month", "Income", "Expense", "Balance", "Running balance", "Current"}

// formatSummaries renders the header and one row per summary. Amounts are
// written as fixed two-decimal strings so the sheet never reformats them.
func formatSummaries(rows []budget.MonthSummary) [][]any {
	out := make([][]any, 0, len(rows)+1)
	h := make([]any, len(header))
	for i, v := range header {
		h[i] = v
	}
	out = append(out, h)
	for _, r := range rows {
		current := ""
		if r.IsCurrent {
			current = "x"
		}
		out = append(out, []any{
			r.Month,
			r.Income.StringFixed(2),
			r.Expense.StringFixed(2),
			r.Balance.StringFixed(2),
			r.RunningBalance.StringFixed(2),
			current,
		})
	}
	return out
}

// parseSummaries converts a values matrix as returned by the Sheets API
// back into summaries. The first row must be the export header.
func parseSummaries(values [][]interface{}) ([]budget.MonthSummary, error) {
	if len(values) == 0 {
		return nil, nil
	}
	got := toStrings(values[0])
	for i, want := range header[:5] {
		if i >= len(got) || !strings.EqualFold(got[i], want) {
			return nil, fmt.Errorf("unexpected export header: got %v", got)
		}
	}

	out := make([]budget.MonthSummary, 0, len(values)-1)
	for n, row := range values[1:] {
		cols := toStrings(row)
		if len(cols) == 0 || cols[0] == "" {
			continue
		}
		if len(cols) < 5 {
			return nil, fmt.Errorf("row %d: expected 5 columns, got %d", n+2, len(cols))
		}
		amounts := make([]decimal.Decimal, 4)
		for i := range amounts {
			d, err := decimal.NewFromString(strings.ReplaceAll(cols[i+1], ",", "."))
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", n+2, header[i+1], err)
			}
			amounts[i] = d
		}
		out = append(out, budget.MonthSummary{
			Month:          cols[0],
			Income:         amounts[0],
			Expense:        amounts[1],
			Balance:        amounts[2],
			RunningBalance: amounts[3],
			IsCurrent:      len(cols) > 5 && cols[5] != "",
		})
	}
	return out, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

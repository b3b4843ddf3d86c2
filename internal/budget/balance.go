package budget

import (
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

type (
	// WeekSummary is the spending picture of one week bucket.
	WeekSummary struct {
		Bucket  WeekBucket      `json:"bucket"`
		Spent   decimal.Decimal `json:"spent"`
		Limit   decimal.Decimal `json:"limit"`
		Balance decimal.Decimal `json:"balance"`
	}

	// MonthSummary is the net result of one calendar month.
	MonthSummary struct {
		Month          string          `json:"month"`
		Income         decimal.Decimal `json:"income"`
		Expense        decimal.Decimal `json:"expense"`
		Balance        decimal.Decimal `json:"balance"`
		RunningBalance decimal.Decimal `json:"running_balance"`
		IsCurrent      bool            `json:"is_current"`
	}

	// MonthWindow bounds the months returned by MonthSummaries. Both keys
	// are YYYY-MM and inclusive; an empty key leaves that side open.
	MonthWindow struct {
		From string
		To   string
	}

	// Streams groups the three record streams of one user.
	Streams struct {
		Income      []core.Record
		Expense     []core.Record
		Installment []core.Record
	}
)

// Contains reports whether the month key lies inside the window.
func (w MonthWindow) Contains(key string) bool {
	if w.From != "" && key < w.From {
		return false
	}
	if w.To != "" && key > w.To {
		return false
	}
	return true
}

// DisposableIncome is the month's income minus its installment payments.
func DisposableIncome(year, month int, income, installment []core.Record) decimal.Decimal {
	return MonthTotal(income, year, month).Sub(MonthTotal(installment, year, month))
}

// WeekSummaries computes the weekly limit and spending for a month.
//
// The limit is the month's disposable income spread evenly over its buckets.
// Spending counts both variable expenses and installments.
func WeekSummaries(year, month int, income, expense, installment []core.Record) ([]WeekSummary, error) {
	buckets, err := Weeks(year, month)
	if err != nil {
		return nil, err
	}

	limit := decimal.Zero
	if len(buckets) > 0 {
		disposable := DisposableIncome(year, month, income, installment)
		limit = disposable.Div(decimal.NewFromInt(int64(len(buckets))))
	}

	out := make([]WeekSummary, 0, len(buckets))
	for _, b := range buckets {
		spent := RangeTotal(expense, b.Start, b.End).Add(RangeTotal(installment, b.Start, b.End))
		out = append(out, WeekSummary{
			Bucket:  b,
			Spent:   spent,
			Limit:   limit,
			Balance: limit.Sub(spent),
		})
	}
	return out, nil
}

// MonthSummaries nets every month found in the three streams, oldest first.
//
// The running balance always accumulates over the full history. A non-nil
// window only filters which months are returned, so a windowed result keeps
// the running balances of the unbounded sequence.
func MonthSummaries(income, expense, installment []core.Record, window *MonthWindow) []MonthSummary {
	incomeByMonth := GroupByMonth(income)
	expenseByMonth := GroupByMonth(expense)
	installmentByMonth := GroupByMonth(installment)

	keys := SortedKeys(incomeByMonth, expenseByMonth, installmentByMonth)

	out := make([]MonthSummary, 0, len(keys))
	running := decimal.Zero
	for _, key := range keys {
		in := incomeByMonth[key]
		spent := expenseByMonth[key].Add(installmentByMonth[key])
		balance := in.Sub(spent)
		running = running.Add(balance)

		if window != nil && !window.Contains(key) {
			continue
		}
		out = append(out, MonthSummary{
			Month:          key,
			Income:         in,
			Expense:        spent,
			Balance:        balance,
			RunningBalance: running,
		})
	}
	return out
}

// MarkCurrentMonth flags the summary whose month contains today.
func MarkCurrentMonth(summaries []MonthSummary, today core.Date) []MonthSummary {
	key := today.MonthKey()
	for i := range summaries {
		summaries[i].IsCurrent = summaries[i].Month == key
	}
	return summaries
}

// IsCurrentWeek reports whether ref falls inside the bucket. Only the civil
// date of ref, in its own location, is compared, so the bucket end counts
// up to the last instant of that day.
func IsCurrentWeek(b WeekBucket, ref time.Time) bool {
	return b.Contains(core.DateOf(ref))
}

// CurrentWeek returns the summary whose bucket contains ref.
func CurrentWeek(weeks []WeekSummary, ref time.Time) (WeekSummary, bool) {
	for _, w := range weeks {
		if IsCurrentWeek(w.Bucket, ref) {
			return w, true
		}
	}
	return WeekSummary{}, false
}

// WeekSummaries is WeekSummaries over the grouped streams.
func (s Streams) WeekSummaries(year, month int) ([]WeekSummary, error) {
	return WeekSummaries(year, month, s.Income, s.Expense, s.Installment)
}

// MonthSummaries is MonthSummaries over the grouped streams.
func (s Streams) MonthSummaries(window *MonthWindow) []MonthSummary {
	return MonthSummaries(s.Income, s.Expense, s.Installment, window)
}

// With returns a copy of s with one stream replaced.
func (s Streams) With(stream core.Stream, records []core.Record) Streams {
	switch stream {
	case core.Income:
		s.Income = records
	case core.Expense:
		s.Expense = records
	case core.Installment:
		s.Installment = records
	}
	return s
}

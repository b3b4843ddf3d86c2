package budget

import (
	"sort"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// GroupByMonth sums record amounts per YYYY-MM key. The result holds exactly
// the months present in records; callers sort keys themselves.
func GroupByMonth(records []core.Record) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, r := range records {
		key := r.Date.MonthKey()
		out[key] = out[key].Add(r.Amount)
	}
	return out
}

// MonthTotal sums the records dated in the given month.
func MonthTotal(records []core.Record, year, month int) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if r.Date.Year() == year && r.Date.Month() == month {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// RangeTotal sums the records dated in [start, end].
func RangeTotal(records []core.Record, start, end core.Date) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if r.Date.Between(start, end) {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// SortedKeys returns the union of the maps' keys in ascending order.
func SortedKeys(maps ...map[string]decimal.Decimal) []string {
	seen := make(map[string]struct{})
	for _, m := range maps {
		for k := range m {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Recent returns up to limit records ordered newest first. Ties keep the
// input order. A limit below one returns every record.
func Recent(records []core.Record, limit int) []core.Record {
	out := append([]core.Record(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

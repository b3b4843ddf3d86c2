// Package memory is an in-process summary export target for development.
package memory

import (
	"context"
	"sort"
	"sync"

	"finanzas/internal/budget"
	"finanzas/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	sheets map[string][]budget.MonthSummary
	writes int
}

var (
	_ sheets.SummaryWriter = (*Store)(nil)
	_ sheets.SummaryReader = (*Store)(nil)
)

func New() *Store {
	return &Store{sheets: make(map[string][]budget.MonthSummary)}
}

// WriteMonthSummaries replaces the user's rows.
func (s *Store) WriteMonthSummaries(_ context.Context, user string, rows []budget.MonthSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[user] = append([]budget.MonthSummary(nil), rows...)
	s.writes++
	return nil
}

func (s *Store) ReadMonthSummaries(_ context.Context, user string) ([]budget.MonthSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]budget.MonthSummary(nil), s.sheets[user]...), nil
}

// Users returns the users exported so far, sorted.
func (s *Store) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sheets))
	for u := range s.sheets {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Writes counts WriteMonthSummaries calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

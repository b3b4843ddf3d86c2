// Package sheets defines the spreadsheet export ports.
package sheets

import (
	"context"

	"finanzas/internal/budget"
)

// Ports for outbound export adapters.
type (
	// SummaryWriter replaces the exported month summaries of one user.
	SummaryWriter interface {
		WriteMonthSummaries(ctx context.Context, user string, rows []budget.MonthSummary) error
	}

	// SummaryReader reads back what SummaryWriter stored.
	SummaryReader interface {
		ReadMonthSummaries(ctx context.Context, user string) ([]budget.MonthSummary, error)
	}
)

package live

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	"finanzas/internal/session"
	"finanzas/internal/store/memory"
)

func fixedClock() time.Time {
	return time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
}

// waitFor reads views until one satisfies ok.
func waitFor(t *testing.T, views <-chan View, ok func(View) bool) View {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case v, open := <-views:
			if !open {
				t.Fatal("view channel closed")
			}
			if ok(v) {
				return v
			}
		case <-timeout:
			t.Fatal("timed out waiting for view")
		}
	}
}

func newTestTracker(user string) (*Tracker, *memory.Store, *session.Holder) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memory.New(logger)
	holder := session.NewHolder(user)
	return NewTracker(st, holder, WithClock(fixedClock), WithLogger(logger)), st, holder
}

func record(date, amount string) core.Record {
	return core.Record{Amount: decimal.RequireFromString(amount), Description: "r", Date: core.MustParseDate(date)}
}

func TestTrackerRecomputesOnPush(t *testing.T) {
	tr, st, _ := newTestTracker("ana")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	views := tr.Run(ctx)
	first := waitFor(t, views, View.SignedIn)
	if first.User != "ana" || len(first.Weeks) != 4 || len(first.Months) != 0 {
		t.Fatalf("unexpected first view %+v", first)
	}
	if first.CurrentWeek == nil || first.CurrentWeek.Bucket.Start.String() != "2024-05-13" {
		t.Fatalf("current week = %+v", first.CurrentWeek)
	}

	if _, err := st.Create(ctx, "ana", core.Income, record("2024-05-01", "400")); err != nil {
		t.Fatal(err)
	}
	v := waitFor(t, views, func(v View) bool { return len(v.Months) == 1 })
	if !v.Weeks[0].Limit.Equal(decimal.NewFromInt(100)) || !v.Months[0].IsCurrent {
		t.Fatalf("view after income: %+v", v)
	}

	if _, err := st.Create(ctx, "ana", core.Installment, record("2024-05-20", "40")); err != nil {
		t.Fatal(err)
	}
	v = waitFor(t, views, func(v View) bool { return v.Weeks[0].Limit.Equal(decimal.NewFromInt(90)) })
	if !v.Months[0].Balance.Equal(decimal.NewFromInt(360)) {
		t.Fatalf("month balance = %s", v.Months[0].Balance)
	}
	cur := v.Outlook[6]
	if cur.Count != 1 || !cur.IsCurrent {
		t.Fatalf("outlook current month = %+v", cur)
	}

	// Another user's writes do not reach this view.
	if _, err := st.Create(ctx, "bea", core.Expense, record("2024-05-02", "1")); err != nil {
		t.Fatal(err)
	}
	select {
	case v := <-views:
		t.Fatalf("unexpected view for foreign write: %+v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTrackerFollowsSession(t *testing.T) {
	tr, st, holder := newTestTracker("")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := st.Create(ctx, "bea", core.Expense, record("2024-05-02", "7")); err != nil {
		t.Fatal(err)
	}

	views := tr.Run(ctx)
	if v := waitFor(t, views, func(View) bool { return true }); v.SignedIn() || v.Weeks != nil {
		t.Fatalf("signed-out view should be empty: %+v", v)
	}

	holder.Set("bea")
	v := waitFor(t, views, View.SignedIn)
	if v.User != "bea" || len(v.Months) != 1 || !v.Months[0].Expense.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("bea view = %+v", v)
	}

	holder.SignOut()
	waitFor(t, views, func(v View) bool { return !v.SignedIn() })

	cancel()
	for range views {
	}
}

type failingSource struct{}

func (failingSource) Subscribe(context.Context, string, core.Stream) (<-chan []core.Record, error) {
	return nil, errors.New("store offline")
}

func TestTrackerSubscribeFailure(t *testing.T) {
	tr := NewTracker(failingSource{}, session.Static("ana"), WithClock(fixedClock),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	v := waitFor(t, tr.Run(ctx), func(View) bool { return true })
	if v.User != "ana" || v.Weeks != nil || v.Today.String() != "2024-05-15" {
		t.Fatalf("unexpected view %+v", v)
	}
}

// Package services orchestrates record writes and summary queries on top of
// a record store.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"finanzas/internal/amqp"
	"finanzas/internal/budget"
	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/session"
	"finanzas/internal/store"
)

// DefaultRecentLimit caps RecentExpenses when no limit is configured.
const DefaultRecentLimit = 10

// Store is the part of a backend the ledger writes through.
type Store interface {
	store.RecordLister
	store.RecordWriter
	store.CutoffStore
}

// ChangePublisher announces writes to other processes.
type ChangePublisher interface {
	PublishRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error
}

// Ledger is the write and query entry point for one store.
type Ledger struct {
	store     Store
	session   session.Session
	publisher ChangePublisher
	validate  *validator.Validate
	logger    *slog.Logger

	recentLimit int
	now         func() time.Time
}

type Option func(*Ledger)

// WithPublisher makes the ledger publish a change event after every write.
func WithPublisher(p ChangePublisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithRecentLimit sets how many records RecentExpenses returns.
func WithRecentLimit(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.recentLimit = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func NewLedger(st Store, sess session.Session, opts ...Option) *Ledger {
	l := &Ledger{
		store:       st,
		session:     sess,
		validate:    newValidator(),
		logger:      slog.Default(),
		recentLimit: DefaultRecentLimit,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// User returns the acting user: the one carried by ctx, else the session's.
func (l *Ledger) User(ctx context.Context) string {
	if u, ok := session.UserFrom(ctx); ok {
		return u
	}
	if l.session == nil {
		return ""
	}
	return l.session.Current()
}

// Today is the current civil date in the reference zone.
func (l *Ledger) Today() core.Date {
	return core.TodayAt(l.now())
}

func (l *Ledger) writer(ctx context.Context) (string, error) {
	user := l.User(ctx)
	if user == "" {
		return "", core.ErrNotAuthenticated
	}
	return user, nil
}

// Add stores a new income or expense record built from form.
func (l *Ledger) Add(ctx context.Context, stream core.Stream, form RecordForm) (core.Record, error) {
	user, err := l.writer(ctx)
	if err != nil {
		return core.Record{}, err
	}
	if stream != core.Income && stream != core.Expense {
		return core.Record{}, &core.InvalidInputError{Field: "stream", Reason: "records are added to income or expense; use a purchase for installments"}
	}
	rec, err := form.Record(l.validate)
	if err != nil {
		return core.Record{}, err
	}

	id, err := l.store.Create(ctx, user, stream, rec)
	if err != nil {
		return core.Record{}, fmt.Errorf("add %s record: %w", stream, err)
	}
	rec.ID = id

	fields := applog.NewFields().
		WithRecord(user, stream.String(), id).
		WithOperation(applog.OpCreate).
		WithAmount(rec.Amount.String())
	l.logger.InfoContext(ctx, "Record created", append(fields.ToSlice(), "date", rec.Date.String())...)
	l.publish(ctx, user, stream, amqp.ActionCreated, id)
	return rec, nil
}

// Update edits the record with the given id.
func (l *Ledger) Update(ctx context.Context, stream core.Stream, id string, form PatchForm) error {
	user, err := l.writer(ctx)
	if err != nil {
		return err
	}
	patch, err := form.Patch(l.validate)
	if err != nil {
		return err
	}
	if err := l.store.Update(ctx, user, stream, id, patch); err != nil {
		return fmt.Errorf("update %s record %s: %w", stream, id, err)
	}

	l.logger.InfoContext(ctx, "Record updated", applog.NewFields().
		WithRecord(user, stream.String(), id).
		WithOperation(applog.OpUpdate).ToSlice()...)
	l.publish(ctx, user, stream, amqp.ActionUpdated, id)
	return nil
}

// Delete removes the record with the given id.
func (l *Ledger) Delete(ctx context.Context, stream core.Stream, id string) error {
	user, err := l.writer(ctx)
	if err != nil {
		return err
	}
	if err := l.store.Delete(ctx, user, stream, id); err != nil {
		return fmt.Errorf("delete %s record %s: %w", stream, id, err)
	}

	l.logger.InfoContext(ctx, "Record deleted", applog.NewFields().
		WithRecord(user, stream.String(), id).
		WithOperation(applog.OpDelete).ToSlice()...)
	l.publish(ctx, user, stream, amqp.ActionDeleted, id)
	return nil
}

// RegisterPurchase expands the purchase and stores all its installments.
func (l *Ledger) RegisterPurchase(ctx context.Context, form PurchaseForm) ([]core.Record, error) {
	user, err := l.writer(ctx)
	if err != nil {
		return nil, err
	}
	purchase, err := form.Purchase(l.validate)
	if err != nil {
		return nil, err
	}
	records, err := budget.ExpandInstallments(purchase)
	if err != nil {
		return nil, err
	}

	ids, err := l.store.CreateAll(ctx, user, core.Installment, records)
	if err != nil {
		return nil, fmt.Errorf("register purchase %q: %w", purchase.Description, err)
	}
	for i := range records {
		records[i].ID = ids[i]
	}

	fields := applog.NewFields().
		WithRecord(user, core.Installment.String(), "").
		WithOperation(applog.OpCreate).
		WithAmount(purchase.TotalAmount.String()).
		WithCount(purchase.MonthCount)
	l.logger.InfoContext(ctx, "Installment purchase registered",
		append(fields.ToSlice(), "description", purchase.Description)...)
	l.publish(ctx, user, core.Installment, amqp.ActionCreated, ids...)
	return records, nil
}

// DeletePurchase removes every installment with the given description and
// returns how many were removed.
func (l *Ledger) DeletePurchase(ctx context.Context, description string) (int, error) {
	user, err := l.writer(ctx)
	if err != nil {
		return 0, err
	}
	if description == "" {
		return 0, &core.InvalidInputError{Field: "description", Reason: "is required"}
	}
	all, err := l.store.List(ctx, user, core.Installment)
	if err != nil {
		return 0, fmt.Errorf("list installments: %w", err)
	}
	matches := budget.PurchaseRecords(all, description)
	if len(matches) == 0 {
		return 0, &core.StoreError{Op: "delete", Stream: core.Installment, Err: core.ErrNotFound}
	}

	ids := make([]string, 0, len(matches))
	for _, r := range matches {
		if err := l.store.Delete(ctx, user, core.Installment, r.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
			l.publish(ctx, user, core.Installment, amqp.ActionDeleted, ids...)
			return len(ids), fmt.Errorf("delete installment %s: %w", r.ID, err)
		}
		ids = append(ids, r.ID)
	}

	fields := applog.NewFields().
		WithRecord(user, core.Installment.String(), "").
		WithOperation(applog.OpDelete).
		WithCount(len(ids))
	l.logger.InfoContext(ctx, "Installment purchase deleted",
		append(fields.ToSlice(), "description", description)...)
	l.publish(ctx, user, core.Installment, amqp.ActionDeleted, ids...)
	return len(ids), nil
}

// Records lists a stream of the acting user. Without a user it is empty.
func (l *Ledger) Records(ctx context.Context, stream core.Stream) ([]core.Record, error) {
	user := l.User(ctx)
	if user == "" {
		return []core.Record{}, nil
	}
	recs, err := l.store.List(ctx, user, stream)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", stream, err)
	}
	return recs, nil
}

// RecentExpenses returns the newest expenses, at most the configured limit.
func (l *Ledger) RecentExpenses(ctx context.Context) ([]core.Record, error) {
	recs, err := l.Records(ctx, core.Expense)
	if err != nil {
		return nil, err
	}
	return budget.Recent(recs, l.recentLimit), nil
}

// Snapshot loads the three streams of the acting user concurrently.
func (l *Ledger) Snapshot(ctx context.Context) (budget.Streams, error) {
	var s budget.Streams
	user := l.User(ctx)
	if user == "" {
		return s, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.Income, err = l.store.List(gctx, user, core.Income)
		return err
	})
	g.Go(func() (err error) {
		s.Expense, err = l.store.List(gctx, user, core.Expense)
		return err
	})
	g.Go(func() (err error) {
		s.Installment, err = l.store.List(gctx, user, core.Installment)
		return err
	})
	if err := g.Wait(); err != nil {
		return budget.Streams{}, fmt.Errorf("load snapshot: %w", err)
	}
	return s, nil
}

// WeekSummaries returns the weekly budget of a month for the acting user.
func (l *Ledger) WeekSummaries(ctx context.Context, year, month int) ([]budget.WeekSummary, error) {
	s, err := l.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.WeekSummaries(year, month)
}

// MonthSummaries returns the monthly balances, flagged for the current month.
func (l *Ledger) MonthSummaries(ctx context.Context, window *budget.MonthWindow) ([]budget.MonthSummary, error) {
	s, err := l.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return budget.MarkCurrentMonth(s.MonthSummaries(window), l.Today()), nil
}

// InstallmentOutlook returns the installment load around the current month.
func (l *Ledger) InstallmentOutlook(ctx context.Context) ([]budget.OutlookMonth, error) {
	recs, err := l.Records(ctx, core.Installment)
	if err != nil {
		return nil, err
	}
	return budget.InstallmentOutlook(recs, l.Today()), nil
}

// Cutoff returns the acting user's statement day, 0 when unset.
func (l *Ledger) Cutoff(ctx context.Context) (int, error) {
	user := l.User(ctx)
	if user == "" {
		return 0, nil
	}
	day, err := l.store.Cutoff(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("get cutoff: %w", err)
	}
	return day, nil
}

// SetCutoff stores the acting user's statement day.
func (l *Ledger) SetCutoff(ctx context.Context, day int) error {
	user, err := l.writer(ctx)
	if err != nil {
		return err
	}
	if err := store.ValidateCutoff(day); err != nil {
		return err
	}
	if err := l.store.SetCutoff(ctx, user, day); err != nil {
		return fmt.Errorf("set cutoff: %w", err)
	}
	return nil
}

// publish never fails the write; the record is already stored.
func (l *Ledger) publish(ctx context.Context, user string, stream core.Stream, action string, ids ...string) {
	if l.publisher == nil {
		return
	}
	msg := amqp.NewRecordChangedMessage(user, stream.String(), action, ids...)
	if err := l.publisher.PublishRecordChanged(ctx, msg); err != nil {
		fields := applog.NewFields().WithRecord(user, stream.String(), "").WithError(err)
		l.logger.ErrorContext(ctx, "Failed to publish record change",
			append(fields.ToSlice(), "action", action)...)
	}
}

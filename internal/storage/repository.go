package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	"finanzas/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	hub     *store.Hub
	logger  *slog.Logger
}

var _ store.RecordStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer keeps sqlite free of SQLITE_BUSY between our own connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
	}
	repo.hub = store.NewHub(repo.List, logger)
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// List implements store.RecordLister
func (r *SQLiteRepository) List(ctx context.Context, user string, stream core.Stream) ([]core.Record, error) {
	if !stream.IsValid() {
		return nil, &core.StoreError{Op: "list", Stream: stream, Err: core.ErrNotFound}
	}
	rows, err := r.queries.ListRecords(ctx, user, stream.String())
	if err != nil {
		return nil, &core.StoreError{Op: "list", Stream: stream, Err: err}
	}
	out := make([]core.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRow(row)
		if err != nil {
			return nil, &core.StoreError{Op: "list", Stream: stream, Err: fmt.Errorf("decode record %s: %w", row.ID, err)}
		}
		out = append(out, rec)
	}
	return out, nil
}

// Create implements store.RecordWriter
func (r *SQLiteRepository) Create(ctx context.Context, user string, stream core.Stream, rec core.Record) (string, error) {
	ids, err := r.CreateAll(ctx, user, stream, []core.Record{rec})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// CreateAll inserts the records in one transaction.
func (r *SQLiteRepository) CreateAll(ctx context.Context, user string, stream core.Stream, recs []core.Record) ([]string, error) {
	if !stream.IsValid() {
		return nil, &core.StoreError{Op: "create", Stream: stream, Err: core.ErrNotFound}
	}
	for _, rec := range recs {
		if err := rec.Validate(); err != nil {
			return nil, &core.StoreError{Op: "create", Stream: stream, Err: err}
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &core.StoreError{Op: "create", Stream: stream, Err: fmt.Errorf("begin transaction: %w", err)}
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = uuid.NewString()
		row := toRow(user, stream, rec)
		row.ID = ids[i]
		if err := q.CreateRecord(ctx, row); err != nil {
			return nil, &core.StoreError{Op: "create", Stream: stream, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, &core.StoreError{Op: "create", Stream: stream, Err: fmt.Errorf("commit: %w", err)}
	}

	r.logger.InfoContext(ctx, "Records saved to SQLite",
		"user", user,
		"stream", stream,
		"count", len(ids))

	r.hub.Notify(ctx, user, stream)
	return ids, nil
}

// Update implements store.RecordWriter
func (r *SQLiteRepository) Update(ctx context.Context, user string, stream core.Stream, id string, patch core.RecordPatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.StoreError{Op: "update", Stream: stream, Err: fmt.Errorf("begin transaction: %w", err)}
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	row, err := q.GetRecord(ctx, user, stream.String(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return &core.StoreError{Op: "update", Stream: stream, Err: core.ErrNotFound}
	}
	if err != nil {
		return &core.StoreError{Op: "update", Stream: stream, Err: err}
	}
	current, err := fromRow(row)
	if err != nil {
		return &core.StoreError{Op: "update", Stream: stream, Err: err}
	}

	updated := patch.Apply(current)
	if err := updated.Validate(); err != nil {
		return &core.StoreError{Op: "update", Stream: stream, Err: err}
	}
	next := toRow(user, stream, updated)
	next.ID = id
	if _, err := q.UpdateRecord(ctx, next); err != nil {
		return &core.StoreError{Op: "update", Stream: stream, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &core.StoreError{Op: "update", Stream: stream, Err: fmt.Errorf("commit: %w", err)}
	}

	r.hub.Notify(ctx, user, stream)
	return nil
}

// Delete implements store.RecordWriter
func (r *SQLiteRepository) Delete(ctx context.Context, user string, stream core.Stream, id string) error {
	n, err := r.queries.DeleteRecord(ctx, user, stream.String(), id)
	if err != nil {
		return &core.StoreError{Op: "delete", Stream: stream, Err: err}
	}
	if n == 0 {
		return &core.StoreError{Op: "delete", Stream: stream, Err: core.ErrNotFound}
	}

	r.logger.InfoContext(ctx, "Record deleted from SQLite", "user", user, "stream", stream, "id", id)
	r.hub.Notify(ctx, user, stream)
	return nil
}

// Subscribe implements store.Subscriber
func (r *SQLiteRepository) Subscribe(ctx context.Context, user string, stream core.Stream) (<-chan []core.Record, error) {
	return r.hub.Subscribe(ctx, user, stream)
}

// Revision implements store.Revisioner
func (r *SQLiteRepository) Revision(user string) uint64 {
	return r.hub.Revision(user)
}

// Cutoff implements store.CutoffStore
func (r *SQLiteRepository) Cutoff(ctx context.Context, user string) (int, error) {
	day, err := r.queries.GetCutoff(ctx, user)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, &core.StoreError{Op: "get cutoff", Err: err}
	}
	return int(day), nil
}

// SetCutoff implements store.CutoffStore
func (r *SQLiteRepository) SetCutoff(ctx context.Context, user string, day int) error {
	if err := store.ValidateCutoff(day); err != nil {
		return err
	}
	if err := r.queries.UpsertCutoff(ctx, user, int64(day)); err != nil {
		return &core.StoreError{Op: "set cutoff", Err: err}
	}
	return nil
}

// Users implements store.UserLister
func (r *SQLiteRepository) Users(ctx context.Context) ([]string, error) {
	users, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, &core.StoreError{Op: "list users", Err: err}
	}
	return users, nil
}

func toRow(user string, stream core.Stream, rec core.Record) RecordRow {
	row := RecordRow{
		UserKey:     user,
		Stream:      stream.String(),
		Amount:      rec.Amount.String(),
		Description: rec.Description,
		Date:        rec.Date.String(),
	}
	if info := rec.Installment; info != nil {
		row.InstallmentIndex = sql.NullInt64{Int64: int64(info.Index), Valid: true}
		row.InstallmentCount = sql.NullInt64{Int64: int64(info.Count), Valid: true}
		row.PurchaseTotal = sql.NullString{String: info.PurchaseTotal.String(), Valid: true}
	}
	return row
}

func fromRow(row RecordRow) (core.Record, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Record{}, fmt.Errorf("amount: %w", err)
	}
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Record{}, err
	}
	rec := core.Record{
		ID:          row.ID,
		Amount:      amount,
		Description: row.Description,
		Date:        date,
	}
	if row.InstallmentIndex.Valid && row.InstallmentCount.Valid {
		info := &core.InstallmentInfo{
			Index: int(row.InstallmentIndex.Int64),
			Count: int(row.InstallmentCount.Int64),
		}
		if row.PurchaseTotal.Valid {
			total, err := decimal.NewFromString(row.PurchaseTotal.String)
			if err != nil {
				return core.Record{}, fmt.Errorf("purchase total: %w", err)
			}
			info.PurchaseTotal = total
		}
		rec.Installment = info
	}
	return rec, nil
}

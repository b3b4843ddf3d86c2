package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// RecordRow mirrors one row of the records table.
type RecordRow struct {
	ID               string
	UserKey          string
	Stream           string
	Amount           string
	Description      string
	Date             string
	InstallmentIndex sql.NullInt64
	InstallmentCount sql.NullInt64
	PurchaseTotal    sql.NullString
}

const createRecord = `INSERT INTO records (
    id, user_key, stream, amount, description, date,
    installment_index, installment_count, purchase_total
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateRecord(ctx context.Context, arg RecordRow) error {
	_, err := q.db.ExecContext(ctx, createRecord,
		arg.ID,
		arg.UserKey,
		arg.Stream,
		arg.Amount,
		arg.Description,
		arg.Date,
		arg.InstallmentIndex,
		arg.InstallmentCount,
		arg.PurchaseTotal,
	)
	return err
}

const listRecords = `SELECT id, user_key, stream, amount, description, date,
    installment_index, installment_count, purchase_total
FROM records
WHERE user_key = ? AND stream = ?
ORDER BY seq`

func (q *Queries) ListRecords(ctx context.Context, userKey, stream string) ([]RecordRow, error) {
	rows, err := q.db.QueryContext(ctx, listRecords, userKey, stream)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RecordRow
	for rows.Next() {
		var i RecordRow
		if err := rows.Scan(
			&i.ID,
			&i.UserKey,
			&i.Stream,
			&i.Amount,
			&i.Description,
			&i.Date,
			&i.InstallmentIndex,
			&i.InstallmentCount,
			&i.PurchaseTotal,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getRecord = `SELECT id, user_key, stream, amount, description, date,
    installment_index, installment_count, purchase_total
FROM records
WHERE user_key = ? AND stream = ? AND id = ?`

func (q *Queries) GetRecord(ctx context.Context, userKey, stream, id string) (RecordRow, error) {
	row := q.db.QueryRowContext(ctx, getRecord, userKey, stream, id)
	var i RecordRow
	err := row.Scan(
		&i.ID,
		&i.UserKey,
		&i.Stream,
		&i.Amount,
		&i.Description,
		&i.Date,
		&i.InstallmentIndex,
		&i.InstallmentCount,
		&i.PurchaseTotal,
	)
	return i, err
}

const updateRecord = `UPDATE records
SET amount = ?, description = ?, date = ?, updated_at = CURRENT_TIMESTAMP
WHERE user_key = ? AND stream = ? AND id = ?`

func (q *Queries) UpdateRecord(ctx context.Context, arg RecordRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateRecord,
		arg.Amount,
		arg.Description,
		arg.Date,
		arg.UserKey,
		arg.Stream,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteRecord = `DELETE FROM records WHERE user_key = ? AND stream = ? AND id = ?`

func (q *Queries) DeleteRecord(ctx context.Context, userKey, stream, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteRecord, userKey, stream, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listUsers = `SELECT DISTINCT user_key FROM records ORDER BY user_key`

func (q *Queries) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getCutoff = `SELECT day FROM cutoffs WHERE user_key = ?`

func (q *Queries) GetCutoff(ctx context.Context, userKey string) (int64, error) {
	row := q.db.QueryRowContext(ctx, getCutoff, userKey)
	var day int64
	err := row.Scan(&day)
	return day, err
}

const upsertCutoff = `INSERT INTO cutoffs (user_key, day) VALUES (?, ?)
ON CONFLICT (user_key) DO UPDATE SET day = excluded.day, updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertCutoff(ctx context.Context, userKey string, day int64) error {
	_, err := q.db.ExecContext(ctx, upsertCutoff, userKey, day)
	return err
}

package storage

import (
	"context"
	"database/sql"
	"time"
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

type RecordRow struct {
	ID        int64
	Position  int64
	Category  string
	Value     float64
	CreatedAt time.Time
}

const insertRecord = `
INSERT INTO records (position, category, value)
SELECT COALESCE(MAX(position), 0) + 1, ?, ? FROM records
RETURNING id, position, category, value, created_at
`

func (q *Queries) InsertRecord(ctx context.Context, category string, value float64) (RecordRow, error) {
	row := q.db.QueryRowContext(ctx, insertRecord, category, value)
	var r RecordRow
	err := row.Scan(&r.ID, &r.Position, &r.Category, &r.Value, &r.CreatedAt)
	return r, err
}

const insertRecordAt = `
INSERT INTO records (position, category, value) VALUES (?, ?, ?)
`

func (q *Queries) InsertRecordAt(ctx context.Context, position int64, category string, value float64) error {
	_, err := q.db.ExecContext(ctx, insertRecordAt, position, category, value)
	return err
}

const deleteAllRecords = `DELETE FROM records`

func (q *Queries) DeleteAllRecords(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllRecords)
	return err
}

const listRecords = `
SELECT id, position, category, value, created_at FROM records ORDER BY position
`

func (q *Queries) ListRecords(ctx context.Context) ([]RecordRow, error) {
	rows, err := q.db.QueryContext(ctx, listRecords)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RecordRow
	for rows.Next() {
		var r RecordRow
		if err := rows.Scan(&r.ID, &r.Position, &r.Category, &r.Value, &r.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const touchStore = `
INSERT INTO record_store (id, write_count, updated_at) VALUES (1, 1, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET write_count = write_count + 1, updated_at = CURRENT_TIMESTAMP
`

func (q *Queries) TouchStore(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, touchStore)
	return err
}

const storeWritten = `SELECT EXISTS(SELECT 1 FROM record_store WHERE id = 1)`

func (q *Queries) StoreWritten(ctx context.Context) (bool, error) {
	var written bool
	err := q.db.QueryRowContext(ctx, storeWritten).Scan(&written)
	return written, err
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"screentime/internal/core"
	"screentime/internal/store"

	_ "modernc.org/sqlite"
)

// Ensure interface conformance
var (
	_ store.RecordWriter = (*SQLiteRepository)(nil)
	_ store.RecordLoader = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serialises writers and keeps in-memory databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// AppendRecord implements store.RecordWriter
func (r *SQLiteRepository) AppendRecord(ctx context.Context, rec core.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	return r.withTx(ctx, func(q *Queries) error {
		row, err := q.InsertRecord(ctx, rec.Category, rec.Value)
		if err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
		if err := q.TouchStore(ctx); err != nil {
			return fmt.Errorf("touch store: %w", err)
		}
		slog.DebugContext(ctx, "Record saved to SQLite",
			"id", row.ID,
			"position", row.Position,
			"category", row.Category,
			"value", row.Value)
		return nil
	})
}

// ReplaceAllRecords implements store.RecordWriter. The delete and the inserts
// share one transaction.
func (r *SQLiteRepository) ReplaceAllRecords(ctx context.Context, rs []core.Record) error {
	if err := core.ValidateRecords(rs); err != nil {
		return err
	}

	return r.withTx(ctx, func(q *Queries) error {
		if err := q.DeleteAllRecords(ctx); err != nil {
			return fmt.Errorf("delete records: %w", err)
		}
		for i, rec := range rs {
			if err := q.InsertRecordAt(ctx, int64(i+1), rec.Category, rec.Value); err != nil {
				return fmt.Errorf("insert record %d: %w", i+1, err)
			}
		}
		if err := q.TouchStore(ctx); err != nil {
			return fmt.Errorf("touch store: %w", err)
		}
		slog.DebugContext(ctx, "Records replaced in SQLite", "count", len(rs))
		return nil
	})
}

// LoadRecords implements store.RecordLoader. A database nothing was ever
// written to reports found=false.
func (r *SQLiteRepository) LoadRecords(ctx context.Context) ([]core.Record, bool, error) {
	written, err := r.queries.StoreWritten(ctx)
	if err != nil {
		return nil, false, &core.IOError{Op: "query", Path: "sqlite", Err: err}
	}
	if !written {
		return nil, false, nil
	}

	rows, err := r.queries.ListRecords(ctx)
	if err != nil {
		return nil, false, &core.IOError{Op: "query", Path: "sqlite", Err: err}
	}

	records := make([]core.Record, len(rows))
	for i, row := range rows {
		records[i] = core.Record{Category: row.Category, Value: row.Value}
	}
	return records, true, nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.IOError{Op: "begin", Path: "sqlite", Err: err}
	}
	defer tx.Rollback()

	if err := fn(r.queries.WithTx(tx)); err != nil {
		return &core.IOError{Op: "write", Path: "sqlite", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &core.IOError{Op: "commit", Path: "sqlite", Err: err}
	}
	return nil
}

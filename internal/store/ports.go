package store

import (
	"context"

	"screentime/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordWriter persists survey records.
	RecordWriter interface {
		// AppendRecord adds one record at the end of the store.
		AppendRecord(ctx context.Context, r core.Record) error
		// ReplaceAllRecords discards the store contents and writes rs in order.
		ReplaceAllRecords(ctx context.Context, rs []core.Record) error
	}

	// RecordLoader reads the store back in insertion order.
	// found is false, with a nil error, when the store does not exist yet or is empty.
	RecordLoader interface {
		LoadRecords(ctx context.Context) (records []core.Record, found bool, err error)
	}

	// DocumentLoader reads the static activity document.
	// found is false, with a nil error, when the document does not exist.
	DocumentLoader interface {
		LoadDocument(ctx context.Context) (points []core.ActivityPoint, found bool, err error)
	}
)

// Package adapters wraps the store ports with metrics and logging so the
// HTTP layer can read through them without caring which backend is behind.
package adapters

import (
	"context"
	"log/slog"

	"screentime/internal/core"
	"screentime/internal/observability"
	"screentime/internal/store"
)

const (
	SourceStore    = "store"
	SourceDocument = "document"
)

var (
	_ store.RecordLoader   = (*InstrumentedRecords)(nil)
	_ store.DocumentLoader = (*InstrumentedDocument)(nil)
)

// InstrumentedRecords counts and logs every store load
type InstrumentedRecords struct {
	loader store.RecordLoader
}

func NewInstrumentedRecords(loader store.RecordLoader) *InstrumentedRecords {
	return &InstrumentedRecords{loader: loader}
}

// LoadRecords implements store.RecordLoader
func (a *InstrumentedRecords) LoadRecords(ctx context.Context) ([]core.Record, bool, error) {
	recs, found, err := a.loader.LoadRecords(ctx)
	observability.RecordLoad(SourceStore, found, err)
	if err != nil {
		slog.WarnContext(ctx, "Store load failed", "error", err)
	} else {
		slog.DebugContext(ctx, "Store loaded", "found", found, "records", len(recs))
	}
	return recs, found, err
}

// InstrumentedDocument counts and logs every document load
type InstrumentedDocument struct {
	loader store.DocumentLoader
}

func NewInstrumentedDocument(loader store.DocumentLoader) *InstrumentedDocument {
	return &InstrumentedDocument{loader: loader}
}

// LoadDocument implements store.DocumentLoader
func (a *InstrumentedDocument) LoadDocument(ctx context.Context) ([]core.ActivityPoint, bool, error) {
	points, found, err := a.loader.LoadDocument(ctx)
	observability.RecordLoad(SourceDocument, found, err)
	if err != nil {
		slog.WarnContext(ctx, "Document load failed", "error", err)
	} else {
		slog.DebugContext(ctx, "Document loaded", "found", found, "points", len(points))
	}
	return points, found, err
}

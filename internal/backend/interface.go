package backend

import (
	"context"
	"slices"

	"screentime/internal/store"
)

// BackendType names one of the record store implementations.
type BackendType string

const (
	CSVBackend    BackendType = "csv"
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
)

func (bt BackendType) String() string { return string(bt) }

// IsValid reports whether bt is one of the known store types.
func (bt BackendType) IsValid() bool {
	return slices.Contains(KnownTypes, bt)
}

// Backend reads and writes the survey records.
type Backend interface {
	store.RecordWriter
	store.RecordLoader
}

// Config selects a store and carries the settings each type needs. Fields for
// other types are ignored.
type Config struct {
	Type BackendType

	// csv, memory seed
	StorePath       string
	AllowHeaderless bool

	// sqlite
	SQLiteDBPath string

	// sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// CleanupFunc releases what a backend holds open.
type CleanupFunc func() error

// BackendResult pairs a store with its cleanup, which may be nil.
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Close is safe on a nil result and on stores without cleanup.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory builds the store described by a Config.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

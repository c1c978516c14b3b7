package backend

import (
	"context"
	"fmt"
	"log/slog"

	"screentime/internal/storage"
	"screentime/internal/store/csvfile"
	gsheet "screentime/internal/store/google"
	"screentime/internal/store/memory"
)

// DefaultFactory opens the stores shipped with the service.
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory logs to slog.Default when logger is nil.
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

type opener func(ctx context.Context, cfg Config) (*BackendResult, []any, error)

func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	open := map[BackendType]opener{
		CSVBackend:    openCSV,
		MemoryBackend: openMemory,
		SQLiteBackend: openSQLite,
		SheetsBackend: openSheets,
	}[cfg.Type]
	if open == nil {
		return nil, fmt.Errorf("no opener for backend %q", cfg.Type)
	}

	result, attrs, err := open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Type, err)
	}
	f.logger.Info("Record store ready", append([]any{"type", cfg.Type.String()}, attrs...)...)
	return result, nil
}

func openCSV(_ context.Context, cfg Config) (*BackendResult, []any, error) {
	s := csvfile.New(cfg.StorePath, csvfile.Options{AllowHeaderless: cfg.AllowHeaderless})
	return &BackendResult{Backend: s}, []any{"path", cfg.StorePath, "allow_headerless", cfg.AllowHeaderless}, nil
}

// openMemory seeds from StorePath when set. Writes never reach the file.
func openMemory(_ context.Context, cfg Config) (*BackendResult, []any, error) {
	s := memory.New(nil)
	if cfg.StorePath != "" {
		s = memory.NewFromFile(cfg.StorePath)
	}
	return &BackendResult{Backend: s}, []any{"seed", cfg.StorePath}, nil
}

func openSQLite(_ context.Context, cfg Config) (*BackendResult, []any, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, err
	}
	return &BackendResult{Backend: repo, Cleanup: repo.Close}, []any{"db_path", cfg.SQLiteDBPath}, nil
}

func openSheets(ctx context.Context, cfg Config) (*BackendResult, []any, error) {
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
	})
	if err != nil {
		return nil, nil, err
	}
	return &BackendResult{Backend: client}, []any{"sheet", cfg.GoogleSheetName}, nil
}

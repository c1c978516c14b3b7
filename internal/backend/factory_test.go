package backend

import (
	"context"
	"path/filepath"
	"testing"

	"screentime/internal/config"
	"screentime/internal/core"
)

func TestBackendType_IsValid(t *testing.T) {
	for _, bt := range KnownTypes {
		if !bt.IsValid() {
			t.Errorf("%s should be valid", bt)
		}
	}
	if BackendType("postgres").IsValid() {
		t.Error("postgres should not be valid")
	}
	if got := TypeNames(); len(got) != 4 || got[0] != "csv" {
		t.Errorf("TypeNames() = %v", got)
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	app := &config.Config{
		DataBackend:          "csv",
		StorePath:            "survey.csv",
		StoreAllowHeaderless: true,
		SQLiteDBPath:         "mirror.db",
		MirrorBackend:        "sqlite",
	}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != CSVBackend || cfg.StorePath != "survey.csv" || !cfg.AllowHeaderless {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}

	mirror, err := MirrorFromAppConfig(app)
	if err != nil {
		t.Fatalf("MirrorFromAppConfig() error = %v", err)
	}
	if mirror.Type != SQLiteBackend || mirror.SQLiteDBPath != "mirror.db" {
		t.Errorf("MirrorFromAppConfig() = %+v", mirror)
	}

	app.DataBackend = "postgres"
	if _, err := FromAppConfig(app); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "csv", config: Config{Type: CSVBackend, StorePath: "data.csv"}},
		{name: "csv without path", config: Config{Type: CSVBackend}, wantErr: true},
		{name: "memory without seed", config: Config{Type: MemoryBackend}},
		{name: "sqlite without path", config: Config{Type: SQLiteBackend}, wantErr: true},
		{name: "sheets without id", config: Config{Type: SheetsBackend, GoogleSheetName: "Records"}, wantErr: true},
		{name: "sheets", config: Config{Type: SheetsBackend, GoogleSpreadsheetID: "id", GoogleSheetName: "Records"}},
		{name: "unknown", config: Config{Type: "nope"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFactory_CreateBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f := NewFactory(nil)

	tests := []struct {
		name   string
		config Config
	}{
		{name: "csv", config: Config{Type: CSVBackend, StorePath: filepath.Join(dir, "data.csv")}},
		{name: "memory", config: Config{Type: MemoryBackend}},
		{name: "sqlite", config: Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "db", "test.db")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.CreateBackend(ctx, tt.config)
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			defer func() {
				if err := res.Close(); err != nil {
					t.Errorf("Close() error = %v", err)
				}
			}()

			if _, found, err := res.Backend.LoadRecords(ctx); err != nil || found {
				t.Fatalf("fresh backend: found=%v err=%v", found, err)
			}
			if err := res.Backend.AppendRecord(ctx, core.Record{Category: "Monday", Value: 3}); err != nil {
				t.Fatalf("AppendRecord() error = %v", err)
			}
			recs, found, err := res.Backend.LoadRecords(ctx)
			if err != nil || !found || len(recs) != 1 || recs[0].Value != 3 {
				t.Fatalf("after append: recs=%v found=%v err=%v", recs, found, err)
			}
		})
	}

	if _, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend}); err == nil {
		t.Error("expected validation error")
	}
}

func TestBackendResult_CloseNil(t *testing.T) {
	var r *BackendResult
	if err := r.Close(); err != nil {
		t.Errorf("nil result Close() = %v", err)
	}
	if err := (&BackendResult{}).Close(); err != nil {
		t.Errorf("no cleanup Close() = %v", err)
	}
}

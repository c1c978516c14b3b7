package backend

import (
	"errors"
	"fmt"

	"screentime/internal/config"
)

// KnownTypes lists every store type FromAppConfig accepts.
var KnownTypes = []BackendType{CSVBackend, MemoryBackend, SQLiteBackend, SheetsBackend}

// TypeNames is KnownTypes as strings, for flag help and error messages.
func TypeNames() []string {
	names := make([]string, len(KnownTypes))
	for i, t := range KnownTypes {
		names[i] = t.String()
	}
	return names
}

var errNoAppConfig = errors.New("backend: no application config")

// FromAppConfig describes the primary store selected by DATA_BACKEND.
func FromAppConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, errNoAppConfig
	}
	return describe(cfg, BackendType(cfg.DataBackend))
}

// MirrorFromAppConfig describes the worker's mirror selected by MIRROR_BACKEND.
func MirrorFromAppConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, errNoAppConfig
	}
	return describe(cfg, BackendType(cfg.MirrorBackend))
}

func describe(cfg *config.Config, t BackendType) (Config, error) {
	if !t.IsValid() {
		return Config{}, fmt.Errorf("backend %q is not one of %v", t, TypeNames())
	}
	return Config{
		Type:                     t,
		StorePath:                cfg.StorePath,
		AllowHeaderless:          cfg.StoreAllowHeaderless,
		SQLiteDBPath:             cfg.SQLiteDBPath,
		GoogleSpreadsheetID:      cfg.GoogleSpreadsheetID,
		GoogleSheetName:          cfg.GoogleSheetName,
		GoogleServiceAccountFile: cfg.GoogleServiceAccountFile,
		GoogleServiceAccountJSON: cfg.GoogleServiceAccountJSON,
	}, nil
}

// setting is a value a store type cannot start without.
type setting struct {
	env   string
	value string
}

func (c Config) required() []setting {
	switch c.Type {
	case CSVBackend:
		return []setting{{"STORE_PATH", c.StorePath}}
	case SQLiteBackend:
		return []setting{{"SQLITE_DB_PATH", c.SQLiteDBPath}}
	case SheetsBackend:
		return []setting{
			{"GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID},
			{"GOOGLE_SHEET_NAME", c.GoogleSheetName},
		}
	}
	// memory runs unseeded without STORE_PATH
	return nil
}

// Validate checks the type is known and its required settings are present.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("backend %q is not one of %v", c.Type, TypeNames())
	}
	for _, s := range c.required() {
		if s.value == "" {
			return fmt.Errorf("%s backend needs %s", c.Type, s.env)
		}
	}
	return nil
}

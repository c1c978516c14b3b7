package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

// RunMigrations brings the records schema up to the latest embedded version.
// The migrator is left open: closing it would close db.
func RunMigrations(db *sql.DB) error {
	src, err := iofs.New(schemaFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded schema: %w", err)
	}
	target, err := sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: "records_schema_version"})
	if err != nil {
		return fmt.Errorf("prepare schema table: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", target)
	if err != nil {
		return fmt.Errorf("prepare migrator: %w", err)
	}

	switch err := m.Up(); {
	case err == nil, errors.Is(err, migrate.ErrNoChange):
		return nil
	default:
		return fmt.Errorf("migrate records schema: %w", err)
	}
}

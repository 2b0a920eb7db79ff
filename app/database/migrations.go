package database

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// RunMigrations applies all pending migrations for the dialect and returns
// version info.
func RunMigrations(db *DB) (uint, bool, error) {
	var (
		driver migratedb.Driver
		err    error
	)

	switch db.dialect {
	case DialectPostgres:
		driver, err = migratepgx.WithInstance(db.DB, &migratepgx.Config{})
	case DialectSQLite:
		driver, err = migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	default:
		err = fmt.Errorf("unsupported database dialect %q", db.dialect)
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to create %s migration driver: %w", db.dialect, err)
	}

	sub, err := fs.Sub(migrationFS, "migrations/"+string(db.dialect))
	if err != nil {
		return 0, false, fmt.Errorf("failed to open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return 0, false, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(db.dialect), driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, false, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, dirty, nil
}

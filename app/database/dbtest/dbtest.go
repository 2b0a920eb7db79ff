// Package dbtest opens migrated databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lysyi3m/cti-comb/app/database"
	"github.com/lysyi3m/cti-comb/app/source"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// OpenSQLite returns a migrated SQLite database in a temp directory.
func OpenSQLite(tb testing.TB) *database.DB {
	tb.Helper()

	db, err := database.Open(context.Background(), database.DialectSQLite, filepath.Join(tb.TempDir(), "cti.db"))
	if err != nil {
		tb.Fatalf("failed to open sqlite: %v", err)
	}
	tb.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		tb.Fatalf("failed to migrate sqlite: %v", err)
	}
	return db
}

// OpenPostgres starts a throwaway postgres container and returns it migrated.
func OpenPostgres(tb testing.TB) *database.DB {
	tb.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17.5",
		postgres.WithDatabase("cti_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		tb.Fatalf("failed to start postgres container: %v", err)
	}
	tb.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			tb.Logf("failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		tb.Fatalf("failed to get connection string: %v", err)
	}

	db, err := database.Open(ctx, database.DialectPostgres, dsn)
	if err != nil {
		tb.Fatalf("failed to open postgres: %v", err)
	}
	tb.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		tb.Fatalf("failed to migrate postgres: %v", err)
	}
	return db
}

// SeedSource stores cfg and links it to freshly created categories named by slugs.
func SeedSource(tb testing.TB, db *database.DB, cfg source.Config, categorySlugs ...string) source.Config {
	tb.Helper()
	ctx := context.Background()

	categories := database.NewCategoryStore(db)
	sources := database.NewSourceStore(db)

	if err := sources.UpsertSource(ctx, cfg); err != nil {
		tb.Fatalf("failed to seed source: %v", err)
	}

	cfg.CategoryIDs = nil
	for _, slug := range categorySlugs {
		id, err := categories.UpsertCategory(ctx, slug, slug)
		if err != nil {
			tb.Fatalf("failed to seed category: %v", err)
		}
		cfg.CategoryIDs = append(cfg.CategoryIDs, id)
	}
	if err := sources.SetSourceCategories(ctx, cfg.ID, cfg.CategoryIDs); err != nil {
		tb.Fatalf("failed to link categories: %v", err)
	}

	stored, err := sources.GetSource(ctx, cfg.ID)
	if err != nil || stored == nil {
		tb.Fatalf("failed to reload seeded source: %v", err)
	}
	return *stored
}

// SetSourceColumn overwrites one stored column of a source without going
// through the repository encoders.
func SetSourceColumn(tb testing.TB, db *database.DB, id, column string, raw any) {
	tb.Helper()

	var format sq.PlaceholderFormat = sq.Question
	if db.Dialect() == database.DialectPostgres {
		format = sq.Dollar
	}

	query, args, err := sq.StatementBuilder.PlaceholderFormat(format).
		Update("sources").Set(column, raw).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		tb.Fatalf("failed to build source update: %v", err)
	}
	if _, err := db.ExecContext(context.Background(), query, args...); err != nil {
		tb.Fatalf("failed to overwrite %s of %s: %v", column, id, err)
	}
}

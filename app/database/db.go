package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const pingTimeout = 10 * time.Second

// DB is a sql.DB bound to a dialect and a matching query builder.
type DB struct {
	*sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
}

// Open connects with the driver registered for dialect and pings the store.
// For postgres dsn is a pgx connection string; for sqlite it is a file path.
func Open(ctx context.Context, dialect Dialect, dsn string) (*DB, error) {
	var (
		driverName string
		format     sq.PlaceholderFormat
	)

	switch dialect {
	case DialectPostgres:
		driverName, format = "pgx", sq.Dollar
	case DialectSQLite:
		driverName, format = "sqlite", sq.Question
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("unsupported database dialect %q", dialect)
	}

	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		sqlDB.SetMaxOpenConns(4)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect, err)
	}

	return &DB{
		DB:      sqlDB,
		dialect: dialect,
		sb:      sq.StatementBuilder.PlaceholderFormat(format),
	}, nil
}

func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Writers take the lock at BEGIN and wait on each other through
// busy_timeout rather than failing on lock upgrade.
func sqliteDSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

// withTx runs fn inside a transaction, rolling back on any error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrDuplicateFingerprint is returned when an item with the same fingerprint
// already exists.
var ErrDuplicateFingerprint = errors.New("item with this fingerprint already exists")

// ErrInvalidSource marks a stored source row whose JSON columns cannot be decoded.
var ErrInvalidSource = errors.New("invalid stored source")

// InvalidSource is a row the list queries skipped.
type InvalidSource struct {
	ID  string
	Err error
}

const (
	pgUniqueViolation     = "23505"
	fingerprintConstraint = "items_fingerprint_key"
)

// isFingerprintViolation reports whether err is a unique violation on
// items.fingerprint, as opposed to any other constraint.
func isFingerprintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == fingerprintConstraint
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		// Primary code, extended result codes may or may not be enabled.
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
			strings.Contains(liteErr.Error(), "UNIQUE constraint failed: items.fingerprint")
	}

	return false
}

package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"offer-relay/internal/pkg/errs"

	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite opens the store file. Write transactions begin IMMEDIATE so lock contention shows up
// at BEGIN rather than at commit.
func OpenSQLite(path string, logger *slog.Logger) (*sql.DB, func(), error) {
	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, nil, errs.Wrap(err, "open sqlite store")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, errs.Wrap(err, "connect sqlite store")
	}

	// one connection: a single writer, and an in-memory database survives between calls
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Warn("closing sqlite store failed", "error", err)
		}
	}
	return db, cleanup, nil
}

func sqliteDSN(path string) string {
	if path == ":memory:" {
		return "file::memory:?_txlock=immediate"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + "_txlock=immediate"
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return errs.Wrapf(err, "execute %q", p)
		}
	}
	return nil
}

// MigrateSQLite applies the schema and records its version in user_version.
func MigrateSQLite(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return errs.Wrap(err, "read user_version")
	}
	if version >= sqliteSchemaVersion {
		return nil
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return errs.Wrap(err, "apply sqlite schema")
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return errs.Wrap(err, "set user_version")
	}
	return nil
}

package repository

import (
	"errors"

	"offer-relay/internal/infra"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

const (
	pgErrCodeUniqueViolation      = "23505"
	pgErrCodeSerializationFailure = "40001"
	pgErrCodeDeadlockDetected     = "40P01"
	pgErrCodeLockNotAvailable     = "55P03"
)

func classifyPgError(err error) infra.RepositoryErrorKind {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return infra.KindDBFailure
	}
	switch pgErr.Code {
	case pgErrCodeUniqueViolation:
		return infra.KindDuplicateKey
	case pgErrCodeSerializationFailure, pgErrCodeDeadlockDetected, pgErrCodeLockNotAvailable:
		return infra.KindLocked
	default:
		return infra.KindDBFailure
	}
}

func classifySQLiteError(err error) infra.RepositoryErrorKind {
	var sqlErr sqlite3.Error
	if !errors.As(err, &sqlErr) {
		return infra.KindDBFailure
	}
	switch sqlErr.Code {
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		return infra.KindLocked
	case sqlite3.ErrConstraint:
		if sqlErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return infra.KindDuplicateKey
		}
		return infra.KindDBFailure
	default:
		return infra.KindDBFailure
	}
}

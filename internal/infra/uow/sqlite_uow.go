package uow

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"offer-relay/internal/infra/repository"
	"offer-relay/internal/pkg/errs"
	"offer-relay/internal/usecase/shared"

	"github.com/mattn/go-sqlite3"
)

type SQLiteUoW struct {
	db     *sql.DB
	loc    *time.Location
	logger *slog.Logger
	policy retryPolicy
}

func NewSQLiteUoW(db *sql.DB, loc *time.Location, logger *slog.Logger) shared.UnitOfWork {
	return &SQLiteUoW{
		db:     db,
		loc:    loc,
		logger: logger,
		policy: defaultRetryPolicy(isRetryableSQLiteError),
	}
}

func (u *SQLiteUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return u.policy.run(ctx, u.logger, func() error {
		return u.runInTx(ctx, nil, fn)
	})
}

func (u *SQLiteUoW) WithinReadOnly(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return u.runInTx(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func (u *SQLiteUoW) runInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx shared.Tx) error) error {
	sqlTx, err := u.db.BeginTx(ctx, opts)
	if err != nil {
		return errs.Mark(err, errTransactionBegin)
	}

	defer func() {
		if rollbackErr := sqlTx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			u.logger.Warn("rollback failed", "error", rollbackErr.Error())
		}
	}()

	tx := &sqliteTx{dbtx: sqlTx, uow: u}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return errs.Mark(err, errTransactionCommit)
	}
	return nil
}

func isRetryableSQLiteError(err error) bool {
	var sqlErr sqlite3.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	return sqlErr.Code == sqlite3.ErrBusy || sqlErr.Code == sqlite3.ErrLocked
}

type sqliteTx struct {
	dbtx *sql.Tx
	uow  *SQLiteUoW

	offerRepo shared.OfferRepository
}

func (t *sqliteTx) Offers() shared.OfferRepository {
	if t.offerRepo == nil {
		t.offerRepo = repository.NewSQLiteOfferRepository(t.dbtx, t.uow.loc, t.uow.logger)
	}
	return t.offerRepo
}

package uow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"offer-relay/internal/infra/repository"
	"offer-relay/internal/pkg/errs"
	"offer-relay/internal/usecase/shared"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgErrCodeSerializationFailure = "40001"
	pgErrCodeDeadlockDetected     = "40P01"
	pgErrCodeLockNotAvailable     = "55P03"
)

type PostgresUoW struct {
	pool   *pgxpool.Pool
	loc    *time.Location
	logger *slog.Logger
	policy retryPolicy
}

func NewPostgresUoW(pool *pgxpool.Pool, loc *time.Location, logger *slog.Logger) shared.UnitOfWork {
	return &PostgresUoW{
		pool:   pool,
		loc:    loc,
		logger: logger,
		policy: defaultRetryPolicy(isRetryablePgError),
	}
}

// ReadCommitted prevents dirty reads while allowing concurrent writes
func (u *PostgresUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return u.policy.run(ctx, u.logger, func() error {
		return u.runInTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
	})
}

// Read-only transaction for a consistent snapshot
func (u *PostgresUoW) WithinReadOnly(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return u.runInTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, fn)
}

// One attempt per call; the retry loop lives in retryPolicy so no defer accumulates across attempts.
func (u *PostgresUoW) runInTx(ctx context.Context, options pgx.TxOptions, fn func(ctx context.Context, tx shared.Tx) error) error {
	pgxTx, err := u.pool.BeginTx(ctx, options)
	if err != nil {
		return errs.Mark(err, errTransactionBegin)
	}

	defer func() {
		if rollbackErr := pgxTx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			u.logger.Warn("rollback failed", "error", rollbackErr.Error())
		}
	}()

	tx := &pgTx{dbtx: pgxTx, uow: u}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := pgxTx.Commit(ctx); err != nil {
		return errs.Mark(err, errTransactionCommit)
	}
	return nil
}

func isRetryablePgError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	switch pgErr.Code {
	case pgErrCodeSerializationFailure, pgErrCodeDeadlockDetected, pgErrCodeLockNotAvailable:
		return true
	default:
		return false
	}
}

type pgTx struct {
	dbtx pgx.Tx
	uow  *PostgresUoW

	// Lazy-initialized repository
	offerRepo shared.OfferRepository
}

func (t *pgTx) Offers() shared.OfferRepository {
	if t.offerRepo == nil {
		t.offerRepo = repository.NewPostgresOfferRepository(t.dbtx, t.uow.loc, t.uow.logger)
	}
	return t.offerRepo
}

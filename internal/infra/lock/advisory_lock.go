package lock

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"offer-relay/internal/pkg/errs"
	"offer-relay/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCycleLock holds a session-level advisory lock on a dedicated pool connection for the
// lifetime of a cycle.
type PostgresCycleLock struct {
	pool   *pgxpool.Pool
	key    int64
	logger *slog.Logger
}

var _ shared.CycleLock = (*PostgresCycleLock)(nil)

func NewPostgresCycleLock(pool *pgxpool.Pool, name string, logger *slog.Logger) *PostgresCycleLock {
	return &PostgresCycleLock{pool: pool, key: advisoryKey(name), logger: logger}
}

func (l *PostgresCycleLock) TryAcquire(ctx context.Context) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, errs.Wrap(err, "acquire lock connection")
	}

	var locked bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, l.key).Scan(&locked); err != nil {
		conn.Release()
		return nil, errs.Wrap(err, "try advisory lock")
	}
	if !locked {
		conn.Release()
		return nil, shared.ErrCycleLockHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if _, err := conn.Exec(unlockCtx, `SELECT pg_advisory_unlock($1)`, l.key); err != nil {
				// closing the session drops the lock with it
				l.logger.Warn("advisory unlock failed", "key", l.key, "error", err)
				_ = conn.Conn().Close(unlockCtx)
			}
			conn.Release()
		})
	}, nil
}

func advisoryKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	// #nosec G115 -- any 64-bit value is a valid advisory key
	return int64(h.Sum64())
}

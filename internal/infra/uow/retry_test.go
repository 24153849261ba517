//go:build unit

package uow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"offer-relay/internal/pkg/errs"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRetryable = errors.New("retryable")

func testPolicy() retryPolicy {
	return retryPolicy{
		maxRetries: 2,
		base:       time.Millisecond,
		retryable:  func(err error) bool { return errors.Is(err, errRetryable) },
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRetryPolicy(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := testPolicy().run(context.Background(), quietLogger(), func() error {
			calls++
			if calls < 3 {
				return errRetryable
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhausted retries are marked as contention", func(t *testing.T) {
		calls := 0
		err := testPolicy().run(context.Background(), quietLogger(), func() error {
			calls++
			return errRetryable
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.True(t, errors.Is(err, errs.ErrStoreContention))
		assert.True(t, errors.Is(err, errMaxRetriesExceeded))
		assert.True(t, errors.Is(err, errRetryable))
	})

	t.Run("non retryable error returns immediately", func(t *testing.T) {
		boom := errors.New("boom")
		calls := 0
		err := testPolicy().run(context.Background(), quietLogger(), func() error {
			calls++
			return boom
		})
		assert.Equal(t, 1, calls)
		assert.ErrorIs(t, err, boom)
		assert.False(t, errors.Is(err, errs.ErrStoreContention))
	})

	t.Run("cancelled context stops the wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := testPolicy()
		p.base = time.Hour
		err := p.run(ctx, quietLogger(), func() error {
			cancel()
			return errRetryable
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBackOffSchedule(t *testing.T) {
	p := defaultRetryPolicy(func(error) bool { return true })
	b := p.backOff(context.Background())
	b.Reset()

	want := p.base
	for range p.maxRetries {
		got := b.NextBackOff()
		assert.GreaterOrEqual(t, got, want-want/5)
		assert.LessOrEqual(t, got, want+want/5)
		want *= 2
	}
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}

func TestRetryableClassifiers(t *testing.T) {
	tests := []struct {
		name string
		fn   func(error) bool
		err  error
		want bool
	}{
		{"pg serialization failure", isRetryablePgError, &pgconn.PgError{Code: pgErrCodeSerializationFailure}, true},
		{"pg deadlock", isRetryablePgError, &pgconn.PgError{Code: pgErrCodeDeadlockDetected}, true},
		{"pg lock not available", isRetryablePgError, errs.Wrap(&pgconn.PgError{Code: pgErrCodeLockNotAvailable}, "select"), true},
		{"pg unique violation", isRetryablePgError, &pgconn.PgError{Code: "23505"}, false},
		{"plain error", isRetryablePgError, errors.New("x"), false},
		{"sqlite busy", isRetryableSQLiteError, sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"sqlite locked", isRetryableSQLiteError, errs.Wrap(sqlite3.Error{Code: sqlite3.ErrLocked}, "insert"), true},
		{"sqlite constraint", isRetryableSQLiteError, sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn(tt.err))
		})
	}
}

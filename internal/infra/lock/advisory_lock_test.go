//go:build e2e

package lock

import (
	"context"
	"testing"

	"offer-relay/internal/testutil/pgtest"
	"offer-relay/internal/usecase/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresCycleLock(t *testing.T) {
	pool, _ := pgtest.NewDatabase(t)
	ctx := context.Background()

	first := NewPostgresCycleLock(pool, "ingestion", quietLogger())
	second := NewPostgresCycleLock(pool, "ingestion", quietLogger())
	other := NewPostgresCycleLock(pool, "notification", quietLogger())

	release, err := first.TryAcquire(ctx)
	require.NoError(t, err)

	_, err = second.TryAcquire(ctx)
	assert.ErrorIs(t, err, shared.ErrCycleLockHeld)

	releaseOther, err := other.TryAcquire(ctx)
	require.NoError(t, err)
	releaseOther()

	release()
	again, err := second.TryAcquire(ctx)
	require.NoError(t, err)
	again()
}

//go:build unit

package scheduler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"offer-relay/internal/scheduler"

	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerRunsAtStartAndOnTicks(t *testing.T) {
	var runs atomic.Int32
	s := scheduler.New(discardLogger(), scheduler.Job{
		Name:     "ingest",
		Interval: 10 * time.Millisecond,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop")
}

func TestSchedulerSurvivesErrorsAndPanics(t *testing.T) {
	var runs atomic.Int32
	s := scheduler.New(discardLogger(), scheduler.Job{
		Name:     "notify",
		Interval: 5 * time.Millisecond,
		Run: func(context.Context) error {
			switch runs.Add(1) {
			case 1:
				panic("nil channel map")
			case 2:
				return errors.New("database is locked")
			default:
				return nil
			}
		},
	})

	s.Start(context.Background())
	defer s.Stop()
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestSchedulerStopCancelsRunningJob(t *testing.T) {
	started := make(chan struct{})
	var cancelled atomic.Bool
	s := scheduler.New(discardLogger(), scheduler.Job{
		Name:     "slow",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			cancelled.Store(true)
			return ctx.Err()
		},
	})

	s.Start(context.Background())
	<-started
	s.Stop()
	assert.True(t, cancelled.Load())
}

func TestSchedulerSkipsDisabledJobs(t *testing.T) {
	var runs atomic.Int32
	s := scheduler.New(discardLogger(), scheduler.Job{
		Name: "off",
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	s.Start(context.Background())
	s.Stop()
	assert.Zero(t, runs.Load())
}

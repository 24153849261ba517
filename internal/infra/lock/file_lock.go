// Package lock provides the cross-process guard that keeps ingestion cycles from overlapping.
package lock

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"offer-relay/internal/pkg/errs"
	"offer-relay/internal/usecase/shared"

	"github.com/google/uuid"
)

// FileCycleLock is an O_EXCL lock file. A file older than ttl is treated as abandoned; the holder
// refreshes its mtime so a live cycle never looks stale.
type FileCycleLock struct {
	path      string
	ttl       time.Duration
	heartbeat time.Duration
	logger    *slog.Logger
}

var _ shared.CycleLock = (*FileCycleLock)(nil)

func NewFileCycleLock(path string, ttl time.Duration, logger *slog.Logger) *FileCycleLock {
	heartbeat := ttl / 4
	if heartbeat <= 0 || heartbeat > time.Minute {
		heartbeat = time.Minute
	}
	return &FileCycleLock{path: path, ttl: ttl, heartbeat: heartbeat, logger: logger}
}

func (l *FileCycleLock) TryAcquire(ctx context.Context) (func(), error) {
	abspath, err := filepath.Abs(l.path)
	if err != nil {
		return nil, errs.Wrap(err, "resolve lock path")
	}

	token := uuid.NewString()
	for {
		f, err := os.OpenFile(abspath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, _ = fmt.Fprintf(f, `{"pid":%d,"time":%d,"token":%q}`+"\n", os.Getpid(), time.Now().Unix(), token)
			_ = f.Close()
			return l.hold(ctx, abspath, token), nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, errs.Wrap(err, "create lock file")
		}

		fi, err := os.Stat(abspath)
		if err != nil {
			// removed between open and stat; try again
			continue
		}
		if age := time.Since(fi.ModTime()); age >= l.ttl {
			l.logger.Warn("removing stale cycle lock", "path", abspath, "age", age.String())
			if !l.breakStale(abspath, token) {
				return nil, shared.ErrCycleLockHeld
			}
			continue
		}
		return nil, shared.ErrCycleLockHeld
	}
}

// breakStale moves the lock aside under a unique name before deleting it, so of several
// processes that saw it stale only one removes it. A lock that turns out to be fresh once moved
// was taken in the meantime and is put back.
func (l *FileCycleLock) breakStale(abspath, token string) bool {
	aside := abspath + ".stale-" + token
	if err := os.Rename(abspath, aside); err != nil {
		// another process moved it first
		return errors.Is(err, fs.ErrNotExist)
	}
	fi, err := os.Stat(aside)
	if err == nil && time.Since(fi.ModTime()) < l.ttl {
		if err := os.Link(aside, abspath); err != nil {
			l.logger.Warn("restoring live cycle lock failed", "path", abspath, "error", err)
		}
		_ = os.Remove(aside)
		return false
	}
	_ = os.Remove(aside)
	return true
}

// owns reports whether the lock file still carries token.
func owns(abspath, token string) bool {
	b, err := os.ReadFile(abspath)
	return err == nil && strings.Contains(string(b), token)
}

func (l *FileCycleLock) hold(ctx context.Context, abspath, token string) func() {
	hbCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(l.heartbeat)
		defer t.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-t.C:
				if !owns(abspath, token) {
					l.logger.Warn("cycle lock taken over", "path", abspath)
					return
				}
				now := time.Now()
				_ = os.Chtimes(abspath, now, now)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			if !owns(abspath, token) {
				return
			}
			if err := os.Remove(abspath); err != nil && !errors.Is(err, fs.ErrNotExist) {
				l.logger.Warn("removing cycle lock failed", "path", abspath, "error", err)
			}
		})
	}
}

//go:build unit

package shared

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex(t *testing.T) {
	t.Run("same key serializes", func(t *testing.T) {
		k := NewKeyedMutex()
		var (
			mu      sync.Mutex
			active  int
			maxSeen int
			wg      sync.WaitGroup
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := k.Lock("offer-1")
				defer unlock()

				mu.Lock()
				active++
				maxSeen = max(maxSeen, active)
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, maxSeen)
		assert.Equal(t, 0, k.size())
	})

	t.Run("different keys do not block", func(t *testing.T) {
		k := NewKeyedMutex()
		unlockA := k.Lock("a")
		defer unlockA()

		done := make(chan struct{})
		go func() {
			unlock := k.Lock("b")
			unlock()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("lock on b blocked behind a")
		}
	})

	t.Run("unlock is idempotent", func(t *testing.T) {
		k := NewKeyedMutex()
		unlock := k.Lock("a")
		unlock()
		unlock()
		assert.Equal(t, 0, k.size())
	})
}

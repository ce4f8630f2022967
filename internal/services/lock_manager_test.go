package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLockManagerReturnsSameLock(t *testing.T) {
	lm := NewLockManager(time.Hour)
	defer lm.Stop()

	assert.Same(t, lm.GetSessionLock("a"), lm.GetSessionLock("a"))
	assert.NotSame(t, lm.GetSessionLock("a"), lm.GetSessionLock("b"))
	assert.Equal(t, 2, lm.Len())

	lm.Remove("a")
	assert.Equal(t, 1, lm.Len())
}

func TestLockManagerCleanupSkipsHeldLocks(t *testing.T) {
	lm := NewLockManager(time.Hour)
	defer lm.Stop()

	held := lm.GetSessionLock("held")
	lm.GetSessionLock("idle")
	held.Lock()
	defer held.Unlock()

	lm.cleanupUnusedLocks(time.Now().Add(2 * time.Hour))
	assert.Equal(t, 1, lm.Len())
	assert.Same(t, held, lm.GetSessionLock("held"))
}

func TestExecuteWithSessionLock(t *testing.T) {
	lm := NewLockManager(time.Hour)
	defer lm.Stop()

	counter := 0
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			_ = lm.ExecuteWithSessionLock("s", func() error {
				counter++
				return nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	_ = lm.ExecuteWithSessionReadLock("s", func() error {
		assert.Equal(t, 10, counter)
		return nil
	})
}

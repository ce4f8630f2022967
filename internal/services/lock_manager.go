// internal/services/lock_manager.go
package services

import (
	"sync"
	"time"
)

// LockManager hands out one RWMutex per session id.
type LockManager struct {
	sessionLocks  map[string]*LockInfo
	globalLock    sync.RWMutex
	lockTTL       time.Duration
	cleanupTicker *time.Ticker
	stop          chan struct{}
	stopOnce      sync.Once
}

// LockInfo wraps a lock with its last use.
type LockInfo struct {
	Mutex    *sync.RWMutex
	LastUsed time.Time
}

// NewLockManager starts the background cleanup of idle locks.
func NewLockManager(lockTTL time.Duration) *LockManager {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Minute
	}
	lm := &LockManager{
		sessionLocks: make(map[string]*LockInfo),
		lockTTL:      lockTTL,
		stop:         make(chan struct{}),
	}

	lm.startCleanup()
	return lm
}

// GetSessionLock returns the lock for sessionID, creating it if needed.
func (lm *LockManager) GetSessionLock(sessionID string) *sync.RWMutex {
	lm.globalLock.RLock()
	if lockInfo, exists := lm.sessionLocks[sessionID]; exists {
		lm.globalLock.RUnlock()
		lm.touch(sessionID)
		return lockInfo.Mutex
	}
	lm.globalLock.RUnlock()

	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	// double check under the write lock
	if lockInfo, exists := lm.sessionLocks[sessionID]; exists {
		lockInfo.LastUsed = time.Now()
		return lockInfo.Mutex
	}

	lockInfo := &LockInfo{
		Mutex:    &sync.RWMutex{},
		LastUsed: time.Now(),
	}
	lm.sessionLocks[sessionID] = lockInfo
	return lockInfo.Mutex
}

// ExecuteWithSessionLock runs fn while holding the session write lock.
func (lm *LockManager) ExecuteWithSessionLock(sessionID string, fn func() error) error {
	lock := lm.GetSessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

// ExecuteWithSessionReadLock runs fn while holding the session read lock.
func (lm *LockManager) ExecuteWithSessionReadLock(sessionID string, fn func() error) error {
	lock := lm.GetSessionLock(sessionID)
	lock.RLock()
	defer lock.RUnlock()
	return fn()
}

// Remove forgets the lock of a deleted session.
func (lm *LockManager) Remove(sessionID string) {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()
	delete(lm.sessionLocks, sessionID)
}

// Len returns the number of tracked locks.
func (lm *LockManager) Len() int {
	lm.globalLock.RLock()
	defer lm.globalLock.RUnlock()
	return len(lm.sessionLocks)
}

// Stop ends the cleanup goroutine.
func (lm *LockManager) Stop() {
	lm.stopOnce.Do(func() {
		close(lm.stop)
	})
}

func (lm *LockManager) touch(sessionID string) {
	lm.globalLock.Lock()
	if lockInfo, exists := lm.sessionLocks[sessionID]; exists {
		lockInfo.LastUsed = time.Now()
	}
	lm.globalLock.Unlock()
}

func (lm *LockManager) startCleanup() {
	interval := lm.lockTTL / 2
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	lm.cleanupTicker = time.NewTicker(interval)
	go func() {
		defer lm.cleanupTicker.Stop()
		for {
			select {
			case <-lm.cleanupTicker.C:
				lm.cleanupUnusedLocks(time.Now())
			case <-lm.stop:
				return
			}
		}
	}()
}

func (lm *LockManager) cleanupUnusedLocks(now time.Time) {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	for sessionID, lockInfo := range lm.sessionLocks {
		if now.Sub(lockInfo.LastUsed) <= lm.lockTTL {
			continue
		}
		// skip locks that are held right now
		if !lockInfo.Mutex.TryLock() {
			continue
		}
		delete(lm.sessionLocks, sessionID)
		lockInfo.Mutex.Unlock()
	}
}

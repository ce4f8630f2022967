// internal/services/status.go
package services

import (
	"sync"
	"time"
)

// ConnectionStatus is the state of the connectivity check.
type ConnectionStatus string

const (
	StatusIdle     ConnectionStatus = "idle"
	StatusChecking ConnectionStatus = "checking"
	StatusSuccess  ConnectionStatus = "success"
	StatusError    ConnectionStatus = "error"
)

// StatusNotifier receives every status transition of a session.
type StatusNotifier interface {
	NotifyStatus(sessionID string, status ConnectionStatus)
}

// StatusTracker drives idle -> checking -> success|error -> idle. The
// terminal states fall back to idle after their reset delay; any new
// transition cancels a pending reset.
type StatusTracker struct {
	mu           sync.Mutex
	status       ConnectionStatus
	timer        *time.Timer
	generation   uint64
	successReset time.Duration
	errorReset   time.Duration
	onChange     func(ConnectionStatus)
}

// NewStatusTracker starts idle. onChange may be nil.
func NewStatusTracker(successReset, errorReset time.Duration, onChange func(ConnectionStatus)) *StatusTracker {
	return &StatusTracker{
		status:       StatusIdle,
		successReset: successReset,
		errorReset:   errorReset,
		onChange:     onChange,
	}
}

func (t *StatusTracker) Status() ConnectionStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Set moves to status and schedules the reset for success and error.
func (t *StatusTracker) Set(status ConnectionStatus) {
	t.mu.Lock()
	t.stopTimerLocked()
	t.generation++
	t.status = status

	var delay time.Duration
	switch status {
	case StatusSuccess:
		delay = t.successReset
	case StatusError:
		delay = t.errorReset
	}
	if status == StatusSuccess || status == StatusError {
		gen := t.generation
		t.timer = time.AfterFunc(delay, func() { t.reset(gen) })
	}
	onChange := t.onChange
	t.mu.Unlock()

	if onChange != nil {
		onChange(status)
	}
}

// Stop cancels a pending reset.
func (t *StatusTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopTimerLocked()
	t.generation++
}

func (t *StatusTracker) reset(gen uint64) {
	t.mu.Lock()
	// a newer transition already replaced this timer
	if gen != t.generation {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.status = StatusIdle
	onChange := t.onChange
	t.mu.Unlock()

	if onChange != nil {
		onChange(StatusIdle)
	}
}

func (t *StatusTracker) stopTimerLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type statusRecorder struct {
	mu      sync.Mutex
	updates []ConnectionStatus
}

func (r *statusRecorder) record(status ConnectionStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, status)
}

func (r *statusRecorder) NotifyStatus(_ string, status ConnectionStatus) {
	r.record(status)
}

func (r *statusRecorder) all() []ConnectionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ConnectionStatus(nil), r.updates...)
}

func TestStatusTrackerResetsAfterSuccess(t *testing.T) {
	rec := &statusRecorder{}
	tracker := NewStatusTracker(20*time.Millisecond, time.Hour, rec.record)

	tracker.Set(StatusChecking)
	tracker.Set(StatusSuccess)
	assert.Equal(t, StatusSuccess, tracker.Status())

	assert.Eventually(t, func() bool { return tracker.Status() == StatusIdle }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []ConnectionStatus{StatusChecking, StatusSuccess, StatusIdle}, rec.all())
}

func TestStatusTrackerErrorUsesItsOwnDelay(t *testing.T) {
	tracker := NewStatusTracker(time.Hour, 20*time.Millisecond, nil)

	tracker.Set(StatusError)
	assert.Eventually(t, func() bool { return tracker.Status() == StatusIdle }, time.Second, 5*time.Millisecond)
}

func TestStatusTrackerNewTransitionCancelsPendingReset(t *testing.T) {
	rec := &statusRecorder{}
	tracker := NewStatusTracker(30*time.Millisecond, time.Hour, rec.record)

	tracker.Set(StatusSuccess)
	tracker.Set(StatusChecking)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, StatusChecking, tracker.Status())
	assert.Equal(t, []ConnectionStatus{StatusSuccess, StatusChecking}, rec.all())
}

func TestStatusTrackerStop(t *testing.T) {
	tracker := NewStatusTracker(20*time.Millisecond, 20*time.Millisecond, nil)
	tracker.Set(StatusError)
	tracker.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, StatusError, tracker.Status())
}

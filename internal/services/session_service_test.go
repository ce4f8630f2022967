package services

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "github.com/allencreed/Sora-Prompt-Tool/internal/errors"
	"github.com/allencreed/Sora-Prompt-Tool/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSessionService(t *testing.T, notifier StatusNotifier) *SessionService {
	t.Helper()
	svc := NewSessionService(SessionConfig{
		TTL:          time.Hour,
		SuccessReset: 100 * time.Millisecond,
		ErrorReset:   100 * time.Millisecond,
	}, notifier, zap.NewNop())
	t.Cleanup(svc.Close)
	return svc
}

func TestCreateSession(t *testing.T) {
	svc := newTestSessionService(t, nil)

	snap := svc.Create()
	_, err := uuid.Parse(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Scene{{ID: 1}}, snap.Scenes)
	assert.Equal(t, models.FormatMarkdown, snap.Format)
	assert.Equal(t, StatusIdle, snap.ConnectionStatus)
	assert.False(t, snap.Loading)
	assert.False(t, snap.CanGenerate)
	assert.Equal(t, 1, svc.Len())
}

func TestSessionSceneOperations(t *testing.T) {
	svc := newTestSessionService(t, nil)
	id := svc.Create().ID

	snap, err := svc.AddScene(id)
	require.NoError(t, err)
	require.Len(t, snap.Scenes, 2)
	assert.Equal(t, "Cut", snap.Scenes[1].Transition)

	_, err = svc.UpdateScene(id, 0, "description", "A robot solving a cube")
	require.NoError(t, err)
	_, err = svc.UpdateScene(id, 0, "style", "Cinematic")
	require.NoError(t, err)
	_, err = svc.UpdateScene(id, 1, "description", "It glows")
	require.NoError(t, err)
	snap, err = svc.UpdateScene(id, 1, "shotSize", "Close-Up (CU)")
	require.NoError(t, err)
	assert.Equal(t, "Close-Up (CU)", snap.Scenes[1].ShotSize)
	assert.False(t, snap.CanGenerate)

	snap, err = svc.UpdateScene(id, 1, "style", "Sci-Fi")
	require.NoError(t, err)
	assert.True(t, snap.CanGenerate)

	snap, err = svc.RemoveScene(id, 1)
	require.NoError(t, err)
	require.Len(t, snap.Scenes, 1)

	snap, err = svc.RemoveScene(id, 0)
	require.NoError(t, err)
	assert.Len(t, snap.Scenes, 1)
}

func TestSessionUpdateSceneValidation(t *testing.T) {
	svc := newTestSessionService(t, nil)
	id := svc.Create().ID

	_, err := svc.UpdateScene(id, 0, "colour", "red")
	assert.True(t, apperrors.IsValidationError(err))

	_, err = svc.UpdateScene(id, 0, "angle", "Sideways")
	assert.True(t, apperrors.IsValidationError(err))

	_, err = svc.UpdateScene(id, 3, "description", "x")
	assert.True(t, apperrors.IsValidationError(err))
}

func TestSessionSetFormat(t *testing.T) {
	svc := newTestSessionService(t, nil)
	id := svc.Create().ID

	snap, err := svc.SetFormat(id, "JSON")
	require.NoError(t, err)
	assert.Equal(t, models.FormatJSON, snap.Format)

	_, err = svc.SetFormat(id, "xml")
	assert.True(t, apperrors.IsValidationError(err))
}

func TestSessionNotFound(t *testing.T) {
	svc := newTestSessionService(t, nil)

	_, err := svc.Snapshot("missing")
	assert.True(t, apperrors.IsNotFoundError(err))
	_, err = svc.AddScene("missing")
	assert.True(t, apperrors.IsNotFoundError(err))
	assert.True(t, apperrors.IsNotFoundError(svc.Delete("missing")))
}

func TestSessionDelete(t *testing.T) {
	svc := newTestSessionService(t, nil)
	id := svc.Create().ID

	require.NoError(t, svc.Delete(id))
	_, err := svc.Snapshot(id)
	assert.True(t, apperrors.IsNotFoundError(err))
	assert.Equal(t, 0, svc.Len())
}

func TestSessionSweepRemovesIdleSessions(t *testing.T) {
	svc := newTestSessionService(t, nil)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	stale := svc.Create().ID
	now = now.Add(50 * time.Minute)
	fresh := svc.Create().ID

	now = now.Add(30 * time.Minute)
	assert.Equal(t, 1, svc.Sweep())

	_, err := svc.Snapshot(stale)
	assert.True(t, apperrors.IsNotFoundError(err))
	_, err = svc.Snapshot(fresh)
	assert.NoError(t, err)
}

func TestSessionRunStopsWithContext(t *testing.T) {
	svc := NewSessionService(SessionConfig{TTL: time.Millisecond, SweepInterval: 5 * time.Millisecond}, nil, nil)
	defer svc.Close()
	svc.Create()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return svc.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSessionConcurrentUpdates(t *testing.T) {
	svc := newTestSessionService(t, nil)
	id := svc.Create().ID

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddScene(id)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := svc.Snapshot(id)
	require.NoError(t, err)
	require.Len(t, snap.Scenes, 21)

	seen := make(map[int64]bool)
	for _, scene := range snap.Scenes {
		assert.False(t, seen[scene.ID], "duplicate id %d", scene.ID)
		seen[scene.ID] = true
	}
}

func TestSessionStatusIsPushedToNotifier(t *testing.T) {
	rec := &statusRecorder{}
	svc := newTestSessionService(t, rec)
	id := svc.Create().ID

	_, err := svc.Update(id, func(sess *Session) error {
		sess.status.Set(StatusChecking)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []ConnectionStatus{StatusChecking}, rec.all())
}

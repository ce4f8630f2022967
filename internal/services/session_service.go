// internal/services/session_service.go
package services

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/allencreed/Sora-Prompt-Tool/internal/errors"
	"github.com/allencreed/Sora-Prompt-Tool/internal/models"
	"github.com/allencreed/Sora-Prompt-Tool/internal/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MsgSessionNotFound is returned for unknown or expired session ids.
const MsgSessionNotFound = "Workspace session not found."

// Session is the state of one scene editor: scenes, chosen format, the last
// generated output and the UI flags derived from the last request.
type Session struct {
	ID string

	store        *SceneStore
	format       models.OutputFormat
	output       string
	outputFormat models.OutputFormat
	outputScenes []models.Scene
	outputParsed bool
	lastError    string
	loading      bool
	status       *StatusTracker

	createdAt  time.Time
	lastAccess time.Time
}

// SessionSnapshot is a read-only copy of a session for rendering.
type SessionSnapshot struct {
	ID               string              `json:"id"`
	Scenes           []models.Scene      `json:"scenes"`
	Format           models.OutputFormat `json:"format"`
	Output           string              `json:"output"`
	OutputFormat     models.OutputFormat `json:"output_format,omitempty"`
	OutputParsed     bool                `json:"output_parsed"`
	Error            string              `json:"error,omitempty"`
	Loading          bool                `json:"loading"`
	ConnectionStatus ConnectionStatus    `json:"connection_status"`
	CanGenerate      bool                `json:"can_generate"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// Store exposes the scene list; callers must hold the session lock.
func (s *Session) Store() *SceneStore { return s.store }

func (s *Session) Format() models.OutputFormat { return s.format }

// CanGenerate is false while a request is in flight or a scene is incomplete.
func (s *Session) CanGenerate() bool {
	return !s.loading && s.store.Complete()
}

func (s *Session) snapshot() SessionSnapshot {
	return SessionSnapshot{
		ID:               s.ID,
		Scenes:           s.store.Scenes(),
		Format:           s.format,
		Output:           s.output,
		OutputFormat:     s.outputFormat,
		OutputParsed:     s.outputParsed,
		Error:            s.lastError,
		Loading:          s.loading,
		ConnectionStatus: s.status.Status(),
		CanGenerate:      s.CanGenerate(),
		CreatedAt:        s.createdAt,
		UpdatedAt:        s.lastAccess,
	}
}

// SessionConfig configures SessionService.
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
	SuccessReset  time.Duration
	ErrorReset    time.Duration
}

// SessionService owns every workspace session held in memory.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	locks    *LockManager
	notifier StatusNotifier
	cfg      SessionConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewSessionService creates the service. notifier may be nil.
func NewSessionService(cfg SessionConfig, notifier StatusNotifier, logger *zap.Logger) *SessionService {
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessions: make(map[string]*Session),
		locks:    NewLockManager(cfg.TTL),
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.Named("sessions"),
		now:      time.Now,
	}
}

// Create starts a workspace with one blank scene in Markdown mode.
func (s *SessionService) Create() SessionSnapshot {
	return s.add(NewSceneStore(), models.FormatMarkdown)
}

// CreateFrom starts a workspace with an existing scene list.
func (s *SessionService) CreateFrom(scenes []models.Scene, format models.OutputFormat) (SessionSnapshot, error) {
	store, err := NewSceneStoreFrom(scenes)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return s.add(store, format), nil
}

func (s *SessionService) add(store *SceneStore, format models.OutputFormat) SessionSnapshot {
	now := s.now()
	id := uuid.NewString()
	sess := &Session{
		ID:         id,
		store:      store,
		format:     format,
		createdAt:  now,
		lastAccess: now,
	}
	sess.status = NewStatusTracker(s.cfg.SuccessReset, s.cfg.ErrorReset, func(status ConnectionStatus) {
		if s.notifier != nil {
			s.notifier.NotifyStatus(id, status)
		}
	})

	s.mu.Lock()
	s.sessions[id] = sess
	count := len(s.sessions)
	s.mu.Unlock()

	utils.SetActiveSessions(count)
	s.logger.Debug("session created", zap.String("session_id", id))
	return sess.snapshot()
}

// Snapshot returns a copy of the session state.
func (s *SessionService) Snapshot(id string) (SessionSnapshot, error) {
	var snap SessionSnapshot
	err := s.View(id, func(sess *Session) error {
		snap = sess.snapshot()
		return nil
	})
	return snap, err
}

// View runs fn under the session read lock.
func (s *SessionService) View(id string, fn func(*Session) error) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	return s.locks.ExecuteWithSessionReadLock(id, func() error {
		return fn(sess)
	})
}

// Update runs fn under the session write lock and returns the resulting
// snapshot. The snapshot is returned even when fn fails.
func (s *SessionService) Update(id string, fn func(*Session) error) (SessionSnapshot, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionSnapshot{}, err
	}

	var snap SessionSnapshot
	err = s.locks.ExecuteWithSessionLock(id, func() error {
		fnErr := fn(sess)
		snap = sess.snapshot()
		return fnErr
	})
	return snap, err
}

// Delete removes a session and cancels its pending status reset.
func (s *SessionService) Delete(id string) error {
	s.mu.Lock()
	sess, exists := s.sessions[id]
	if exists {
		delete(s.sessions, id)
	}
	count := len(s.sessions)
	s.mu.Unlock()

	if !exists {
		return apperrors.NewNotFoundError(MsgSessionNotFound, nil)
	}
	sess.status.Stop()
	s.locks.Remove(id)
	utils.SetActiveSessions(count)
	s.logger.Debug("session deleted", zap.String("session_id", id))
	return nil
}

// AddScene appends a scene that cuts from the previous one.
func (s *SessionService) AddScene(id string) (SessionSnapshot, error) {
	return s.Update(id, func(sess *Session) error {
		sess.store.AddScene()
		return nil
	})
}

// RemoveScene deletes the scene at index unless it is the last one left.
func (s *SessionService) RemoveScene(id string, index int) (SessionSnapshot, error) {
	return s.Update(id, func(sess *Session) error {
		return sess.store.Remove(index)
	})
}

// UpdateScene replaces a single field of the scene at index.
func (s *SessionService) UpdateScene(id string, index int, field, value string) (SessionSnapshot, error) {
	sceneField, err := models.ParseSceneField(field)
	if err != nil {
		return SessionSnapshot{}, apperrors.NewValidationError("Unknown scene field.", err)
	}
	return s.Update(id, func(sess *Session) error {
		return sess.store.Update(index, sceneField, value)
	})
}

// SetFormat selects the output format used by the next generation.
func (s *SessionService) SetFormat(id, format string) (SessionSnapshot, error) {
	outputFormat, err := models.ParseOutputFormat(format)
	if err != nil {
		return SessionSnapshot{}, apperrors.NewValidationError("Unknown output format.", err)
	}
	return s.Update(id, func(sess *Session) error {
		sess.format = outputFormat
		return nil
	})
}

// Len returns the number of live sessions.
func (s *SessionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Run sweeps expired sessions until ctx is done.
func (s *SessionService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("expired sessions removed", zap.Int("count", n))
			}
		}
	}
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (s *SessionService) Sweep() int {
	cutoff := s.now().Add(-s.cfg.TTL)

	s.mu.RLock()
	var expired []string
	for id, sess := range s.sessions {
		if s.lastAccessOf(id, sess).Before(cutoff) {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for _, id := range expired {
		if err := s.Delete(id); err == nil {
			removed++
		}
	}
	return removed
}

// Close stops background work owned by the service.
func (s *SessionService) Close() {
	s.mu.Lock()
	for _, sess := range s.sessions {
		sess.status.Stop()
	}
	s.mu.Unlock()
	s.locks.Stop()
}

func (s *SessionService) lastAccessOf(id string, sess *Session) time.Time {
	var last time.Time
	_ = s.locks.ExecuteWithSessionReadLock(id, func() error {
		last = sess.lastAccess
		return nil
	})
	return last
}

func (s *SessionService) get(id string) (*Session, error) {
	s.mu.RLock()
	sess, exists := s.sessions[id]
	s.mu.RUnlock()
	if !exists {
		return nil, apperrors.NewNotFoundError(MsgSessionNotFound, nil)
	}

	// lastAccess is only written under the session lock
	now := s.now()
	_ = s.locks.ExecuteWithSessionLock(id, func() error {
		sess.lastAccess = now
		return nil
	})
	return sess, nil
}

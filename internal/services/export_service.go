// internal/services/export_service.go
package services

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/allencreed/Sora-Prompt-Tool/internal/errors"
	"github.com/allencreed/Sora-Prompt-Tool/internal/models"
	"github.com/allencreed/Sora-Prompt-Tool/internal/storage"
	"go.uber.org/zap"
)

const (
	MsgNothingToExport = "There is no generated prompt to export yet."
	MsgExportFailed    = "Failed to save the generated prompt."

	exportTimestampLayout = "20060102_150405"
	saveTimestampLayout   = "20060102_150405.000"
)

// ExportService hands out the generated output of a session as a file.
type ExportService struct {
	sessions *SessionService
	storage  *storage.FileStorage
	logger   *zap.Logger
	now      func() time.Time

	stampMu   sync.Mutex
	lastStamp string
	stampSeq  int
}

// NewExportService creates the service. Saved files go under
// <storage>/exports/<session id>/.
func NewExportService(sessions *SessionService, fileStorage *storage.FileStorage, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		sessions: sessions,
		storage:  fileStorage,
		logger:   logger.Named("export"),
		now:      time.Now,
	}
}

// Prepare returns the current output ready for download.
func (s *ExportService) Prepare(sessionID string) (*models.ExportResult, error) {
	result, _, err := s.collect(sessionID)
	return result, err
}

// Save writes the output and the scene list it was generated from.
func (s *ExportService) Save(sessionID string) (*models.ExportResult, error) {
	result, scenes, err := s.collect(sessionID)
	if err != nil {
		return nil, err
	}

	dir := exportDir(sessionID)
	stamp := s.saveStamp(result.GeneratedAt)

	path, err := s.storage.SaveTextFile(dir, stamp+result.Format.FileExtension(), []byte(result.Content))
	if err != nil {
		s.logger.Error("saving export failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, apperrors.NewServiceError(MsgExportFailed, err)
	}
	scenesPath, err := s.storage.SaveJSONFile(dir, stamp+".scenes.json", scenes)
	if err != nil {
		s.logger.Error("saving export scenes failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, apperrors.NewServiceError(MsgExportFailed, err)
	}

	result.FilePath = path
	result.FileSize = int64(len(result.Content))
	result.ScenesPath = scenesPath
	s.logger.Info("export saved", zap.String("session_id", sessionID), zap.String("path", path))
	return result, nil
}

// List returns the names of the files saved for a session, oldest first.
func (s *ExportService) List(sessionID string) ([]string, error) {
	if _, err := s.sessions.Snapshot(sessionID); err != nil {
		return nil, err
	}
	files, err := s.storage.ListFiles(exportDir(sessionID))
	if err != nil {
		s.logger.Error("listing exports failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, apperrors.NewServiceError(MsgExportFailed, err)
	}
	if files == nil {
		files = []string{}
	}
	return files, nil
}

// saveStamp names a saved export. Saves within the same millisecond get a
// numeric suffix so they never overwrite each other.
func (s *ExportService) saveStamp(t time.Time) string {
	stamp := strings.Replace(t.Format(saveTimestampLayout), ".", "", 1)

	s.stampMu.Lock()
	defer s.stampMu.Unlock()
	if stamp == s.lastStamp {
		s.stampSeq++
		return stamp + "-" + strconv.Itoa(s.stampSeq)
	}
	s.lastStamp = stamp
	s.stampSeq = 1
	return stamp
}

func exportDir(sessionID string) string {
	return filepath.Join("exports", sessionID)
}

func (s *ExportService) collect(sessionID string) (*models.ExportResult, []models.Scene, error) {
	var (
		result *models.ExportResult
		scenes []models.Scene
	)
	err := s.sessions.View(sessionID, func(sess *Session) error {
		if sess.output == "" {
			return apperrors.NewValidationError(MsgNothingToExport, nil)
		}
		format := sess.outputFormat
		if format == "" {
			format = sess.format
		}
		now := s.now()
		result = &models.ExportResult{
			SessionID:   sessionID,
			Format:      format,
			Content:     sess.output,
			FileName:    fmt.Sprintf("sora-prompt-%s%s", now.Format(exportTimestampLayout), format.FileExtension()),
			ContentType: format.ContentType(),
			GeneratedAt: now,
		}
		scenes = append([]models.Scene(nil), sess.outputScenes...)
		return nil
	})
	return result, scenes, err
}

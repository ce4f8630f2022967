package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/allencreed/Sora-Prompt-Tool/internal/errors"
	"github.com/allencreed/Sora-Prompt-Tool/internal/llm"
	"github.com/allencreed/Sora-Prompt-Tool/internal/models"
	"github.com/allencreed/Sora-Prompt-Tool/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestExportService(t *testing.T) (*ExportService, *SessionService, string) {
	t.Helper()
	dir := t.TempDir()
	fileStorage, err := storage.NewFileStorage(dir)
	require.NoError(t, err)

	sessions := newTestSessionService(t, nil)
	svc := NewExportService(sessions, fileStorage, nil)
	svc.now = func() time.Time { return time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC) }
	return svc, sessions, dir
}

func withOutput(t *testing.T, sessions *SessionService, format models.OutputFormat, output string) string {
	t.Helper()
	snap, err := sessions.CreateFrom([]models.Scene{{Description: "A robot", Style: "Anime"}}, format)
	require.NoError(t, err)
	_, err = sessions.Update(snap.ID, func(sess *Session) error {
		sess.output = output
		sess.outputFormat = format
		sess.outputScenes = sess.store.Scenes()
		return nil
	})
	require.NoError(t, err)
	return snap.ID
}

func TestPrepareWithoutOutput(t *testing.T) {
	svc, sessions, _ := newTestExportService(t)
	id := sessions.Create().ID

	_, err := svc.Prepare(id)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
	assert.Equal(t, MsgNothingToExport, apperrors.UserMessage(err, ""))
}

func TestPrepareMarkdown(t *testing.T) {
	svc, sessions, _ := newTestExportService(t)
	id := withOutput(t, sessions, models.FormatMarkdown, "**Scene 1**")

	result, err := svc.Prepare(id)
	require.NoError(t, err)
	assert.Equal(t, "sora-prompt-20261017_093000.md", result.FileName)
	assert.Equal(t, "text/markdown; charset=utf-8", result.ContentType)
	assert.Equal(t, "**Scene 1**", result.Content)
	assert.Empty(t, result.FilePath)
}

func TestSaveWritesOutputAndScenes(t *testing.T) {
	svc, sessions, dir := newTestExportService(t)
	id := withOutput(t, sessions, models.FormatJSON, "[]")

	result, err := svc.Save(id)
	require.NoError(t, err)

	wantPath := filepath.Join(dir, "exports", id, "20261017_093000000.json")
	assert.Equal(t, wantPath, result.FilePath)
	assert.Equal(t, int64(2), result.FileSize)

	content, err := os.ReadFile(wantPath)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(content))

	raw, err := os.ReadFile(result.ScenesPath)
	require.NoError(t, err)
	var scenes []models.Scene
	require.NoError(t, json.Unmarshal(raw, &scenes))
	require.Len(t, scenes, 1)
	assert.Equal(t, "A robot", scenes[0].Description)
}

func TestExportUnknownSession(t *testing.T) {
	svc, _, _ := newTestExportService(t)

	_, err := svc.Save("nope")
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestListExports(t *testing.T) {
	svc, sessions, _ := newTestExportService(t)
	id := withOutput(t, sessions, models.FormatJSON, `{"a":1}`)

	files, err := svc.List(id)
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = svc.Save(id)
	require.NoError(t, err)

	files, err = svc.List(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"20261017_093000000.json", "20261017_093000000.scenes.json"}, files)

	_, err = svc.List("missing")
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestSaveTwiceInSameInstantKeepsBothFiles(t *testing.T) {
	svc, sessions, _ := newTestExportService(t)
	id := withOutput(t, sessions, models.FormatMarkdown, "first")

	first, err := svc.Save(id)
	require.NoError(t, err)
	_, err = sessions.Update(id, func(sess *Session) error {
		sess.output = "second"
		return nil
	})
	require.NoError(t, err)
	second, err := svc.Save(id)
	require.NoError(t, err)

	assert.NotEqual(t, first.FilePath, second.FilePath)
	assert.Equal(t, "20261017_093000000-2.md", filepath.Base(second.FilePath))

	content, err := os.ReadFile(first.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "first", string(content))
	content, err = os.ReadFile(second.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))

	files, err := svc.List(id)
	require.NoError(t, err)
	assert.Len(t, files, 4)
}

func TestSaveUsesScenesTheOutputCameFrom(t *testing.T) {
	f := newPromptFixture(t, true)
	id := f.completeSession(t, models.FormatMarkdown)
	f.provider.On("CompleteText", mock.Anything, mock.Anything).
		Return(&llm.CompletionResponse{Text: "**robot** prompt"}, nil).Once()

	_, err := f.service.Generate(context.Background(), id)
	require.NoError(t, err)
	_, err = f.sessions.UpdateScene(id, 0, "description", "A cat sleeping")
	require.NoError(t, err)

	fileStorage, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewExportService(f.sessions, fileStorage, nil)

	result, err := svc.Save(id)
	require.NoError(t, err)
	raw, err := os.ReadFile(result.ScenesPath)
	require.NoError(t, err)
	var scenes []models.Scene
	require.NoError(t, json.Unmarshal(raw, &scenes))
	require.Len(t, scenes, 1)
	assert.Equal(t, "A robot solving a cube", scenes[0].Description)
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/allencreed/Sora-Prompt-Tool/internal/prompt"
	"github.com/allencreed/Sora-Prompt-Tool/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const robotScenes = `
- description: A robot solving a cube
  style: Cinematic
  time_of_day: Night
- description: The cube clicks into place
  style: Cinematic
  transition: Dissolve
  dialogue: He says "done"
`

func writeScenes(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// isolateEnv clears the variables the CLI reads.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"API_KEY", "GEMINI_API_KEY", "LLM_BASE_URL", "GENERATE_MODEL", "CHECK_MODEL"} {
		// Setenv registers the restore; Unsetenv lets envconfig apply defaults
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("LOG_LEVEL", "error")
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunRequiresScenesFlag(t *testing.T) {
	isolateEnv(t)
	code, _, stderr := runCLI(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "-scenes is required")
	assert.Contains(t, stderr, "Usage: sceneprompt")
}

func TestCompileOnlyMarkdown(t *testing.T) {
	isolateEnv(t)
	path := writeScenes(t, "scenes.yaml", robotScenes)

	code, stdout, stderr := runCLI(t, "-scenes", path, "-compile-only")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Scene 1:\n")
	assert.Contains(t, stdout, "- Time of Day: \"Night\"")
	assert.Contains(t, stdout, "Scene 2:\n- Transition from previous scene: \"Dissolve\"")
	assert.Contains(t, stdout, "- Dialogue: \"He says 'done'\"")
	assert.NotContains(t, stdout, "response schema")
}

func TestCompileOnlyJSONFromJSONFile(t *testing.T) {
	isolateEnv(t)
	path := writeScenes(t, "scenes.json", `[{"description":"A robot","style":"Anime","lighting":null}]`)

	code, stdout, stderr := runCLI(t, "-scenes", path, "-compile-only", "-format", "json")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "- Lighting: \"Not specified\"")
	assert.Contains(t, stdout, "--- response schema (application/json) ---")
	assert.Contains(t, stdout, `"visual_description"`)
}

func TestIncompleteScenesFail(t *testing.T) {
	isolateEnv(t)
	path := writeScenes(t, "scenes.yaml", "- description: A robot\n")

	code, stdout, stderr := runCLI(t, "-scenes", path)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, prompt.MsgScenesIncomplete)
}

func TestUnknownFormatAndBadFile(t *testing.T) {
	isolateEnv(t)
	path := writeScenes(t, "scenes.yaml", robotScenes)

	code, _, stderr := runCLI(t, "-scenes", path, "-format", "html")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, `Unknown output format "html".`)

	bad := writeScenes(t, "bad.yaml", "description: not a list")
	code, _, stderr = runCLI(t, "-scenes", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "not a valid YAML or JSON list")

	code, _, _ = runCLI(t, "-scenes", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 1, code)
}

func TestScenesFileFieldNames(t *testing.T) {
	isolateEnv(t)

	path := writeScenes(t, "camel.yaml", `
- description: A runner at dusk
  style: Cinematic
  shotSize: Close-Up (CU)
  timeOfDay: Night
  actorMovement: Running
`)
	code, stdout, stderr := runCLI(t, "-scenes", path, "-compile-only")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "- Shot Size: \"Close-Up (CU)\"")
	assert.Contains(t, stdout, "- Time of Day: \"Night\"")
	assert.Contains(t, stdout, "- Actor Movement: \"Running\"")

	misspelled := writeScenes(t, "typo.yaml", "- description: A runner\n  style: Cinematic\n  actorMovement: Runing\n")
	code, stdout, stderr = runCLI(t, "-scenes", misspelled, "-compile-only")
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Scene 1 is invalid.")

	unknown := writeScenes(t, "unknown.json", `[{"description":"A runner","style":"Cinematic","camera":"Pan"}]`)
	code, _, stderr = runCLI(t, "-scenes", unknown, "-compile-only")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown scene field(s): camera")
}

func TestGenerateWithoutKey(t *testing.T) {
	isolateEnv(t)
	path := writeScenes(t, "scenes.yaml", robotScenes)

	code, stdout, stderr := runCLI(t, "-scenes", path)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, services.MsgSelectKey)
}

func TestGenerateAndCopy(t *testing.T) {
	isolateEnv(t)

	var model string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		model = body.Model
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"**Scene 1**"}}]}`))
	}))
	defer srv.Close()
	t.Setenv("API_KEY", "test-key")
	t.Setenv("LLM_BASE_URL", srv.URL)

	var copied string
	original := writeClipboard
	writeClipboard = func(text string) error {
		copied = text
		return nil
	}
	t.Cleanup(func() { writeClipboard = original })

	path := writeScenes(t, "scenes.yaml", robotScenes)
	code, stdout, stderr := runCLI(t, "-scenes", path, "-copy", "-model", "custom-model")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "**Scene 1**\n", stdout)
	assert.Equal(t, "**Scene 1**", copied)
	assert.Equal(t, "custom-model", model)
}

func TestClipboardFailureIsNotFatal(t *testing.T) {
	isolateEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()
	t.Setenv("API_KEY", "test-key")
	t.Setenv("LLM_BASE_URL", srv.URL)

	original := writeClipboard
	writeClipboard = func(string) error { return errors.New("no clipboard utility") }
	t.Cleanup(func() { writeClipboard = original })

	path := writeScenes(t, "scenes.yaml", robotScenes)
	code, stdout, _ := runCLI(t, "-scenes", path, "-copy")
	assert.Equal(t, 0, code)
	assert.Equal(t, "ok\n", stdout)
}

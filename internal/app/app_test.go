package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/allencreed/Sora-Prompt-Tool/internal/config"
	"github.com/allencreed/Sora-Prompt-Tool/internal/di"
	"github.com/allencreed/Sora-Prompt-Tool/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:                "test",
		Port:               "0",
		DataDir:            filepath.Join(t.TempDir(), "data"),
		CORSAllowedOrigins: "*",
		LLMProvider:        "openai",
		CheckModel:         "check-model",
		GenerateModel:      "generate-model",
		SessionTTL:         time.Hour,
		StatusSuccessReset: 3 * time.Second,
		StatusErrorReset:   5 * time.Second,
	}
}

// fakeChatServer answers every chat completion with reply.
func fakeChatServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		content, _ := json.Marshal(reply)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":` + string(content) + `}}],"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func call(t *testing.T, h http.Handler, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w.Code, out
}

func TestInitServicesRegistersEverything(t *testing.T) {
	cfg := testConfig(t)
	container, err := InitServices(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		di.MustResolve[*services.SessionService](container, di.Sessions).Close()
	})

	assert.Equal(t, []string{
		di.Config, di.Credentials, di.Exports, di.LLM, di.Logger,
		di.Prompts, di.Sessions, di.StatusHub, di.Storage,
	}, container.GetNames())
	assert.DirExists(t, filepath.Join(cfg.DataDir, "exports"))

	credentials := di.MustResolve[*services.CredentialService](container, di.Credentials)
	assert.False(t, credentials.KeyReady())
	llmService := di.MustResolve[*services.LLMService](container, di.LLM)
	assert.False(t, llmService.IsReady())
}

func TestGenerateWithoutKeyIsRefused(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	h := a.Handler()

	code, health := call(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, code)
	data := health["data"].(map[string]interface{})
	assert.Equal(t, false, data["key_ready"])
	assert.Equal(t, false, data["llm_ready"])

	code, created := call(t, h, http.MethodPost, "/api/sessions", map[string]interface{}{
		"scenes": []map[string]string{{"description": "A robot", "style": "Cinematic"}},
	})
	require.Equal(t, http.StatusCreated, code)
	id := created["data"].(map[string]interface{})["id"].(string)

	code, out := call(t, h, http.MethodPost, "/api/sessions/"+id+"/generate", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, services.MsgSelectKey, out["error"].(map[string]interface{})["message"])
}

func TestEndToEndGenerateAndSave(t *testing.T) {
	srv := fakeChatServer(t, `{"items":[{"scene_number":1,"visual_description":"A robot","cinematography":{"camera_shot":"Wide","mood":"calm"},"actions":["turns"]}]}`)
	cfg := testConfig(t)
	cfg.APIKey = "test-key"
	cfg.LLMBaseURL = srv.URL
	a := newTestApp(t, cfg)
	h := a.Handler()

	code, created := call(t, h, http.MethodPost, "/api/sessions", map[string]interface{}{
		"scenes": []map[string]string{{"description": "A robot", "style": "Cinematic"}},
		"format": "json",
	})
	require.Equal(t, http.StatusCreated, code)
	id := created["data"].(map[string]interface{})["id"].(string)

	code, out := call(t, h, http.MethodPost, "/api/sessions/"+id+"/generate", nil)
	require.Equal(t, http.StatusOK, code, out)
	snap := out["data"].(map[string]interface{})
	assert.Equal(t, true, snap["output_parsed"])
	assert.Contains(t, snap["output"], "\n  {\n    \"scene_number\": 1,\n    \"visual_description\": \"A robot\",")

	code, out = call(t, h, http.MethodPost, "/api/sessions/"+id+"/output/save", nil)
	require.Equal(t, http.StatusCreated, code)
	path := out["data"].(map[string]interface{})["file_path"].(string)
	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, snap["output"], string(saved))
}

func TestRunStopsOnCancel(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

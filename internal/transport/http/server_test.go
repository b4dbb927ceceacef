package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtree/internal/bootstrap"
	"medtree/internal/config"
	"medtree/internal/platform/logger"
)

// fakeLLM answers every chat completion with the same assistant text.
func fakeLLM(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T, staticDir string) *gin.Engine {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Name = "medtree"
	cfg.App.Env = "test"
	cfg.App.GinMode = gin.TestMode
	cfg.App.FrontendURL = "*"
	cfg.App.StaticDir = staticDir
	cfg.App.MaxUploadMB = 1
	cfg.LLM.BaseURL = fakeLLM(t, "Jawaban singkat.").URL
	cfg.LLM.APIKey = "k"
	cfg.LLM.Model = "gemini-2.0-flash"
	cfg.Chunker.MaxLength = 4000
	cfg.Session.Backend = config.SessionBackendMemory

	a, err := bootstrap.Build(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return NewRouter(a)
}

func post(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRouter(t *testing.T) {
	t.Run("Should report the number of live sessions on health", func(t *testing.T) {
		r := newTestRouter(t, "")

		var ids []string
		for _, topic := range []string{"Jantung", "Ginjal", "Paru"} {
			rec := post(t, r, "/start-chat", map[string]string{"topic": topic})
			require.Equal(t, http.StatusOK, rec.Code)
			var body struct {
				SessionID string `json:"sessionId"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			ids = append(ids, body.SessionID)
		}
		require.Equal(t, http.StatusOK, post(t, r, "/end-chat", map[string]string{"sessionId": ids[0]}).Code)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var health map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
		assert.Equal(t, "healthy", health["status"])
		assert.Equal(t, float64(2), health["activeSessions"])
		assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	})

	t.Run("Should chat through the llm client", func(t *testing.T) {
		r := newTestRouter(t, "")

		rec := post(t, r, "/start-chat", map[string]string{"topic": "Hati", "sessionId": "s-1"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

		rec = post(t, r, "/chat-message", map[string]string{"sessionId": "s-1", "message": "Fungsi hati?"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Jawaban singkat.")
	})

	t.Run("Should answer unknown routes with json", func(t *testing.T) {
		r := newTestRouter(t, "")

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), `"error":"Not found"`)
	})

	t.Run("Should serve every frontend file at the root", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>medtree</h1>"), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("renderTree();"), 0o600))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "css"), 0o700))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "css", "style.css"), []byte("body{}"), 0o600))
		r := newTestRouter(t, dir)

		for path, want := range map[string]string{
			"/":              "medtree",
			"/app.js":        "renderTree();",
			"/css/style.css": "body{}",
		} {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			require.Equal(t, http.StatusOK, rec.Code, path)
			assert.Contains(t, rec.Body.String(), want, path)
		}

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing.js", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "activeSessions")
	})

	t.Run("Should not count chat messages or repeated starts as sessions", func(t *testing.T) {
		r := newTestRouter(t, "")

		require.Equal(t, http.StatusOK, post(t, r, "/start-chat", map[string]string{"topic": "Jantung", "sessionId": "s-1"}).Code)
		require.Equal(t, http.StatusOK, post(t, r, "/start-chat", map[string]string{"topic": "Ginjal", "sessionId": "s-2"}).Code)
		assert.Equal(t, float64(2), activeSessions(t, r))

		for _, msg := range []string{"Apa itu katup?", "Bagaimana sirkulasi?", "Terima kasih"} {
			require.Equal(t, http.StatusOK, post(t, r, "/chat-message", map[string]string{"sessionId": "s-1", "message": msg}).Code)
			assert.Equal(t, float64(2), activeSessions(t, r))
		}

		require.Equal(t, http.StatusOK, post(t, r, "/start-chat", map[string]string{"topic": "Paru", "sessionId": "s-1"}).Code)
		assert.Equal(t, float64(2), activeSessions(t, r))
	})
}

func activeSessions(t *testing.T, r http.Handler) float64 {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health struct {
		ActiveSessions float64 `json:"activeSessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	return health.ActiveSessions
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtree/internal/ai"
	"medtree/internal/app"
	"medtree/internal/platform/logger"
	"medtree/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubCompleter struct {
	mu    sync.Mutex
	text  string
	json  string
	err   error
	calls int
}

func (s *stubCompleter) Complete(context.Context, []ai.ChatMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.text, s.err
}

func (s *stubCompleter) CompleteJSON(context.Context, []ai.ChatMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.json, s.err
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func newExplainRouter(llm *stubCompleter) *gin.Engine {
	h := NewExplainHandler(app.NewExplainService(llm, nil, logger.Nop()))
	r := gin.New()
	r.POST("/get-analogy", h.GetAnalogy)
	r.POST("/get-clinical", h.GetClinical)
	return r
}

func TestExplainHandler(t *testing.T) {
	t.Run("Should return the analogy for a topic", func(t *testing.T) {
		r := newExplainRouter(&stubCompleter{text: "Seperti pompa air."})

		rec := doJSON(t, r, http.MethodPost, "/get-analogy", map[string]string{"topic": "Jantung"})
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "Jantung", body["topic"])
		assert.Equal(t, "Seperti pompa air.", body["analogy"])
	})

	t.Run("Should accept form encoded bodies", func(t *testing.T) {
		r := newExplainRouter(&stubCompleter{text: "Relevan untuk gagal jantung."})

		req := httptest.NewRequest(http.MethodPost, "/get-clinical", strings.NewReader("topic=Jantung"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Relevan untuk gagal jantung.", decodeBody(t, rec)["clinical"])
	})

	t.Run("Should reject a missing topic", func(t *testing.T) {
		llm := &stubCompleter{text: "x"}
		r := newExplainRouter(llm)

		rec := doJSON(t, r, http.MethodPost, "/get-clinical", map[string]string{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Topic required", decodeBody(t, rec)["error"])
		assert.Zero(t, llm.calls)
	})

	t.Run("Should report model failures", func(t *testing.T) {
		r := newExplainRouter(&stubCompleter{err: errors.New("quota")})

		rec := doJSON(t, r, http.MethodPost, "/get-analogy", map[string]string{"topic": "Jantung"})
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to generate analogy", decodeBody(t, rec)["error"])
	})
}

func newChatRouter(llm *stubCompleter) (*gin.Engine, *app.ChatService) {
	svc := app.NewChatService(session.NewMemoryStore(), llm, nil, logger.Nop())
	h := NewChatHandler(svc)
	r := gin.New()
	r.POST("/start-chat", h.StartChat)
	r.POST("/chat-message", h.SendMessage)
	r.POST("/end-chat", h.EndChat)
	r.GET("/health", NewHealthHandler(svc).Check)
	return r, svc
}

func TestChatHandler(t *testing.T) {
	t.Run("Should run a full conversation", func(t *testing.T) {
		llm := &stubCompleter{text: "Nefron menyaring darah."}
		r, _ := newChatRouter(llm)

		rec := doJSON(t, r, http.MethodPost, "/start-chat", map[string]string{"topic": "Ginjal"})
		require.Equal(t, http.StatusOK, rec.Code)
		started := decodeBody(t, rec)
		assert.Equal(t, true, started["success"])
		assert.Equal(t, "Ginjal", started["topic"])
		assert.Contains(t, started["message"], "Ginjal")
		id, _ := started["sessionId"].(string)
		require.NotEmpty(t, id)
		assert.Zero(t, llm.calls)

		rec = doJSON(t, r, http.MethodPost, "/chat-message", map[string]string{"sessionId": id, "message": "Apa itu nefron?"})
		require.Equal(t, http.StatusOK, rec.Code)
		reply := decodeBody(t, rec)
		assert.Equal(t, "Nefron menyaring darah.", reply["response"])
		assert.Equal(t, "Ginjal", reply["topic"])

		rec = doJSON(t, r, http.MethodPost, "/end-chat", map[string]string{"sessionId": id})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, id, decodeBody(t, rec)["sessionId"])

		rec = doJSON(t, r, http.MethodPost, "/chat-message", map[string]string{"sessionId": id, "message": "lagi"})
		require.Equal(t, http.StatusNotFound, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Session not found", body["error"])
		assert.Equal(t, "Please start a new chat session", body["message"])
	})

	t.Run("Should validate inputs", func(t *testing.T) {
		r, _ := newChatRouter(&stubCompleter{})

		rec := doJSON(t, r, http.MethodPost, "/start-chat", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doJSON(t, r, http.MethodPost, "/chat-message", map[string]string{"sessionId": "s-1"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "SessionId and message required", decodeBody(t, rec)["error"])

		rec = doJSON(t, r, http.MethodPost, "/end-chat", map[string]string{"sessionId": "ghost"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Should report model failures without losing the session", func(t *testing.T) {
		llm := &stubCompleter{err: errors.New("upstream 500")}
		r, svc := newChatRouter(llm)

		rec := doJSON(t, r, http.MethodPost, "/start-chat", map[string]string{"topic": "Paru", "sessionId": "s-9"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "s-9", decodeBody(t, rec)["sessionId"])

		rec = doJSON(t, r, http.MethodPost, "/chat-message", map[string]string{"sessionId": "s-9", "message": "halo"})
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to process message", decodeBody(t, rec)["error"])

		count, err := svc.ActiveSessions(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

type failingCounter struct{}

func (failingCounter) ActiveSessions(context.Context) (int, error) {
	return 0, errors.New("redis unreachable")
}

func TestHealthHandler(t *testing.T) {
	t.Run("Should count active sessions", func(t *testing.T) {
		r, _ := newChatRouter(&stubCompleter{})
		for _, topic := range []string{"A", "B"} {
			require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/start-chat", map[string]string{"topic": topic}).Code)
		}

		rec := doJSON(t, r, http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, float64(2), body["activeSessions"])
		_, err := time.Parse(time.RFC3339, body["timestamp"].(string))
		assert.NoError(t, err)
	})

	t.Run("Should leave the count unchanged by messages and repeated starts", func(t *testing.T) {
		r, _ := newChatRouter(&stubCompleter{text: "Jawaban"})
		for _, id := range []string{"s-1", "s-2"} {
			require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/start-chat", map[string]string{"topic": "Jantung", "sessionId": id}).Code)
		}
		count := func() any {
			rec := doJSON(t, r, http.MethodGet, "/health", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			return decodeBody(t, rec)["activeSessions"]
		}
		assert.Equal(t, float64(2), count())

		for _, msg := range []string{"Apa itu atrium?", "Lalu ventrikel?"} {
			require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/chat-message", map[string]string{"sessionId": "s-1", "message": msg}).Code)
			assert.Equal(t, float64(2), count())
		}

		require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/start-chat", map[string]string{"topic": "Ginjal", "sessionId": "s-2"}).Code)
		assert.Equal(t, float64(2), count())
	})

	t.Run("Should degrade when the store is unavailable", func(t *testing.T) {
		r := gin.New()
		r.GET("/health", NewHealthHandler(failingCounter{}).Check)

		rec := doJSON(t, r, http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "degraded", decodeBody(t, rec)["status"])
	})
}

func multipartUpload(t *testing.T, field, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-pdf", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

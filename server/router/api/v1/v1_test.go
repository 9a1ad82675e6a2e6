package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/docuchat/plugin/vectorstore"
	"github.com/docuchat/docuchat/server/chatbot"
	"github.com/docuchat/docuchat/server/profile"
	"github.com/docuchat/docuchat/store"
)

type scriptedLLM struct {
	reply string
}

func (s *scriptedLLM) Complete(_ context.Context, _ []store.Message) (string, error) {
	return s.reply, nil
}

func (s *scriptedLLM) Name() string { return "scripted" }

// testEmbedding mirrors the deterministic vector used by the vectorstore
// tests, so routing tests run against the real index without a provider.
func testEmbedding(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 8)
	for i, r := range text {
		v[i%8] += float32(r)
	}
	var norm float32
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		v[0] = 1
		return v, nil
	}
	z := norm
	for i := 0; i < 20; i++ {
		z = (z + norm/z) / 2
	}
	inv := 1 / z
	for i := range v {
		v[i] *= inv
	}
	return v, nil
}

func newTestServer(reply string) (*echo.Echo, *APIV1Service) {
	p := &profile.Profile{Port: 8000, ChunkSize: 1000, ChunkOverlap: 200, DefaultK: 3}
	sessions := store.NewRegistry()
	vectors := vectorstore.New(testEmbedding)
	bot := chatbot.New(sessions, vectors, &scriptedLLM{reply: reply}, nil)

	svc := NewAPIV1Service(p, sessions, bot, vectors, nil)
	e := echo.New()
	svc.RegisterRoutes(e)
	return e, svc
}

func doJSON(e *echo.Echo, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer("ok")
	rec := doJSON(e, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode(t, rec)
	assert.Equal(t, "ok", m["status"])
	assert.Equal(t, float64(0), m["active_sessions"])
	assert.Equal(t, "none", m["storage"])
}

func TestChatRequiresMessage(t *testing.T) {
	e, _ := newTestServer("ok")
	rec := doJSON(e, http.MethodPost, "/api/v1/chat", map[string]any{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatAssignsSessionID(t *testing.T) {
	e, svc := newTestServer("an answer")
	rec := doJSON(e, http.MethodPost, "/api/v1/chat", map[string]any{"message": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode(t, rec)
	sessionID, _ := m["session_id"].(string)
	require.NotEmpty(t, sessionID)
	assert.Equal(t, "an answer", m["answer"])

	info, ok := svc.Sessions.Info(sessionID)
	require.True(t, ok)
	assert.Equal(t, 2, info.HistoryLength)
}

func TestIngestThenChat(t *testing.T) {
	e, _ := newTestServer("grounded answer")

	rec := doJSON(e, http.MethodPost, "/api/v1/ingest", map[string]any{
		"text":       "The warranty period is two years from the purchase date.",
		"session_id": "s1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode(t, rec)
	assert.Equal(t, "inline.txt", m["filename"])
	assert.Equal(t, float64(1), m["chunks_created"])

	rec = doJSON(e, http.MethodPost, "/api/v1/chat", map[string]any{
		"message":    "How long is the warranty?",
		"session_id": "s1",
		"verbose":    true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	m = decode(t, rec)
	assert.Equal(t, "grounded answer", m["answer"])
	assert.Equal(t, float64(1), m["num_sources"])
	// First turn has no history, so nothing was rewritten.
	assert.NotContains(t, m, "contextualized_question")
}

func TestIngestRequiresSession(t *testing.T) {
	e, _ := newTestServer("ok")
	rec := doJSON(e, http.MethodPost, "/api/v1/ingest", map[string]any{"text": "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestEmptyTextUnprocessable(t *testing.T) {
	e, _ := newTestServer("ok")
	rec := doJSON(e, http.MethodPost, "/api/v1/ingest", map[string]any{
		"text":       "   ",
		"session_id": "s1",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestClearHistoryAlwaysOK(t *testing.T) {
	e, svc := newTestServer("hi")

	rec := doJSON(e, http.MethodPost, "/api/v1/chat/clear/ghost", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec)["message"], "not found")

	doJSON(e, http.MethodPost, "/api/v1/chat", map[string]any{"message": "q", "session_id": "s1"})
	rec = doJSON(e, http.MethodPost, "/api/v1/chat/clear/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec)["message"], "cleared")

	info, ok := svc.Sessions.Info("s1")
	require.True(t, ok)
	assert.Equal(t, 0, info.HistoryLength)
}

func TestDeleteSessionCascades(t *testing.T) {
	e, svc := newTestServer("hi")

	rec := doJSON(e, http.MethodDelete, "/api/v1/chat/session/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	doJSON(e, http.MethodPost, "/api/v1/ingest", map[string]any{
		"text":       "some document text",
		"session_id": "s1",
	})
	doJSON(e, http.MethodPost, "/api/v1/chat", map[string]any{"message": "q", "session_id": "s1"})

	rec = doJSON(e, http.MethodDelete, "/api/v1/chat/session/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode(t, rec)
	assert.Equal(t, float64(1), m["embeddings_deleted"])

	_, ok := svc.Sessions.Get("s1")
	assert.False(t, ok)
	assert.Zero(t, svc.Vectors.Count("s1"))

	// Stats after delete report zeros rather than an error.
	rec = doJSON(e, http.MethodGet, "/api/v1/sessions/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	m = decode(t, rec)
	assert.Equal(t, false, m["active"])
	assert.Equal(t, float64(0), m["embeddings_count"])
}

func TestListSessions(t *testing.T) {
	e, _ := newTestServer("hi")
	doJSON(e, http.MethodPost, "/api/v1/chat", map[string]any{"message": "q", "session_id": "a"})
	doJSON(e, http.MethodPost, "/api/v1/chat", map[string]any{"message": "q", "session_id": "b"})

	rec := doJSON(e, http.MethodGet, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sessions, _ := decode(t, rec)["sessions"].([]any)
	assert.Len(t, sessions, 2)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	e, _ := newTestServer("hi")

	var buf bytes.Buffer
	w := multipartWriter(&buf, t, "notes.txt", "plain text")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	req.Header.Set(echo.HeaderContentType, w)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListFilesWithoutObjectStore(t *testing.T) {
	e, _ := newTestServer("hi")
	doJSON(e, http.MethodPost, "/api/v1/ingest", map[string]any{
		"text":       "indexed content",
		"session_id": "s1",
	})

	rec := doJSON(e, http.MethodGet, "/api/v1/files/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode(t, rec)
	assert.Equal(t, float64(0), m["files_count"])
	assert.Equal(t, float64(1), m["embeddings_count"])
}

func multipartWriter(buf *bytes.Buffer, t *testing.T, filename, content string) string {
	t.Helper()
	boundary := "testboundary"
	buf.WriteString("--" + boundary + "\r\n")
	buf.WriteString(`Content-Disposition: form-data; name="session_id"` + "\r\n\r\ns1\r\n")
	buf.WriteString("--" + boundary + "\r\n")
	buf.WriteString(`Content-Disposition: form-data; name="file"; filename="` + filename + `"` + "\r\n")
	buf.WriteString("Content-Type: application/octet-stream\r\n\r\n")
	buf.WriteString(content + "\r\n")
	buf.WriteString("--" + boundary + "--\r\n")
	return "multipart/form-data; boundary=" + boundary
}

func TestDeleteSingleFile(t *testing.T) {
	e, svc := newTestServer("hi")
	doJSON(e, http.MethodPost, "/api/v1/ingest", map[string]any{
		"text":       "keep me",
		"filename":   "keep.txt",
		"session_id": "s1",
	})
	doJSON(e, http.MethodPost, "/api/v1/ingest", map[string]any{
		"text":       "drop me",
		"filename":   "drop.txt",
		"session_id": "s1",
	})

	rec := doJSON(e, http.MethodDelete, "/api/v1/files/s1/drop.txt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["embeddings_deleted"])
	assert.Equal(t, 1, svc.Vectors.Count("s1"))

	rec = doJSON(e, http.MethodDelete, "/api/v1/files/s1/drop.txt", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIIndexListsEndpoints(t *testing.T) {
	e, _ := newTestServer("hi")
	rec := doJSON(e, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	endpoints, _ := decode(t, rec)["endpoints"].(map[string]any)
	assert.Contains(t, endpoints, "POST /api/v1/chat")
}

package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), RequestLogger(logger))
	router.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	return router
}

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	router := newTestRouter(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	id := w.Header().Get(RequestIDHeader)
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("expected a UUID request id, got %q", id)
	}
	if parsed.Version() != 7 {
		t.Errorf("expected a v7 UUID, got version %d", parsed.Version())
	}
	if w.Body.String() != id {
		t.Errorf("context id %q does not match header %q", w.Body.String(), id)
	}
}

func TestRequestID_KeepsValidClientID(t *testing.T) {
	router := newTestRouter(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	clientID := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, clientID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != clientID {
		t.Errorf("expected client id %q to be kept, got %q", clientID, got)
	}
}

func TestRequestID_ReplacesGarbage(t *testing.T) {
	router := newTestRouter(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got == "<script>" {
		t.Error("an invalid client id should be replaced")
	}
}

func TestRequestLogger_LevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	router := newTestRouter(slog.New(slog.NewTextHandler(&buf, nil)))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one log line per request, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "level=INFO") || !strings.Contains(lines[0], "status=200") {
		t.Errorf("unexpected line for 200: %s", lines[0])
	}
	if !strings.Contains(lines[1], "level=WARN") || !strings.Contains(lines[1], "status=404") {
		t.Errorf("unexpected line for 404: %s", lines[1])
	}
}

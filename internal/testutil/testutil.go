package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/SlpAus/michelin-vote-backend/internal/platform/config"
	"github.com/SlpAus/michelin-vote-backend/internal/platform/database"
	"gorm.io/gorm"
)

// DiscardLogger 返回一个丢弃所有输出的 logger
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDBConfig 返回指向临时目录中数据库文件的配置
func TestDBConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	return config.DatabaseConfig{
		Driver:        config.DriverSQLite,
		Path:          filepath.Join(t.TempDir(), "restaurants.db"),
		BusyTimeoutMs: 10000,
		LogLevel:      "silent",
	}
}

// NewTestDB 在临时目录中创建一个全新的SQLite数据库，测试结束时自动关闭
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return OpenTestDB(t, TestDBConfig(t))
}

// OpenTestDB 按给定配置打开一个独立的连接池，测试结束时自动关闭。
// 对同一个配置多次调用可以模拟多个进程共享一个数据库文件。
func OpenTestDB(t *testing.T, cfg config.DatabaseConfig) *gorm.DB {
	t.Helper()

	db, err := database.OpenDB(cfg, DiscardLogger())
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })
	return db
}

// MakeRequest creates an HTTP test request; a string body is sent verbatim
func MakeRequest(method, path string, body interface{}) *http.Request {
	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = httptest.NewRequest(method, path, nil)
	case string:
		req = httptest.NewRequest(method, path, bytes.NewReader([]byte(b)))
		req.Header.Set("Content-Type", "application/json")
	default:
		jsonBody, _ := json.Marshal(b)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

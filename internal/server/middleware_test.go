package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bobmcallan/satqueue/internal/common"
)

// logLevelCapture wraps a writer to capture raw JSON log events and extract levels.
type logLevelCapture struct {
	buf bytes.Buffer
}

func (c *logLevelCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logLevelCapture) output() string {
	return c.buf.String()
}

func TestLoggingMiddleware_4xxUsesInfoLevel(t *testing.T) {
	capture := &logLevelCapture{}
	logger := common.NewLoggerWithOutput("warn", capture)

	handler := loggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/jobs/status/999", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	output := capture.output()
	if strings.Contains(output, "HTTP request") {
		t.Errorf("Expected 404 log to be filtered at WARN level (should use INFO), but it passed through: %s", output)
	}
}

func TestLoggingMiddleware_5xxUsesErrorLevel(t *testing.T) {
	capture := &logLevelCapture{}
	logger := common.NewLoggerWithOutput("warn", capture)

	handler := loggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodGet, "/jobs/submit", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	output := capture.output()
	if !strings.Contains(output, "HTTP request") {
		t.Errorf("Expected 500 log to pass WARN filter (should use ERROR), got: %q", output)
	}
}

func TestLoggingMiddleware_2xxUsesTraceLevel(t *testing.T) {
	capture := &logLevelCapture{}
	logger := common.NewLoggerWithOutput("info", capture)

	handler := loggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	output := capture.output()
	if strings.Contains(output, "HTTP request") {
		t.Errorf("Expected 200 log to be filtered at INFO level (should use TRACE), but it passed through: %s", output)
	}
}

func TestCORSMiddleware_AllowsExpectedHeaders(t *testing.T) {
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/jobs/submit", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected 204 for OPTIONS preflight, got %d", rr.Code)
	}

	allowHeaders := rr.Header().Get("Access-Control-Allow-Headers")
	for _, h := range []string{"Content-Type", "X-Request-ID", "X-Correlation-ID"} {
		if !strings.Contains(allowHeaders, h) {
			t.Errorf("Expected %s in Access-Control-Allow-Headers, got: %s", h, allowHeaders)
		}
	}
}

func TestCorrelationIDMiddleware_GeneratesWhenAbsent(t *testing.T) {
	handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get("X-Correlation-ID") == "" {
		t.Error("expected a generated X-Correlation-ID header")
	}
}

func TestCorrelationIDMiddleware_PreservesIncoming(t *testing.T) {
	handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Correlation-ID"); got != "req-123" {
		t.Errorf("expected incoming request ID to be preserved, got %q", got)
	}
}

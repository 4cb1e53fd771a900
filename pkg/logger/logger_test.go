package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func captureLog(t *testing.T, level zerolog.Level) *bytes.Buffer {
	t.Helper()
	prev := log
	var buf bytes.Buffer
	SetOutput(&buf, level)
	t.Cleanup(func() { log = prev })
	return &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]interface{}
	if err := json.Unmarshal(lines[len(lines)-1], &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestInit_ParsesLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"bogus", zerolog.InfoLevel},
	}

	prev := log
	defer func() { log = prev }()
	for _, tt := range tests {
		Init(tt.level)
		if got := log.GetLevel(); got != tt.expected {
			t.Errorf("Init(%q) level = %v, expected %v", tt.level, got, tt.expected)
		}
	}
}

func TestWith_TagsComponent(t *testing.T) {
	buf := captureLog(t, zerolog.InfoLevel)

	l := With("digest")
	l.Info().Msg("ran")

	entry := lastEntry(t, buf)
	if entry["component"] != "digest" || entry["message"] != "ran" {
		t.Errorf("entry = %v", entry)
	}
}

func TestGinLogger(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		status   int
		reviewer string
		level    string
	}{
		{"success", "/api/roster", http.StatusOK, "", "info"},
		{"client error", "/api/reviews/form", http.StatusUnauthorized, "", "warn"},
		{"server error", "/api/dashboard/completion", http.StatusServiceUnavailable, "", "error"},
		{"quiet health probe", "/health", http.StatusOK, "", "debug"},
		{"failing health probe", "/health", http.StatusServiceUnavailable, "", "error"},
		{"with reviewer", "/api/reviews/form", http.StatusOK, "alice", "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t, zerolog.DebugLevel)

			r := gin.New()
			r.Use(GinLogger("/health"))
			r.GET(tt.path, func(c *gin.Context) {
				if tt.reviewer != "" {
					c.Set(ContextReviewer, tt.reviewer)
				}
				c.Status(tt.status)
			})

			req, _ := http.NewRequest("GET", tt.path, nil)
			r.ServeHTTP(httptest.NewRecorder(), req)

			entry := lastEntry(t, buf)
			if entry["level"] != tt.level || entry["status"] != float64(tt.status) {
				t.Errorf("entry = %v, expected level %s and status %d", entry, tt.level, tt.status)
			}
			if got, _ := entry["reviewer"].(string); got != tt.reviewer {
				t.Errorf("reviewer = %q, expected %q", got, tt.reviewer)
			}
		})
	}
}

func TestGinRecovery(t *testing.T) {
	buf := captureLog(t, zerolog.InfoLevel)

	r := gin.New()
	r.Use(GinRecovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/panic", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, expected 500", w.Code)
	}
	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	if body.Code != 500 || body.Message != "internal server error" {
		t.Errorf("body = %+v", body)
	}
	if entry := lastEntry(t, buf); entry["panic"] != "boom" {
		t.Errorf("entry = %v, expected the panic value", entry)
	}
}

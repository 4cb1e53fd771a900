package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huangang/peerreview/internal/config"
	"github.com/huangang/peerreview/internal/middleware"
	"github.com/huangang/peerreview/internal/models"
	"github.com/huangang/peerreview/internal/services"
)

const (
	browserA = "3f2b8c1e-1d2a-4b7e-9a51-0c6a1f7e2d10"
	browserB = "8d0f7a42-5c3e-4e11-a7d2-9b4c3e6f1a22"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	rc     *services.ReviewContext
	cfg    config.IdentityConfig
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "handlers.db")})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	review := &config.ReviewConfig{
		Roster: []config.RosterEntry{
			{Name: "Alice Adams", Username: "alice"},
			{Name: "Bob Brown", Username: "bob"},
			{Name: "Carol Clark", Username: "carol"},
		},
		Metrics: []config.MetricEntry{{Name: "Quality"}, {Name: "Speed"}},
	}
	ids, _, err := services.NewInitializer(db, review).Initialize("")
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	rc := services.NewReviewContext(db, review, ids, services.NewMemoryDraftStore())
	hub := services.NewSSEHub()
	tracker := services.NewCompletionTracker(db, ids)
	reporter := services.NewReportService(db, ids)
	identityCfg := config.DefaultConfig().Identity

	identityHandler := NewIdentityHandler(rc)
	reviewHandler := NewReviewHandler(rc, services.NewSubmissionService(db, rc, hub))
	dashboardHandler := NewDashboardHandler(tracker, reporter, services.NewExportService(ids, tracker, reporter))

	r := gin.New()
	r.GET("/health", NewHealthHandler(db, hub).CheckHealth)
	api := r.Group("/api")
	api.GET("/roster", identityHandler.Roster)
	api.GET("/dashboard/completion", dashboardHandler.Completion)
	api.GET("/dashboard/averages", dashboardHandler.Averages)
	api.GET("/dashboard/export", dashboardHandler.Export)

	browser := api.Group("", middleware.BrowserIdentity(identityCfg))
	browser.GET("/identity", identityHandler.Resolve)
	browser.POST("/identity", identityHandler.Bind)

	reviews := browser.Group("/reviews", middleware.ReviewerRequired(rc.Identity))
	reviews.GET("/form", reviewHandler.Form)
	reviews.PUT("/:ratee/drafts", reviewHandler.SaveDrafts)
	reviews.POST("/:ratee/validate", reviewHandler.Validate)
	reviews.POST("/:ratee/confirm", reviewHandler.Confirm)

	return &testServer{router: r, rc: rc, cfg: identityCfg}
}

// do sends a request from the given browser; an empty browser sends no cookie.
func (s *testServer) do(t *testing.T, method, path, browser, sessionKey string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if browser != "" {
		req.AddCookie(&http.Cookie{Name: s.cfg.CookieName, Value: browser})
	}
	if sessionKey != "" {
		req.Header.Set(s.cfg.SessionHeader, sessionKey)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) bind(t *testing.T, browser, username string) {
	t.Helper()
	w := s.do(t, "POST", "/api/identity", browser, "", gin.H{"username": username})
	if w.Code != http.StatusCreated {
		t.Fatalf("bind %s: status = %d, body = %s", username, w.Code, w.Body.String())
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data %s: %v", env.Data, err)
		}
	}
	return env
}

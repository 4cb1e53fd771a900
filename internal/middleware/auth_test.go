package middleware

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huangang/peerreview/internal/config"
	"github.com/huangang/peerreview/internal/models"
	"github.com/huangang/peerreview/internal/services"
	"github.com/huangang/peerreview/pkg/logger"
)

const testBrowserID = "3f2b8c1e-1d2a-4b7e-9a51-0c6a1f7e2d10"

func testIdentityConfig() config.IdentityConfig {
	return config.DefaultConfig().Identity
}

func newIdentityResolver(t *testing.T) *services.IdentityResolver {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "auth.db")})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	review := &config.ReviewConfig{
		Roster:  []config.RosterEntry{{Name: "Alice Adams", Username: "alice"}, {Name: "Bob Brown", Username: "bob"}},
		Metrics: []config.MetricEntry{{Name: "Quality"}},
	}
	ids, _, err := services.NewInitializer(db, review).Initialize("")
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return services.NewIdentityResolver(db, ids)
}

func TestBrowserIdentity_MissingCookie(t *testing.T) {
	cfg := testIdentityConfig()
	router := gin.New()
	router.Use(BrowserIdentity(cfg))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	tests := []struct {
		name   string
		cookie string
	}{
		{"no cookie", ""},
		{"malformed cookie", "not-a-uuid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/test", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: cfg.CookieName, Value: tt.cookie})
			}
			router.ServeHTTP(w, req)

			if w.Code != http.StatusPreconditionRequired {
				t.Errorf("status = %d, expected %d", w.Code, http.StatusPreconditionRequired)
			}

			var issued string
			for _, c := range w.Result().Cookies() {
				if c.Name == cfg.CookieName {
					issued = c.Value
				}
			}
			if !services.ValidBrowserID(issued) {
				t.Errorf("issued cookie = %q, expected a fresh browser id", issued)
			}
		})
	}
}

func TestBrowserIdentity_SetsContext(t *testing.T) {
	cfg := testIdentityConfig()
	router := gin.New()
	router.Use(BrowserIdentity(cfg))

	var browserID, sessionKey string
	router.GET("/test", func(c *gin.Context) {
		browserID = GetBrowserID(c)
		sessionKey = GetSessionKey(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	req.AddCookie(&http.Cookie{Name: cfg.CookieName, Value: testBrowserID})
	req.Header.Set(cfg.SessionHeader, "load-1")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", w.Code)
	}
	if browserID != testBrowserID {
		t.Errorf("browser id = %q, expected %q", browserID, testBrowserID)
	}
	if sessionKey != "load-1" {
		t.Errorf("session key = %q, expected load-1", sessionKey)
	}
}

func TestReviewerRequired(t *testing.T) {
	cfg := testIdentityConfig()
	identity := newIdentityResolver(t)

	router := gin.New()
	router.Use(BrowserIdentity(cfg), ReviewerRequired(identity))
	router.GET("/test", func(c *gin.Context) {
		reviewer, ok := GetReviewer(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		if c.GetString(logger.ContextReviewer) != reviewer.Username {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, reviewer.Username)
	})

	serve := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		req.AddCookie(&http.Cookie{Name: cfg.CookieName, Value: testBrowserID})
		router.ServeHTTP(w, req)
		return w
	}

	if w := serve(); w.Code != http.StatusUnauthorized {
		t.Errorf("unbound status = %d, expected %d", w.Code, http.StatusUnauthorized)
	}

	if _, err := identity.Bind(testBrowserID, "bob"); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	w := serve()
	if w.Code != http.StatusOK {
		t.Fatalf("bound status = %d, expected 200", w.Code)
	}
	if w.Body.String() != "bob" {
		t.Errorf("reviewer = %q, expected bob", w.Body.String())
	}
}

func TestGetters_EmptyContext(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if GetBrowserID(c) != "" || GetSessionKey(c) != "" {
		t.Error("getters should return empty values without middleware")
	}
	if _, ok := GetReviewer(c); ok {
		t.Error("GetReviewer should report false without middleware")
	}
}

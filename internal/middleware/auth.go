package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/huangang/peerreview/internal/config"
	"github.com/huangang/peerreview/internal/services"
	"github.com/huangang/peerreview/pkg/logger"
	"github.com/huangang/peerreview/pkg/response"
)

const (
	ContextBrowserID  = "browser_id"
	ContextSessionKey = "session_key"
	ContextReviewer   = "reviewer"
)

const identityCookieMaxAge = 365 * 24 * 60 * 60

// BrowserIdentity reads the per-browser id cookie. A browser without a usable
// cookie (a private window on its first request) gets a fresh one and is
// told to reload; no identity is assumed for it.
func BrowserIdentity(cfg config.IdentityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		browserID, err := c.Cookie(cfg.CookieName)
		if err != nil || !services.ValidBrowserID(browserID) {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cfg.CookieName, uuid.New().String(), identityCookieMaxAge, "/", "", false, true)
			response.Abort(c, response.NewPreconditionRequired(services.ErrIdentityUnresolved.Error()))
			return
		}

		c.Set(ContextBrowserID, browserID)
		c.Set(ContextSessionKey, c.GetHeader(cfg.SessionHeader))
		c.Next()
	}
}

// ReviewerRequired resolves the reviewer bound to the browser. It must run
// after BrowserIdentity.
func ReviewerRequired(identity *services.IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		reviewer, err := identity.Reviewer(GetBrowserID(c))
		if err != nil {
			if errors.Is(err, services.ErrIdentityUnresolved) {
				response.Abort(c, response.NewPreconditionRequired(err.Error()))
				return
			}
			response.Abort(c, response.NewUnauthorized(err.Error()))
			return
		}

		c.Set(ContextReviewer, reviewer)
		c.Set(logger.ContextReviewer, reviewer.Username)
		c.Next()
	}
}

// GetBrowserID gets the browser id from context
func GetBrowserID(c *gin.Context) string {
	if id, exists := c.Get(ContextBrowserID); exists {
		return id.(string)
	}
	return ""
}

// GetSessionKey gets the page-load key from context
func GetSessionKey(c *gin.Context) string {
	if key, exists := c.Get(ContextSessionKey); exists {
		return key.(string)
	}
	return ""
}

// GetReviewer gets the resolved reviewer from context
func GetReviewer(c *gin.Context) (services.UserRef, bool) {
	if reviewer, exists := c.Get(ContextReviewer); exists {
		return reviewer.(services.UserRef), true
	}
	return services.UserRef{}, false
}

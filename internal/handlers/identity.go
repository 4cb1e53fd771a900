package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/peerreview/internal/middleware"
	"github.com/huangang/peerreview/internal/services"
	"github.com/huangang/peerreview/pkg/response"
)

type IdentityHandler struct {
	rc *services.ReviewContext
}

func NewIdentityHandler(rc *services.ReviewContext) *IdentityHandler {
	return &IdentityHandler{rc: rc}
}

type bindRequest struct {
	Username string `json:"username" binding:"required"`
}

// Roster returns the reviewer choices and the metric set
// GET /api/roster
func (h *IdentityHandler) Roster(c *gin.Context) {
	response.Success(c, gin.H{
		"reviewers": h.rc.IDs.Users,
		"metrics":   h.rc.IDs.Metrics,
	})
}

// Resolve reports who the browser is bound to and what kind of page load this
// is. The form endpoint registers the page load; this one only looks.
// GET /api/identity
func (h *IdentityHandler) Resolve(c *gin.Context) {
	res, err := h.rc.Identity.Peek(middleware.GetBrowserID(c), middleware.GetSessionKey(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, res)
}

// Bind records the reviewer chosen on this browser
// POST /api/identity
func (h *IdentityHandler) Bind(c *gin.Context) {
	var req bindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	binding, err := h.rc.Identity.Bind(middleware.GetBrowserID(c), req.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	if binding.Resumed {
		response.Success(c, binding)
		return
	}
	response.Created(c, binding)
}

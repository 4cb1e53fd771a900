package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/peerreview/internal/middleware"
	"github.com/huangang/peerreview/internal/services"
	"github.com/huangang/peerreview/pkg/response"
)

type ReviewHandler struct {
	rc     *services.ReviewContext
	submit *services.SubmissionService
}

func NewReviewHandler(rc *services.ReviewContext, submit *services.SubmissionService) *ReviewHandler {
	return &ReviewHandler{rc: rc, submit: submit}
}

type scoresRequest struct {
	Values map[string]string `json:"values" binding:"required"`
}

type formRatee struct {
	services.UserRef
	Finalized bool              `json:"finalized"`
	Drafts    map[string]string `json:"drafts,omitempty"`
}

type formResponse struct {
	Reviewer     services.UserRef      `json:"reviewer"`
	Session      services.SessionState `json:"session"`
	ReloadDrafts bool                  `json:"reload_drafts"`
	Metrics      []services.MetricRef  `json:"metrics"`
	Ratees       []formRatee           `json:"ratees"`
	Remaining    int                   `json:"remaining"`
}

type batchResponse struct {
	Ratee  services.UserRef   `json:"ratee"`
	Scores map[string]float64 `json:"scores"`
}

// Form returns the reviewer's ratees with their finalized flags and drafts
// GET /api/reviews/form
func (h *ReviewHandler) Form(c *gin.Context) {
	reviewer, _ := middleware.GetReviewer(c)
	ctx := c.Request.Context()

	res, err := h.rc.Identity.Resolve(middleware.GetBrowserID(c), middleware.GetSessionKey(c))
	if err != nil {
		respondError(c, err)
		return
	}

	finalized, err := h.rc.Work.Finalized(ctx, reviewer.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	drafts, err := h.rc.Work.Drafts().All(ctx, reviewer.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := formResponse{
		Reviewer:     reviewer,
		Session:      res.Session,
		ReloadDrafts: res.Session == services.SessionRefreshed || res.Session == services.SessionNewBrowser,
		Metrics:      h.rc.IDs.Metrics,
		Ratees:       make([]formRatee, 0),
	}
	for _, id := range h.rc.IDs.RateeSet(reviewer.ID) {
		ratee, _ := h.rc.IDs.User(id)
		entry := formRatee{UserRef: ratee, Finalized: finalized[id]}
		if !entry.Finalized {
			entry.Drafts = drafts[id]
			resp.Remaining++
		}
		resp.Ratees = append(resp.Ratees, entry)
	}

	response.Success(c, resp)
}

// SaveDrafts stores the values typed so far and reports per-field errors
// PUT /api/reviews/:ratee/drafts
func (h *ReviewHandler) SaveDrafts(c *gin.Context) {
	reviewer, ratee, req, ok := h.bindBatch(c)
	if !ok {
		return
	}

	fieldErrs, err := h.submit.SaveDrafts(c.Request.Context(), reviewer.ID, ratee.ID, req.Values)
	if err != nil {
		respondError(c, err)
		return
	}
	if fieldErrs == nil {
		fieldErrs = services.FieldErrors{}
	}
	response.Success(c, gin.H{"ratee": ratee, "errors": fieldErrs})
}

// Validate checks a full batch without writing it, for the confirmation step
// POST /api/reviews/:ratee/validate
func (h *ReviewHandler) Validate(c *gin.Context) {
	reviewer, ratee, req, ok := h.bindBatch(c)
	if !ok {
		return
	}

	batch, err := h.submit.ValidateBatch(c.Request.Context(), reviewer.ID, ratee.ID, req.Values)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, batchResponse{Ratee: ratee, Scores: batch.Scores()})
}

// Confirm re-validates and commits the batch
// POST /api/reviews/:ratee/confirm
func (h *ReviewHandler) Confirm(c *gin.Context) {
	reviewer, ratee, req, ok := h.bindBatch(c)
	if !ok {
		return
	}

	batch, err := h.submit.Confirm(c.Request.Context(), reviewer.ID, ratee.ID, req.Values)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, batchResponse{Ratee: ratee, Scores: batch.Scores()})
}

// bindBatch resolves the reviewer, the :ratee username and the request body.
// It writes the error response itself.
func (h *ReviewHandler) bindBatch(c *gin.Context) (reviewer, ratee services.UserRef, req scoresRequest, ok bool) {
	reviewer, ok = middleware.GetReviewer(c)
	if !ok {
		respondError(c, services.ErrIdentityUnbound)
		return
	}

	ratee, ok = h.rc.IDs.UserByUsername(c.Param("ratee"))
	if !ok {
		response.NotFound(c, "ratee not found")
		return
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		ok = false
		return
	}
	return reviewer, ratee, req, true
}

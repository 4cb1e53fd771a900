package handlers

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/peerreview/internal/services"
	"github.com/huangang/peerreview/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type DashboardHandler struct {
	tracker  *services.CompletionTracker
	reporter *services.ReportService
	export   *services.ExportService
}

func NewDashboardHandler(tracker *services.CompletionTracker, reporter *services.ReportService, export *services.ExportService) *DashboardHandler {
	return &DashboardHandler{tracker: tracker, reporter: reporter, export: export}
}

// Completion returns reviewers grouped by progress
// GET /api/dashboard/completion
func (h *DashboardHandler) Completion(c *gin.Context) {
	summary, err := h.tracker.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, summary)
}

// Averages returns peer averages and self ratings per ratee
// GET /api/dashboard/averages?ids=1,2
func (h *DashboardHandler) Averages(c *gin.Context) {
	ids, err := parseIDs(c.Query("ids"))
	if err != nil {
		response.BadRequest(c, "ids must be a comma separated list of user ids")
		return
	}

	scores, err := h.reporter.AverageScores(c.Request.Context(), ids)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, scores)
}

// Export downloads the dashboard as a spreadsheet
// GET /api/dashboard/export
func (h *DashboardHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.export.WriteWorkbook(c.Request.Context(), &buf); err != nil {
		respondError(c, err)
		return
	}

	filename := "peer-review-" + time.Now().Format("2006-01-02") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(200, xlsxContentType, buf.Bytes())
}

func parseIDs(raw string) ([]uint, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]uint, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

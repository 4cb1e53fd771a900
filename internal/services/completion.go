package services

import (
	"context"

	"github.com/huangang/peerreview/internal/models"
	"github.com/huangang/peerreview/pkg/logger"
	"gorm.io/gorm"
)

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressPending    ProgressStatus = "pending"
	ProgressCompleted  ProgressStatus = "completed"
)

type ReviewerProgress struct {
	Reviewer  UserRef        `json:"reviewer"`
	Status    ProgressStatus `json:"status"`
	Submitted int            `json:"submitted"`
	Expected  int            `json:"expected"`
	Remaining int            `json:"remaining"`
}

type CompletionSummary struct {
	NotStarted []ReviewerProgress `json:"not_started"`
	Pending    []ReviewerProgress `json:"pending"`
	Completed  []ReviewerProgress `json:"completed"`
}

// Classify places a reviewer by submitted row count. remaining counts whole
// ratees still owed and is only meaningful for pending reviewers.
func Classify(submitted, expected, metricCount int) (status ProgressStatus, remaining int) {
	switch {
	case submitted == 0:
		return ProgressNotStarted, expected / metricCount
	case submitted == expected:
		return ProgressCompleted, 0
	default:
		return ProgressPending, (expected - submitted) / metricCount
	}
}

type CompletionTracker struct {
	db  *gorm.DB
	ids *IDMaps
}

func NewCompletionTracker(db *gorm.DB, ids *IDMaps) *CompletionTracker {
	return &CompletionTracker{db: db, ids: ids}
}

type submittedCount struct {
	UserID uint
	Total  int
}

// Summary classifies every reviewer, in roster order. It reads the store on
// every call.
func (t *CompletionTracker) Summary(ctx context.Context) (*CompletionSummary, error) {
	var counts []submittedCount
	err := t.db.WithContext(ctx).Model(&models.Rating{}).
		Select("user_id, COUNT(*) AS total").
		Group("user_id").
		Scan(&counts).Error
	if err != nil {
		return nil, storeError("count ratings", err)
	}

	byReviewer := make(map[uint]int, len(counts))
	for _, c := range counts {
		byReviewer[c.UserID] = c.Total
	}

	summary := &CompletionSummary{
		NotStarted: []ReviewerProgress{},
		Pending:    []ReviewerProgress{},
		Completed:  []ReviewerProgress{},
	}
	metricCount := len(t.ids.Metrics)
	for _, reviewer := range t.ids.Users {
		submitted := byReviewer[reviewer.ID]
		expected := t.ids.ExpectedRatings(reviewer.ID)
		if submitted > expected {
			logger.Warnf("[Completion] Reviewer %s has %d ratings, more than the %d expected", reviewer.Username, submitted, expected)
		}

		status, remaining := Classify(submitted, expected, metricCount)
		progress := ReviewerProgress{
			Reviewer:  reviewer,
			Status:    status,
			Submitted: submitted,
			Expected:  expected,
			Remaining: remaining,
		}
		switch status {
		case ProgressNotStarted:
			summary.NotStarted = append(summary.NotStarted, progress)
		case ProgressCompleted:
			summary.Completed = append(summary.Completed, progress)
		default:
			summary.Pending = append(summary.Pending, progress)
		}
	}
	return summary, nil
}

// FinalizedRatees lists the ratees the reviewer has rated on every
// configured metric.
func (t *CompletionTracker) FinalizedRatees(ctx context.Context, reviewerID uint) ([]uint, error) {
	return finalizedRatees(t.db.WithContext(ctx), t.ids, reviewerID)
}

func finalizedRatees(db *gorm.DB, ids *IDMaps, reviewerID uint) ([]uint, error) {
	metricIDs := make([]uint, 0, len(ids.Metrics))
	for _, m := range ids.Metrics {
		metricIDs = append(metricIDs, m.ID)
	}

	var ratees []uint
	err := db.Model(&models.Rating{}).
		Where("user_id = ? AND metric_id IN ?", reviewerID, metricIDs).
		Group("ratee_id").
		Having("COUNT(DISTINCT metric_id) = ?", len(metricIDs)).
		Pluck("ratee_id", &ratees).Error
	if err != nil {
		return nil, storeError("load finalized ratees", err)
	}
	return ratees, nil
}

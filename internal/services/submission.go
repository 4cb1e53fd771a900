package services

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/huangang/peerreview/internal/models"
	"github.com/huangang/peerreview/pkg/logger"
	"gorm.io/gorm"
)

// ValidateScore parses one raw input. The score must be a number in [1, 10].
func ValidateScore(raw string) (float64, *FieldError) {
	trimmed := strings.TrimSpace(raw)
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || trimmed == "" || isHexFloat(trimmed) {
		return 0, &FieldError{Kind: InvalidFormat, Input: raw, Message: "Input should be a floating point"}
	}
	// NaN and the infinities parse but fail this check.
	if !(value >= models.MinScore && value <= models.MaxScore) {
		return 0, &FieldError{Kind: OutOfRange, Input: raw, Message: "Range should be 1 to 10"}
	}
	return value, nil
}

// isHexFloat reports Go's hexadecimal float form ("0x8p0"), which
// ParseFloat accepts but is not a decimal score.
func isHexFloat(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

type metricScore struct {
	metric MetricRef
	score  float64
}

// ValidBatch is a complete, validated set of scores for one ratee. Only
// ValidateBatch creates one.
type ValidBatch struct {
	reviewerID uint
	rateeID    uint
	scores     []metricScore
}

func (b *ValidBatch) ReviewerID() uint { return b.reviewerID }
func (b *ValidBatch) RateeID() uint    { return b.rateeID }

// Scores returns the validated score per metric key.
func (b *ValidBatch) Scores() map[string]float64 {
	out := make(map[string]float64, len(b.scores))
	for _, s := range b.scores {
		out[s.metric.Key] = s.score
	}
	return out
}

type SubmissionService struct {
	db  *gorm.DB
	rc  *ReviewContext
	hub *SSEHub
}

func NewSubmissionService(db *gorm.DB, rc *ReviewContext, hub *SSEHub) *SubmissionService {
	return &SubmissionService{db: db, rc: rc, hub: hub}
}

// checkRatee rejects ratees outside the reviewer's set and ones already
// finalized.
func (s *SubmissionService) checkRatee(ctx context.Context, reviewerID, rateeID uint) error {
	if !s.rc.IDs.IsAssigned(reviewerID, rateeID) {
		return ErrRateeNotAssigned
	}
	done, err := s.rc.Work.IsFinalized(ctx, reviewerID, rateeID)
	if err != nil {
		return err
	}
	if done {
		return ErrAlreadySubmitted
	}
	return nil
}

// validateFields checks every provided input. With requireAll set, a
// configured metric without input is an error too.
func (s *SubmissionService) validateFields(inputs map[string]string, requireAll bool) ([]metricScore, FieldErrors) {
	var fieldErrs FieldErrors
	scores := make([]metricScore, 0, len(s.rc.IDs.Metrics))

	for _, metric := range s.rc.IDs.Metrics {
		raw, ok := inputs[metric.Key]
		if !ok || strings.TrimSpace(raw) == "" {
			if requireAll {
				fieldErrs = append(fieldErrs, FieldError{Metric: metric.Key, Kind: InvalidFormat, Input: raw, Message: "Score is required"})
			}
			continue
		}
		value, fe := ValidateScore(raw)
		if fe != nil {
			fe.Metric = metric.Key
			fieldErrs = append(fieldErrs, *fe)
			continue
		}
		scores = append(scores, metricScore{metric: metric, score: value})
	}

	var unknown []string
	for key := range inputs {
		if _, ok := s.rc.IDs.MetricByKey(key); !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		fieldErrs = append(fieldErrs, FieldError{Metric: key, Kind: InvalidFormat, Input: inputs[key], Message: "Unknown metric"})
	}

	return scores, fieldErrs
}

// ValidateBatch checks a full submission for one ratee. Any field error
// blocks the whole batch and is returned as FieldErrors.
func (s *SubmissionService) ValidateBatch(ctx context.Context, reviewerID, rateeID uint, inputs map[string]string) (*ValidBatch, error) {
	if err := s.checkRatee(ctx, reviewerID, rateeID); err != nil {
		return nil, err
	}

	scores, fieldErrs := s.validateFields(inputs, true)
	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}
	return &ValidBatch{reviewerID: reviewerID, rateeID: rateeID, scores: scores}, nil
}

// Commit writes one rating per metric in a single transaction. Nothing of
// the batch persists on failure; a uniqueness violation means another
// request got there first and is reported as ErrAlreadySubmitted.
func (s *SubmissionService) Commit(ctx context.Context, batch *ValidBatch) error {
	if batch == nil || len(batch.scores) == 0 {
		return errors.New("commit requires a validated batch")
	}

	rows := make([]models.Rating, 0, len(batch.scores))
	for _, sc := range batch.scores {
		rows = append(rows, models.Rating{
			UserID:   batch.reviewerID,
			RateeID:  batch.rateeID,
			MetricID: sc.metric.ID,
			Score:    sc.score,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			s.rc.Work.MarkFinalized(batch.reviewerID, batch.rateeID)
			return ErrAlreadySubmitted
		}
		return storeError("insert ratings", err)
	}

	s.rc.Work.MarkFinalized(batch.reviewerID, batch.rateeID)
	if err := s.rc.Work.Drafts().Discard(ctx, batch.reviewerID, batch.rateeID); err != nil {
		logger.Warnf("[Submission] Failed to discard drafts for reviewer %d ratee %d: %v", batch.reviewerID, batch.rateeID, err)
	}
	s.hub.Publish(RatingEvent{
		ReviewerID: batch.reviewerID,
		RateeID:    batch.rateeID,
		Status:     "submitted",
		Metrics:    len(rows),
	})
	logger.Infof("[Submission] Reviewer %d submitted %d ratings for ratee %d", batch.reviewerID, len(rows), batch.rateeID)
	return nil
}

// Confirm re-validates the inputs server side and commits them.
func (s *SubmissionService) Confirm(ctx context.Context, reviewerID, rateeID uint, inputs map[string]string) (*ValidBatch, error) {
	batch, err := s.ValidateBatch(ctx, reviewerID, rateeID, inputs)
	if err != nil {
		return nil, err
	}
	if err := s.Commit(ctx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// SaveDrafts stores the typed values for a ratee and returns the field
// errors among them. Blank values are kept as drafts and not reported.
func (s *SubmissionService) SaveDrafts(ctx context.Context, reviewerID, rateeID uint, inputs map[string]string) (FieldErrors, error) {
	if err := s.checkRatee(ctx, reviewerID, rateeID); err != nil {
		return nil, err
	}

	_, fieldErrs := s.validateFields(inputs, false)

	known := make(map[string]string, len(inputs))
	for key, value := range inputs {
		if _, ok := s.rc.IDs.MetricByKey(key); ok {
			known[key] = value
		}
	}
	if err := s.rc.Work.Drafts().Put(ctx, reviewerID, rateeID, known); err != nil {
		return nil, err
	}
	return fieldErrs, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "duplicate key value")
}

package services

import (
	"context"

	"github.com/huangang/peerreview/internal/models"
	"gorm.io/gorm"
)

// RateeScores holds peer averages and the self rating for one ratee, keyed by
// metric name. A metric nobody has rated is absent, never zero.
type RateeScores struct {
	Ratings    map[string]float64 `json:"ratings"`
	SelfRating map[string]float64 `json:"self_rating"`
}

type ReportService struct {
	db  *gorm.DB
	ids *IDMaps
}

func NewReportService(db *gorm.DB, ids *IDMaps) *ReportService {
	return &ReportService{db: db, ids: ids}
}

type metricScoreRow struct {
	Name  string
	Score float64
}

// AverageScores computes scores for the given ratees, or for the whole
// roster when none are given. Self ratings never enter the peer average.
func (s *ReportService) AverageScores(ctx context.Context, rateeIDs []uint) (map[uint]RateeScores, error) {
	if len(rateeIDs) == 0 {
		for _, u := range s.ids.Users {
			rateeIDs = append(rateeIDs, u.ID)
		}
	}

	db := s.db.WithContext(ctx)
	result := make(map[uint]RateeScores, len(rateeIDs))
	for _, id := range rateeIDs {
		var peers []metricScoreRow
		err := db.Model(&models.Rating{}).
			Select("metrics.name AS name, AVG(ratings.score) AS score").
			Joins("JOIN metrics ON metrics.id = ratings.metric_id").
			Where("ratings.ratee_id = ? AND ratings.user_id <> ?", id, id).
			Group("metrics.id, metrics.name").
			Scan(&peers).Error
		if err != nil {
			return nil, storeError("average peer scores", err)
		}

		var self []metricScoreRow
		err = db.Model(&models.Rating{}).
			Select("metrics.name AS name, ratings.score AS score").
			Joins("JOIN metrics ON metrics.id = ratings.metric_id").
			Where("ratings.ratee_id = ? AND ratings.user_id = ?", id, id).
			Scan(&self).Error
		if err != nil {
			return nil, storeError("load self rating", err)
		}

		scores := RateeScores{
			Ratings:    make(map[string]float64, len(peers)),
			SelfRating: make(map[string]float64, len(self)),
		}
		for _, row := range peers {
			scores.Ratings[row.Name] = row.Score
		}
		for _, row := range self {
			scores.SelfRating[row.Name] = row.Score
		}
		result[id] = scores
	}
	return result, nil
}

package models

const (
	MinScore = 1.0
	MaxScore = 10.0
)

// Rating is one score given by a reviewer (UserID) to a ratee for one metric.
// Rows are append-only; a row where UserID == RateeID is a self-rating.
type Rating struct {
	UserID   uint    `gorm:"uniqueIndex:idx_ratings_triple,priority:1" json:"user_id"`
	RateeID  uint    `gorm:"uniqueIndex:idx_ratings_triple,priority:2" json:"ratee_id"`
	MetricID uint    `gorm:"not null;uniqueIndex:idx_ratings_triple,priority:3" json:"metric_id"`
	Score    float64 `gorm:"check:chk_ratings_score,score >= 1 AND score <= 10" json:"score"`

	User   *User   `gorm:"foreignKey:UserID" json:"-"`
	Ratee  *User   `gorm:"foreignKey:RateeID" json:"-"`
	Metric *Metric `gorm:"foreignKey:MetricID" json:"-"`
}

func (Rating) TableName() string { return "ratings" }

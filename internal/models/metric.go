package models

// Metric is one qualitative dimension reviewers score.
type Metric struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"uniqueIndex;size:200;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

func (Metric) TableName() string { return "metrics" }

package models

// User is a reviewer and, at the same time, someone who gets rated.
type User struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username string `gorm:"uniqueIndex;size:100;not null" json:"username"` // stable shorthand from the roster
	Name     string `gorm:"uniqueIndex;size:200;not null" json:"name"`     // display form
}

func (User) TableName() string { return "users" }

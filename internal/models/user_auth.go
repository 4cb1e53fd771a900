package models

// UserAuth binds a reviewer to a browser identifier. A reviewer may hold
// several rows; a browser belongs to at most one reviewer.
type UserAuth struct {
	UserID      uint   `gorm:"primaryKey;autoIncrement:false;uniqueIndex:idx_user_auth_pair,priority:1" json:"user_id"`
	BrowserUUID string `gorm:"primaryKey;type:char(36);uniqueIndex:idx_user_auth_pair,priority:2" json:"browser_uuid"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (UserAuth) TableName() string { return "user_auth" }

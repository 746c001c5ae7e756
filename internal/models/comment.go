package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment is a reply under a post. Comments list oldest first.
type Comment struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Text      string         `gorm:"type:text;not null" json:"text"`
	PostID    uint           `gorm:"not null;index" json:"post_id"`
	Post      *Post          `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	AuthorID  uint           `gorm:"not null;index" json:"author_id"`
	Author    User           `gorm:"foreignKey:AuthorID" json:"author"`
	CreatedAt time.Time      `gorm:"index" json:"created"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

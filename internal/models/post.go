package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// PostOrder is the newest-first ordering used by every post listing.
const PostOrder = "posts.created_at DESC, posts.id DESC"

// Post is a blog entry written by a user, optionally filed under a group.
type Post struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Text      string         `gorm:"type:text;not null" json:"text"`
	AuthorID  uint           `gorm:"not null;index" json:"author_id"`
	Author    User           `gorm:"foreignKey:AuthorID" json:"author"`
	GroupID   *uint          `gorm:"index" json:"group_id,omitempty"`
	Group     *Group         `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
	Image     string         `gorm:"size:255" json:"image,omitempty"`
	CreatedAt time.Time      `gorm:"index;<-:create" json:"pub_date"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// String is the first 15 characters of the text.
func (p *Post) String() string { return truncateRunes(p.Text, 15) }

// Title is the first 30 characters of the text, used as the page title.
func (p *Post) Title() string { return truncateRunes(p.Text, 30) }

// ImageURL is the public URL of the stored image, empty without one.
func (p *Post) ImageURL() string {
	if p.Image == "" {
		return ""
	}
	return "/media/" + p.Image
}

// ImageWebPURL is the URL of the WebP rendition written next to the JPEG.
func (p *Post) ImageWebPURL() string {
	if p.Image == "" {
		return ""
	}
	return "/media/" + strings.TrimSuffix(p.Image, ".jpg") + ".webp"
}

// AuthoredBy reports whether userID wrote the post.
func (p *Post) AuthoredBy(userID uint) bool {
	return userID != 0 && p.AuthorID == userID
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

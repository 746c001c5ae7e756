// Package models contains the persistent entities of the blog and the
// application error types shared by every layer.
package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User is a registered account. Posts, comments and follow rows point at it.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email     string         `gorm:"size:254;uniqueIndex" json:"email,omitempty"`
	Password  string         `gorm:"not null" json:"-"`
	FirstName string         `gorm:"size:150" json:"first_name,omitempty"`
	LastName  string         `gorm:"size:150" json:"last_name,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

func (u *User) String() string { return u.Username }

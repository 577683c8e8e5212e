// Package models contains data structures for the application's domain models.
package models

import (
	"strconv"
	"time"
)

// User represents a UT Vibe account.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	IsAdmin   bool      `gorm:"not null;default:false" json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MemberKey is the identifier stored in a post's reaction sets.
func (u User) MemberKey() string {
	return UserKey(u.ID)
}

// UserKey formats a user ID the way reaction sets store it.
func UserKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// Author is the public projection of a post's author.
type Author struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

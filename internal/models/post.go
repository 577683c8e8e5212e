package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Post categories accepted by the feed.
const (
	CategoryEvent       = "event"
	CategoryGathering   = "gathering"
	CategoryLostFound   = "lost-found"
	CategoryFood        = "food"
	CategorySports      = "sports"
	CategoryMusic       = "music"
	CategoryStudy       = "study"
	CategoryCelebration = "celebration"
	CategoryClub        = "club"
	CategoryOther       = "other"
)

// Categories lists every valid category in display order.
var Categories = []string{
	CategoryEvent, CategoryGathering, CategoryLostFound, CategoryFood, CategorySports,
	CategoryMusic, CategoryStudy, CategoryCelebration, CategoryClub, CategoryOther,
}

// Post is a time-limited campus update. Reaction sets hold user keys (see UserKey)
// and the paired counters always equal the set sizes.
type Post struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	AuthorID     uint           `gorm:"not null;index" json:"authorId"`
	User         *User          `gorm:"foreignKey:AuthorID" json:"-"`
	Author       *Author        `gorm:"-" json:"author,omitempty"`
	Title        string         `gorm:"not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	Category     string         `gorm:"not null;default:other;index" json:"category"`
	Tags         pq.StringArray `gorm:"type:text[]" json:"tags"`
	IsAnonymous  bool           `gorm:"not null;default:false" json:"isAnonymous"`
	Images       pq.StringArray `gorm:"type:text[]" json:"images"`
	ImageIDs     pq.StringArray `gorm:"column:image_ids;type:text[]" json:"imageIds"`
	Likes        int            `gorm:"not null;default:0" json:"likes"`
	LikedBy      pq.StringArray `gorm:"type:text[]" json:"likedBy"`
	Dislikes     int            `gorm:"not null;default:0" json:"dislikes"`
	DislikedBy   pq.StringArray `gorm:"type:text[]" json:"dislikedBy"`
	BookmarkedBy pq.StringArray `gorm:"type:text[]" json:"bookmarkedBy"`
	Location     *Location      `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"location,omitempty"`
	ExpiresAt    time.Time      `gorm:"not null;index" json:"expiresAt"`
	CreatedAt    time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// BeforeCreate assigns a UUID and makes sure array columns are never NULL.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for _, arr := range []*pq.StringArray{&p.Tags, &p.Images, &p.ImageIDs, &p.LikedBy, &p.DislikedBy, &p.BookmarkedBy} {
		if *arr == nil {
			*arr = pq.StringArray{}
		}
	}
	return nil
}

// AfterFind projects the preloaded user into the public author shape.
func (p *Post) AfterFind(_ *gorm.DB) error {
	if p.User != nil {
		p.Author = &Author{ID: p.User.ID, Name: p.User.Name}
	}
	return nil
}

// IsExpired reports whether the post can no longer be edited or reacted to.
func (p *Post) IsExpired(now time.Time) bool {
	return p.ExpiresAt.Before(now)
}

// OwnedBy reports whether userID authored the post.
func (p *Post) OwnedBy(userID uint) bool {
	return p.AuthorID == userID
}

// Location pins a post on the campus map.
type Location struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    string    `gorm:"size:36;uniqueIndex;not null" json:"postId"`
	Latitude  float64   `gorm:"not null" json:"latitude"`
	Longitude float64   `gorm:"not null" json:"longitude"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"time"

	"utvibe/internal/cache"
	"utvibe/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrPostNotFound is the NotFound error returned for unknown post IDs.
var ErrPostNotFound = models.NewNotFoundError("Post not found")

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	ListActive(ctx context.Context, now time.Time) ([]*models.Post, error)
	ListBookmarked(ctx context.Context, memberKey string, now time.Time) ([]*models.Post, error)
	ListByAuthor(ctx context.Context, authorID uint) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error
	// ApplyReaction loads the post under a row lock, runs mutate and persists the
	// reaction columns in the same transaction. An error from mutate aborts without writing.
	ApplyReaction(ctx context.Context, id string, mutate func(*models.Post) error) (*models.Post, error)
	UpsertLocation(ctx context.Context, loc *models.Location) error
	DeleteLocation(ctx context.Context, postID string) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) withDetails(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("User").Preload("Location")
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError("Failed to create post", err)
	}
	cache.InvalidateFeed(ctx)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.withDetails(ctx).Where("id = ?", id).First(&post).Error
	if err != nil {
		return nil, notFoundOr(err, "Failed to load post")
	}
	return &post, nil
}

// ListActive returns unexpired posts, newest first.
func (r *postRepository) ListActive(ctx context.Context, now time.Time) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.withDetails(ctx).
		Where("expires_at > ?", now).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError("Error fetching posts", err)
	}
	return posts, nil
}

func (r *postRepository) ListBookmarked(ctx context.Context, memberKey string, now time.Time) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.withDetails(ctx).
		Where("? = ANY(bookmarked_by)", memberKey).
		Where("expires_at > ?", now).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError("Error fetching bookmarked posts", err)
	}
	return posts, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.withDetails(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError("Error fetching user posts", err)
	}
	return posts, nil
}

// Update writes the editable columns only, so a concurrent reaction is never overwritten.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).
		Model(post).
		Select("title", "description", "category", "tags", "is_anonymous", "images", "image_ids", "updated_at").
		Omit(clause.Associations).
		Updates(post).Error
	if err != nil {
		return models.NewInternalError("Failed to update post", err)
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{})
	if res.Error != nil {
		return models.NewInternalError("Failed to delete post", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPostNotFound
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

func (r *postRepository) ApplyReaction(ctx context.Context, id string, mutate func(*models.Post) error) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&post).Error; err != nil {
			return notFoundOr(err, "Failed to load post")
		}
		if err := mutate(&post); err != nil {
			return err
		}
		return tx.Model(&post).
			Select("likes", "liked_by", "dislikes", "disliked_by", "bookmarked_by", "updated_at").
			Omit(clause.Associations).
			Updates(&post).Error
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidatePost(ctx, id)
	return &post, nil
}

func (r *postRepository) UpsertLocation(ctx context.Context, loc *models.Location) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"latitude", "longitude", "name", "updated_at"}),
	}).Create(loc).Error
	if err != nil {
		return models.NewInternalError("Failed to save location", err)
	}
	cache.InvalidatePost(ctx, loc.PostID)
	return nil
}

func (r *postRepository) DeleteLocation(ctx context.Context, postID string) error {
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Location{}).Error; err != nil {
		return models.NewInternalError("Failed to remove location", err)
	}
	cache.InvalidatePost(ctx, postID)
	return nil
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPostNotFound
	}
	return models.NewInternalError(message, err)
}

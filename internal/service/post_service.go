package service

import (
	"context"
	"strings"
	"time"

	"utvibe/internal/cache"
	"utvibe/internal/models"
	"utvibe/internal/repository"
	"utvibe/internal/validation"

	"github.com/lib/pq"
)

// DefaultPostTTL is how long a post stays on the feed.
const DefaultPostTTL = 7 * 24 * time.Hour

type PostService struct {
	postRepo repository.PostRepository
	images   *ImageService
	isAdmin  func(ctx context.Context, userID uint) (bool, error)
	postTTL  time.Duration
	now      func() time.Time
}

type LocationInput struct {
	Latitude  *float64
	Longitude *float64
	Name      string
}

type CreatePostInput struct {
	UserID      uint
	Title       string
	Description string
	Category    string
	Tags        string
	IsAnonymous bool
	Location    LocationInput
	Images      []UploadImageInput
}

type UpdatePostInput struct {
	UserID         uint
	PostID         string
	Title          string
	Description    string
	Category       string
	Tags           string
	IsAnonymous    bool
	Location       LocationInput
	DeleteImageIDs []string
	Images         []UploadImageInput
}

func NewPostService(
	postRepo repository.PostRepository,
	images *ImageService,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
	postTTL time.Duration,
) *PostService {
	if postTTL <= 0 {
		postTTL = DefaultPostTTL
	}
	return &PostService{
		postRepo: postRepo,
		images:   images,
		isAdmin:  isAdmin,
		postTTL:  postTTL,
		now:      time.Now,
	}
}

// ListPosts returns the unexpired feed, newest first. The unmasked feed is
// cached briefly and dropped on every post write or reaction.
func (s *PostService) ListPosts(ctx context.Context, viewerID uint) ([]*models.Post, error) {
	now := s.now()
	var posts []*models.Post
	err := cache.Aside(ctx, cache.FeedKey, &posts, cache.FeedTTL, func() error {
		var err error
		posts, err = s.postRepo.ListActive(ctx, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	live := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		if !p.IsExpired(now) {
			live = append(live, p)
		}
	}
	return maskAnonymous(live, viewerID), nil
}

func (s *PostService) GetPost(ctx context.Context, postID string, viewerID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	maskAnonymous([]*models.Post{post}, viewerID)
	return post, nil
}

func (s *PostService) BookmarkedPosts(ctx context.Context, userID uint) ([]*models.Post, error) {
	posts, err := s.postRepo.ListBookmarked(ctx, models.UserKey(userID), s.now())
	if err != nil {
		return nil, err
	}
	return maskAnonymous(posts, userID), nil
}

// MyPosts includes the caller's expired posts.
func (s *PostService) MyPosts(ctx context.Context, userID uint) ([]*models.Post, error) {
	return s.postRepo.ListByAuthor(ctx, userID)
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	fields, err := validatePostFields(in.Title, in.Description, in.Category, in.Tags)
	if err != nil {
		return nil, err
	}
	hasLocation, err := validation.ValidateCoordinates(in.Location.Latitude, in.Location.Longitude)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if len(in.Images) > MaxImagesPerPost {
		return nil, models.NewValidationError("Too many images")
	}

	now := s.now()
	post := &models.Post{
		AuthorID:     in.UserID,
		Title:        fields.title,
		Description:  fields.description,
		Category:     fields.category,
		Tags:         pq.StringArray(fields.tags),
		IsAnonymous:  in.IsAnonymous,
		Images:       pq.StringArray{},
		ImageIDs:     pq.StringArray{},
		LikedBy:      pq.StringArray{},
		DislikedBy:   pq.StringArray{},
		BookmarkedBy: pq.StringArray{},
		ExpiresAt:    now.Add(s.postTTL),
	}
	if hasLocation {
		post.Location = &models.Location{
			Latitude:  *in.Location.Latitude,
			Longitude: *in.Location.Longitude,
			Name:      strings.TrimSpace(in.Location.Name),
		}
	}
	if s.images != nil && len(in.Images) > 0 {
		urls, keys := s.images.UploadAll(ctx, in.UserID, in.Images)
		post.Images, post.ImageIDs = urls, keys
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		if s.images != nil {
			s.images.DeleteAll(ctx, post.ImageIDs)
		}
		return nil, withMessage(err, "Failed to create post. Please try again.")
	}
	cache.InvalidateFeed(ctx)
	return s.postRepo.GetByID(ctx, post.ID)
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.IsExpired(s.now()) {
		return nil, models.NewExpiredError("Cannot edit expired post")
	}
	if err := s.authorize(ctx, post, in.UserID, "Unauthorized. You can only edit your own posts."); err != nil {
		return nil, err
	}

	fields, err := validatePostFields(in.Title, in.Description, in.Category, in.Tags)
	if err != nil {
		return nil, err
	}
	hasLocation, err := validation.ValidateCoordinates(in.Location.Latitude, in.Location.Longitude)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	images, imageIDs := keepImages(post.Images, post.ImageIDs, in.DeleteImageIDs)
	if len(imageIDs)+len(in.Images) > MaxImagesPerPost {
		return nil, models.NewValidationError("Too many images")
	}
	if s.images != nil {
		s.images.DeleteAll(ctx, removedKeys(post.ImageIDs, imageIDs))
		if len(in.Images) > 0 {
			urls, keys := s.images.UploadAll(ctx, in.UserID, in.Images)
			images, imageIDs = append(images, urls...), append(imageIDs, keys...)
		}
	}

	post.Title = fields.title
	post.Description = fields.description
	post.Category = fields.category
	post.Tags = pq.StringArray(fields.tags)
	post.IsAnonymous = in.IsAnonymous
	post.Images = pq.StringArray(images)
	post.ImageIDs = pq.StringArray(imageIDs)

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, withMessage(err, "Failed to update post. Please try again.")
	}

	if hasLocation {
		err = s.postRepo.UpsertLocation(ctx, &models.Location{
			PostID:    post.ID,
			Latitude:  *in.Location.Latitude,
			Longitude: *in.Location.Longitude,
			Name:      strings.TrimSpace(in.Location.Name),
		})
	} else if post.Location != nil {
		err = s.postRepo.DeleteLocation(ctx, post.ID)
	}
	if err != nil {
		return nil, withMessage(err, "Failed to update post. Please try again.")
	}

	cache.InvalidatePost(ctx, post.ID)
	return s.postRepo.GetByID(ctx, post.ID)
}

// DeletePost removes the post and, best effort, its images. It returns the deleted post.
func (s *PostService) DeletePost(ctx context.Context, userID uint, postID string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, post, userID, "Unauthorized. You can only delete your own posts."); err != nil {
		return nil, err
	}

	if s.images != nil {
		s.images.DeleteAll(ctx, post.ImageIDs)
	}
	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return nil, withMessage(err, "Failed to delete post. Please try again.")
	}
	cache.InvalidatePost(ctx, postID)
	return post, nil
}

func (s *PostService) authorize(ctx context.Context, post *models.Post, userID uint, message string) error {
	if post.OwnedBy(userID) {
		return nil
	}
	if s.isAdmin != nil {
		admin, err := s.isAdmin(ctx, userID)
		if err != nil {
			return err
		}
		if admin {
			return nil
		}
	}
	return models.NewForbiddenError(message)
}

type postFields struct {
	title       string
	description string
	category    string
	tags        []string
}

func validatePostFields(title, description, category, tags string) (postFields, error) {
	f := postFields{
		title:       strings.TrimSpace(title),
		description: strings.TrimSpace(description),
	}
	if err := validation.ValidateTitle(f.title); err != nil {
		return f, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateDescription(f.description); err != nil {
		return f, models.NewValidationError(err.Error())
	}
	var err error
	if f.category, err = validation.NormalizeCategory(category); err != nil {
		return f, models.NewValidationError(err.Error())
	}
	if f.tags, err = validation.ParseTags(tags); err != nil {
		return f, models.NewValidationError(err.Error())
	}
	return f, nil
}

// keepImages drops the images whose key is listed in deleteIDs, keeping URLs and keys aligned.
func keepImages(urls, keys, deleteIDs []string) ([]string, []string) {
	drop := make(map[string]struct{}, len(deleteIDs))
	for _, id := range deleteIDs {
		if id = strings.TrimSpace(id); id != "" {
			drop[id] = struct{}{}
		}
	}
	keptURLs, keptKeys := []string{}, []string{}
	for i, k := range keys {
		if _, gone := drop[k]; gone {
			continue
		}
		keptKeys = append(keptKeys, k)
		if i < len(urls) {
			keptURLs = append(keptURLs, urls[i])
		}
	}
	return keptURLs, keptKeys
}

func removedKeys(before, after []string) []string {
	kept := make(map[string]struct{}, len(after))
	for _, k := range after {
		kept[k] = struct{}{}
	}
	var out []string
	for _, k := range before {
		if _, ok := kept[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

// maskAnonymous hides the author of anonymous posts from everyone but the author.
func maskAnonymous(posts []*models.Post, viewerID uint) []*models.Post {
	for _, p := range posts {
		if p.IsAnonymous && !p.OwnedBy(viewerID) {
			p.Author = nil
			p.AuthorID = 0
		}
	}
	return posts
}

// withMessage replaces the client-facing message of an internal error.
func withMessage(err error, message string) error {
	if models.IsCode(err, models.CodeInternal) {
		return models.NewInternalError(message, err)
	}
	return err
}

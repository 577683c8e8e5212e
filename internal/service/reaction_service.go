package service

import (
	"context"
	"errors"
	"time"

	"utvibe/internal/cache"
	"utvibe/internal/featureflags"
	"utvibe/internal/models"
	"utvibe/internal/observability"
	"utvibe/internal/reaction"
	"utvibe/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// ToggleResult is what a successful toggle reports back to the caller.
type ToggleResult struct {
	Kind    reaction.Kind
	Post    *models.Post
	Active  bool
	Message string
}

// Counts is the like/dislike snapshot sent to clients.
func (r *ToggleResult) Counts() reaction.Counts { return reaction.CountsOf(r.Post) }

// Bookmarks is the bookmark snapshot sent to clients.
func (r *ToggleResult) Bookmarks() reaction.Bookmarks { return reaction.BookmarksOf(r.Post) }

type ReactionService struct {
	postRepo repository.PostRepository
	flags    *featureflags.Manager
	now      func() time.Time
}

func NewReactionService(postRepo repository.PostRepository, flags *featureflags.Manager) *ReactionService {
	return &ReactionService{postRepo: postRepo, flags: flags, now: time.Now}
}

var errSignInRequired = models.NewUnauthorizedError("Unauthorized. Please sign in.")

// Toggle flips userID's kind reaction on postID. A zero userID is rejected before
// the store is touched. Expired posts reject every reaction except bookmarks
// when bookmark_expired is on.
func (s *ReactionService) Toggle(ctx context.Context, postID string, userID uint, kind reaction.Kind) (res *ToggleResult, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "ReactionService", "Toggle",
		attribute.String("post.id", postID),
		attribute.String("reaction.kind", string(kind)),
	)
	defer func() {
		outcome := "error"
		switch {
		case err == nil && res.Active:
			outcome = "on"
		case err == nil:
			outcome = "off"
		default:
			var appErr *models.AppError
			if errors.As(err, &appErr) {
				outcome = appErr.Code
			}
		}
		observability.ObserveToggle(string(kind), outcome, start)
		observability.EndSpan(span, err)
	}()

	if userID == 0 {
		return nil, errSignInRequired
	}
	if postID == "" {
		return nil, models.NewValidationError("Post ID is required")
	}

	member := models.UserKey(userID)
	now := s.now()
	allowExpired := kind == reaction.Bookmark && s.flags.Enabled(featureflags.BookmarkExpired, userID)

	var active bool
	post, err := s.postRepo.ApplyReaction(ctx, postID, func(p *models.Post) error {
		if p.IsExpired(now) && !allowExpired {
			return models.NewExpiredError("This post has expired")
		}
		active = reaction.Toggle(p, member, kind)
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code != models.CodeInternal {
			return nil, err
		}
		return nil, models.NewInternalError(kind.FailureMessage(), err)
	}
	cache.InvalidatePost(ctx, postID)

	return &ToggleResult{
		Kind:    kind,
		Post:    post,
		Active:  active,
		Message: kind.Message(active),
	}, nil
}

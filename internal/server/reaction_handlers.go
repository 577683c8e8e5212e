package server

import (
	"utvibe/internal/notifications"
	"utvibe/internal/reaction"

	"github.com/gofiber/fiber/v2"
)

// LikePost handles POST /api/posts/:id/like
// @Summary Toggle like
// @Description Likes the post, or removes the like if present. Liking clears an existing dislike.
// @Tags reactions
// @Security BearerAuth
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} object{success=bool,message=string,post=reaction.Counts,hasLiked=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	return s.toggleReaction(c, reaction.Like)
}

// DislikePost handles POST /api/posts/:id/dislike
// @Summary Toggle dislike
// @Tags reactions
// @Security BearerAuth
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} object{success=bool,message=string,post=reaction.Counts,hasDisliked=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/dislike [post]
func (s *Server) DislikePost(c *fiber.Ctx) error {
	return s.toggleReaction(c, reaction.Dislike)
}

// BookmarkPost handles POST /api/posts/:id/bookmark
// @Summary Toggle bookmark
// @Tags reactions
// @Security BearerAuth
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} object{success=bool,message=string,post=reaction.Bookmarks,hasBookmarked=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/bookmark [post]
func (s *Server) BookmarkPost(c *fiber.Ctx) error {
	return s.toggleReaction(c, reaction.Bookmark)
}

func (s *Server) toggleReaction(c *fiber.Ctx, kind reaction.Kind) error {
	userID, _ := c.Locals("userID").(uint)
	res, err := s.reactionService.Toggle(c.UserContext(), c.Params("id"), userID, kind)
	if err != nil {
		return respond(c, err, kind.FailureMessage())
	}

	body := fiber.Map{
		"success": true,
		"message": res.Message,
	}
	switch kind {
	case reaction.Bookmark:
		body["post"] = res.Bookmarks()
		body["hasBookmarked"] = res.Active
		// Bookmarks are private; only the caller's other sessions hear about them.
		s.publishUserEvent(c.UserContext(), userID, notifications.EventPostReactionUpdated, res.Bookmarks())
	case reaction.Like, reaction.Dislike:
		body["post"] = res.Counts()
		body[hasKey(kind)] = res.Active
		s.publishBroadcastEvent(c.UserContext(), notifications.EventPostReactionUpdated, res.Counts())
	}
	return c.JSON(body)
}

func hasKey(kind reaction.Kind) string {
	if kind == reaction.Dislike {
		return "hasDisliked"
	}
	return "hasLiked"
}

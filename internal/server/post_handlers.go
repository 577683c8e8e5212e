package server

import (
	"utvibe/internal/models"
	"utvibe/internal/notifications"
	"utvibe/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts
// @Summary Active feed
// @Description Unexpired posts, newest first. Anonymous authors are hidden from everyone but themselves.
// @Tags posts
// @Produce json
// @Success 200 {object} object{success=bool,posts=[]models.Post}
// @Failure 500 {object} models.ErrorResponse
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListPosts(c.UserContext(), s.optionalUserID(c))
	if err != nil {
		return respond(c, err, "Error fetching posts")
	}
	return c.JSON(fiber.Map{"success": true, "posts": posts})
}

// GetPost handles GET /api/posts/:id
// @Summary One post
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} object{success=bool,post=models.Post}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.postService.GetPost(c.UserContext(), c.Params("id"), s.optionalUserID(c))
	if err != nil {
		return respond(c, err, "Error fetching post")
	}
	return c.JSON(fiber.Map{"success": true, "post": post})
}

// GetBookmarkedPosts handles GET /api/posts/bookmarked
// @Summary Caller's bookmarked posts
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{success=bool,posts=[]models.Post}
// @Router /posts/bookmarked [get]
func (s *Server) GetBookmarkedPosts(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	posts, err := s.postService.BookmarkedPosts(c.UserContext(), userID)
	if err != nil {
		return respond(c, err, "Error fetching bookmarked posts")
	}
	return c.JSON(fiber.Map{"success": true, "posts": posts})
}

// GetMyPosts handles GET /api/posts/user
// @Summary Caller's own posts, expired included
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{success=bool,posts=[]models.Post}
// @Router /posts/user [get]
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	posts, err := s.postService.MyPosts(c.UserContext(), userID)
	if err != nil {
		return respond(c, err, "Error fetching user posts")
	}
	return c.JSON(fiber.Map{"success": true, "posts": posts})
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Description JSON or multipart form; multipart may carry up to six "images" files.
// @Tags posts
// @Security BearerAuth
// @Accept json,mpfd
// @Produce json
// @Success 201 {object} object{success=bool,message=string,post=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	req, err := parsePostRequest(c)
	if err != nil {
		return models.Respond(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
		IsAnonymous: req.IsAnonymous,
		Location:    req.location(),
		Images:      req.images,
	})
	if err != nil {
		return respond(c, err, "Failed to create post. Please try again.")
	}

	s.publishPostEvent(c.UserContext(), notifications.EventPostCreated, post)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Post created successfully!",
		"post":    post,
	})
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Edit a post
// @Description Author or admin only. Comma separated deleteImageIds drops images; new "images" files are appended.
// @Tags posts
// @Security BearerAuth
// @Accept json,mpfd
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} object{success=bool,message=string,post=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	req, err := parsePostRequest(c)
	if err != nil {
		return models.Respond(c, err)
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:         userID,
		PostID:         c.Params("id"),
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Tags:           req.Tags,
		IsAnonymous:    req.IsAnonymous,
		Location:       req.location(),
		DeleteImageIDs: req.DeleteImageIDs,
		Images:         req.images,
	})
	if err != nil {
		return respond(c, err, "Failed to update post. Please try again.")
	}

	s.publishPostEvent(c.UserContext(), notifications.EventPostUpdated, post)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Post updated successfully",
		"post":    post,
	})
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	post, err := s.postService.DeletePost(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return respond(c, err, "Failed to delete post. Please try again.")
	}

	s.publishBroadcastEvent(c.UserContext(), notifications.EventPostDeleted, fiber.Map{"id": post.ID})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Post deleted successfully",
	})
}

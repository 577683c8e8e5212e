package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"utvibe/internal/models"
	"utvibe/internal/repository"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetPosts_HidesAnonymousAuthors(t *testing.T) {
	ts := newTestServer(t, nil)
	expires := time.Now().Add(time.Hour)
	ts.posts.On("ListActive", mock.Anything, mock.Anything).Return([]*models.Post{
		{ID: "a", AuthorID: 3, Author: &models.Author{ID: 3, Name: "Bevo"}, IsAnonymous: true, ExpiresAt: expires},
		{ID: "b", AuthorID: 4, Author: &models.Author{ID: 4, Name: "Hook"}, ExpiresAt: expires},
		{ID: "c", AuthorID: 5, Author: &models.Author{ID: 5, Name: "Old"}, ExpiresAt: time.Now().Add(-time.Minute)},
	}, nil)

	resp, body := ts.do(t, http.MethodGet, "/api/posts", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	posts := body["posts"].([]any)
	require.Len(t, posts, 2)

	anon := posts[0].(map[string]any)
	assert.Nil(t, anon["author"])
	assert.EqualValues(t, 0, anon["authorId"])

	named := posts[1].(map[string]any)
	assert.Equal(t, "Hook", named["author"].(map[string]any)["name"])
}

func TestGetPosts_Failure(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.posts.On("ListActive", mock.Anything, mock.Anything).
		Return(nil, models.NewInternalError("Error fetching posts", assert.AnError))

	resp, body := ts.do(t, http.MethodGet, "/api/posts", "", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Error fetching posts", body["message"])
}

func TestGetBookmarkedPosts_RoutesBeforeID(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.posts.On("ListBookmarked", mock.Anything, "7", mock.Anything).
		Return([]*models.Post{{ID: "saved"}}, nil)

	resp, body := ts.do(t, http.MethodGet, "/api/posts/bookmarked", ts.token(t, 7), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["posts"], 1)
	ts.posts.AssertNotCalled(t, "GetByID", mock.Anything, "bookmarked")
}

func TestGetPost_NotFound(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.posts.On("GetByID", mock.Anything, "missing").Return(nil, repository.ErrPostNotFound)

	resp, body := ts.do(t, http.MethodGet, "/api/posts/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Post not found", body["message"])
}

func TestCreatePost(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]any
		mockSetup      func(ts *testServer)
		expectedStatus int
		message        string
	}{
		{
			name: "Success",
			body: map[string]any{"title": "  Free pizza at the Union  ", "category": "food", "tags": "pizza, free,"},
			mockSetup: func(ts *testServer) {
				ts.posts.On("Create", mock.Anything, mock.MatchedBy(func(p *models.Post) bool {
					return p.Title == "Free pizza at the Union" && p.AuthorID == 7 &&
						len(p.Tags) == 2 && p.ExpiresAt.After(time.Now().Add(6*24*time.Hour))
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*models.Post).ID = "new"
				}).Return(nil)
				ts.posts.On("GetByID", mock.Anything, "new").Return(&models.Post{ID: "new", AuthorID: 7}, nil)
			},
			expectedStatus: http.StatusCreated,
			message:        "Post created successfully!",
		},
		{
			name:           "Missing title",
			body:           map[string]any{"title": "   "},
			mockSetup:      func(*testServer) {},
			expectedStatus: http.StatusBadRequest,
			message:        "Title is required",
		},
		{
			name:           "Half a location",
			body:           map[string]any{"title": "Lost keys", "latitude": 30.28},
			mockSetup:      func(*testServer) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Storage failure",
			body: map[string]any{"title": "Study group"},
			mockSetup: func(ts *testServer) {
				ts.posts.On("Create", mock.Anything, mock.Anything).
					Return(models.NewInternalError("Failed to create post", assert.AnError))
			},
			expectedStatus: http.StatusInternalServerError,
			message:        "Failed to create post. Please try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			tt.mockSetup(ts)

			resp, body := ts.do(t, http.MethodPost, "/api/posts", ts.token(t, 7), tt.body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.message != "" {
				assert.Equal(t, tt.message, body["message"])
			}
		})
	}
}

func TestCreatePost_Multipart(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.posts.On("Create", mock.Anything, mock.MatchedBy(func(p *models.Post) bool {
		return p.IsAnonymous && p.Location != nil && p.Location.Latitude == 30.2849 && p.Category == "lost-found"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Post).ID = "mp"
	}).Return(nil)
	ts.posts.On("GetByID", mock.Anything, "mp").Return(&models.Post{ID: "mp"}, nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"title":       "Found a longhorn keychain",
		"category":    "lost-found",
		"isAnonymous": "true",
		"latitude":    "30.2849",
		"longitude":   "-97.7341",
	} {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/posts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+ts.token(t, 7))
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	ts.posts.AssertExpectations(t)
}

func TestUpdatePost(t *testing.T) {
	owned := func() *models.Post {
		return &models.Post{ID: "p1", AuthorID: 7, Title: "Old", ExpiresAt: time.Now().Add(time.Hour),
			Images: pq.StringArray{"u1"}, ImageIDs: pq.StringArray{"k1"}}
	}

	t.Run("owner edits", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.posts.On("GetByID", mock.Anything, "p1").Return(owned(), nil).Once()
		ts.posts.On("Update", mock.Anything, mock.MatchedBy(func(p *models.Post) bool {
			return p.Title == "New" && len(p.ImageIDs) == 0
		})).Return(nil)
		ts.posts.On("GetByID", mock.Anything, "p1").Return(&models.Post{ID: "p1", Title: "New"}, nil)

		resp, body := ts.do(t, http.MethodPut, "/api/posts/p1", ts.token(t, 7),
			map[string]any{"title": "New", "deleteImageIds": []string{"k1"}})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Post updated successfully", body["message"])
	})

	t.Run("someone else", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.posts.On("GetByID", mock.Anything, "p1").Return(owned(), nil)
		ts.users.On("GetByID", mock.Anything, uint(8)).Return(&models.User{ID: 8}, nil)

		resp, body := ts.do(t, http.MethodPut, "/api/posts/p1", ts.token(t, 8), map[string]any{"title": "Mine now"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "Unauthorized. You can only edit your own posts.", body["message"])
		ts.posts.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("expired", func(t *testing.T) {
		ts := newTestServer(t, nil)
		post := owned()
		post.ExpiresAt = time.Now().Add(-time.Minute)
		ts.posts.On("GetByID", mock.Anything, "p1").Return(post, nil)

		resp, body := ts.do(t, http.MethodPut, "/api/posts/p1", ts.token(t, 7), map[string]any{"title": "Late"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Cannot edit expired post", body["message"])
	})
}

func TestDeletePost(t *testing.T) {
	t.Run("admin deletes", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.posts.On("GetByID", mock.Anything, "p1").Return(&models.Post{ID: "p1", AuthorID: 3}, nil)
		ts.users.On("GetByID", mock.Anything, uint(1)).Return(&models.User{ID: 1, IsAdmin: true}, nil)
		ts.posts.On("Delete", mock.Anything, "p1").Return(nil)

		resp, body := ts.do(t, http.MethodDelete, "/api/posts/p1", ts.token(t, 1), nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Post deleted successfully", body["message"])
	})

	t.Run("stranger", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.posts.On("GetByID", mock.Anything, "p1").Return(&models.Post{ID: "p1", AuthorID: 3}, nil)
		ts.users.On("GetByID", mock.Anything, uint(9)).Return(&models.User{ID: 9}, nil)

		resp, body := ts.do(t, http.MethodDelete, "/api/posts/p1", ts.token(t, 9), nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "Unauthorized. You can only delete your own posts.", body["message"])
	})
}

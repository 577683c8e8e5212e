package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"utvibe/internal/featureflags"
	"utvibe/internal/models"
	"utvibe/internal/reaction"
	"utvibe/internal/repository"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub keeps posts in memory. Any func field left nil falls back to
// the map; set one to inject a failure.
type postRepoStub struct {
	mu    sync.Mutex
	posts map[string]*models.Post
	calls int

	createFn func(*models.Post) error
	updateFn func(*models.Post) error
	applyFn  func(string) error
}

func newPostRepoStub(posts ...*models.Post) *postRepoStub {
	r := &postRepoStub{posts: map[string]*models.Post{}}
	for _, p := range posts {
		r.posts[p.ID] = p
	}
	return r
}

func (r *postRepoStub) Create(_ context.Context, post *models.Post) error {
	if r.createFn != nil {
		if err := r.createFn(post); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if post.ID == "" {
		post.ID = "generated"
	}
	r.posts[post.ID] = post
	return nil
}

func (r *postRepoStub) GetByID(_ context.Context, id string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, repository.ErrPostNotFound
	}
	return p, nil
}

func (r *postRepoStub) ListActive(_ context.Context, now time.Time) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Post
	for _, p := range r.posts {
		if !p.IsExpired(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *postRepoStub) ListBookmarked(_ context.Context, memberKey string, now time.Time) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Post
	for _, p := range r.posts {
		for _, k := range p.BookmarkedBy {
			if k == memberKey && !p.IsExpired(now) {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (r *postRepoStub) ListByAuthor(_ context.Context, authorID uint) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Post
	for _, p := range r.posts {
		if p.AuthorID == authorID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *postRepoStub) Update(_ context.Context, post *models.Post) error {
	if r.updateFn != nil {
		return r.updateFn(post)
	}
	return nil
}

func (r *postRepoStub) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	return nil
}

func (r *postRepoStub) ApplyReaction(_ context.Context, id string, mutate func(*models.Post) error) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.applyFn != nil {
		if err := r.applyFn(id); err != nil {
			return nil, err
		}
	}
	p, ok := r.posts[id]
	if !ok {
		return nil, repository.ErrPostNotFound
	}
	if err := mutate(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postRepoStub) UpsertLocation(_ context.Context, loc *models.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.posts[loc.PostID]; ok {
		p.Location = loc
	}
	return nil
}

func (r *postRepoStub) DeleteLocation(_ context.Context, postID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.posts[postID]; ok {
		p.Location = nil
	}
	return nil
}

var fixedNow = time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)

func freshPost(id string) *models.Post {
	return &models.Post{
		ID:           id,
		AuthorID:     1,
		LikedBy:      pq.StringArray{},
		DislikedBy:   pq.StringArray{},
		BookmarkedBy: pq.StringArray{},
		ExpiresAt:    fixedNow.Add(time.Hour),
	}
}

func newReactionService(repo repository.PostRepository, flags string) *ReactionService {
	s := NewReactionService(repo, featureflags.NewManager(flags))
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestToggle_LikeDislikeExclusive(t *testing.T) {
	repo := newPostRepoStub(freshPost("p"))
	svc := newReactionService(repo, "")
	ctx := context.Background()

	res, err := svc.Toggle(ctx, "p", 7, reaction.Like)
	require.NoError(t, err)
	assert.True(t, res.Active)
	assert.Equal(t, "Post liked", res.Message)
	assert.Equal(t, reaction.Counts{ID: "p", Likes: 1, LikedBy: []string{"7"}, Dislikes: 0, DislikedBy: []string{}}, res.Counts())

	res, err = svc.Toggle(ctx, "p", 7, reaction.Dislike)
	require.NoError(t, err)
	assert.Equal(t, "Post disliked", res.Message)
	counts := res.Counts()
	assert.Equal(t, 0, counts.Likes)
	assert.Empty(t, counts.LikedBy)
	assert.Equal(t, 1, counts.Dislikes)
	assert.Equal(t, []string{"7"}, counts.DislikedBy)

	res, err = svc.Toggle(ctx, "p", 7, reaction.Dislike)
	require.NoError(t, err)
	assert.False(t, res.Active)
	assert.Equal(t, "Post undisliked", res.Message)
	assert.Equal(t, 0, res.Post.Dislikes)
}

func TestToggle_BookmarkLeavesVotesAlone(t *testing.T) {
	post := freshPost("p")
	post.LikedBy = pq.StringArray{"7", "8"}
	post.Likes = 2
	repo := newPostRepoStub(post)
	svc := newReactionService(repo, "")

	res, err := svc.Toggle(context.Background(), "p", 7, reaction.Bookmark)
	require.NoError(t, err)
	assert.Equal(t, "Post bookmarked", res.Message)
	assert.Equal(t, reaction.Bookmarks{ID: "p", BookmarkedBy: []string{"7"}}, res.Bookmarks())
	assert.Equal(t, 2, post.Likes)
	assert.Equal(t, pq.StringArray{"7", "8"}, post.LikedBy)
}

func TestToggle_Rejections(t *testing.T) {
	expired := freshPost("old")
	expired.ExpiresAt = fixedNow.Add(-time.Second)

	tests := []struct {
		name   string
		postID string
		userID uint
		kind   reaction.Kind
		flags  string
		code   string
		calls  int
	}{
		{"anonymous caller", "p", 0, reaction.Like, "", models.CodeUnauthorized, 0},
		{"empty post id", "", 7, reaction.Like, "", models.CodeValidation, 0},
		{"missing post", "nope", 7, reaction.Dislike, "", models.CodeNotFound, 1},
		{"expired like", "old", 7, reaction.Like, "", models.CodeExpired, 1},
		{"expired bookmark", "old", 7, reaction.Bookmark, "", models.CodeExpired, 1},
		{"expired dislike with flag", "old", 7, reaction.Dislike, "bookmark_expired=on", models.CodeExpired, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newPostRepoStub(freshPost("p"), expired)
			svc := newReactionService(repo, tt.flags)

			_, err := svc.Toggle(context.Background(), tt.postID, tt.userID, tt.kind)
			require.Error(t, err)
			assert.True(t, models.IsCode(err, tt.code), "got %v", err)
			assert.Equal(t, tt.calls, repo.calls)
		})
	}
	assert.Empty(t, expired.LikedBy)
	assert.Empty(t, expired.BookmarkedBy)
}

func TestToggle_BookmarkExpiredFlag(t *testing.T) {
	post := freshPost("old")
	post.ExpiresAt = fixedNow.Add(-time.Hour)
	svc := newReactionService(newPostRepoStub(post), "bookmark_expired=on")

	res, err := svc.Toggle(context.Background(), "old", 7, reaction.Bookmark)
	require.NoError(t, err)
	assert.True(t, res.Active)
}

func TestToggle_StorageFailure(t *testing.T) {
	repo := newPostRepoStub(freshPost("p"))
	repo.applyFn = func(string) error { return errors.New("deadlock detected") }
	svc := newReactionService(repo, "")

	for _, kind := range reaction.Kinds {
		_, err := svc.Toggle(context.Background(), "p", 7, kind)
		require.Error(t, err)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeInternal, appErr.Code)
		assert.Equal(t, kind.FailureMessage(), appErr.Message)
	}
}

func TestToggle_ConcurrentUsers(t *testing.T) {
	post := freshPost("p")
	svc := newReactionService(newPostRepoStub(post), "")

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, _ = svc.Toggle(context.Background(), "p", id, reaction.Like)
		}(uint(i))
	}
	wg.Wait()

	assert.Equal(t, 20, post.Likes)
	assert.Len(t, post.LikedBy, 20)
}

package reaction

import (
	"slices"
	"testing"

	"utvibe/internal/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyPost() *models.Post {
	return &models.Post{
		ID:           "post-1",
		LikedBy:      pq.StringArray{},
		DislikedBy:   pq.StringArray{},
		BookmarkedBy: pq.StringArray{},
	}
}

func assertInvariants(t *testing.T, p *models.Post) {
	t.Helper()
	assert.Equal(t, len(p.LikedBy), p.Likes, "likes must equal |likedBy|")
	assert.Equal(t, len(p.DislikedBy), p.Dislikes, "dislikes must equal |dislikedBy|")
	for _, u := range p.LikedBy {
		assert.False(t, slices.Contains(p.DislikedBy, u), "user %s both liked and disliked", u)
	}
}

func TestToggle_DislikeThenLike(t *testing.T) {
	t.Parallel()
	p := emptyPost()

	active := Toggle(p, "A", Dislike)
	assert.True(t, active)
	assert.Equal(t, 0, p.Likes)
	assert.Equal(t, 1, p.Dislikes)
	assert.Equal(t, []string{"A"}, []string(p.DislikedBy))

	active = Toggle(p, "A", Like)
	assert.True(t, active)
	assert.Equal(t, 1, p.Likes)
	assert.Equal(t, []string{"A"}, []string(p.LikedBy))
	assert.Equal(t, 0, p.Dislikes)
	assert.Empty(t, p.DislikedBy)
	assertInvariants(t, p)
}

func TestToggle_LikeParity(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 6; n++ {
		p := emptyPost()
		for i := 0; i < n; i++ {
			Toggle(p, "u1", Like)
			assertInvariants(t, p)
		}
		assert.Equal(t, n%2 == 1, Has(p, "u1", Like), "after %d likes", n)
	}
}

func TestToggle_Sequences(t *testing.T) {
	t.Parallel()

	type step struct {
		user string
		kind Kind
	}
	tests := []struct {
		name           string
		steps          []step
		wantLikedBy    []string
		wantDislikedBy []string
		wantBookmarked []string
	}{
		{
			name:           "two users like",
			steps:          []step{{"a", Like}, {"b", Like}},
			wantLikedBy:    []string{"a", "b"},
			wantDislikedBy: []string{},
			wantBookmarked: []string{},
		},
		{
			name:           "like then dislike evicts like",
			steps:          []step{{"a", Like}, {"a", Dislike}},
			wantLikedBy:    []string{},
			wantDislikedBy: []string{"a"},
			wantBookmarked: []string{},
		},
		{
			name:           "undislike leaves likes alone",
			steps:          []step{{"b", Like}, {"a", Dislike}, {"a", Dislike}},
			wantLikedBy:    []string{"b"},
			wantDislikedBy: []string{},
			wantBookmarked: []string{},
		},
		{
			name:           "bookmark is independent",
			steps:          []step{{"a", Bookmark}, {"a", Dislike}, {"a", Like}},
			wantLikedBy:    []string{"a"},
			wantDislikedBy: []string{},
			wantBookmarked: []string{"a"},
		},
		{
			name:           "dislike does not touch bookmark removal",
			steps:          []step{{"a", Bookmark}, {"a", Bookmark}, {"a", Dislike}},
			wantLikedBy:    []string{},
			wantDislikedBy: []string{"a"},
			wantBookmarked: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := emptyPost()
			for _, s := range tt.steps {
				Toggle(p, s.user, s.kind)
				assertInvariants(t, p)
			}
			assert.Equal(t, tt.wantLikedBy, []string(p.LikedBy))
			assert.Equal(t, tt.wantDislikedBy, []string(p.DislikedBy))
			assert.Equal(t, tt.wantBookmarked, []string(p.BookmarkedBy))
		})
	}
}

func TestToggle_RepairsDuplicatesAndDrift(t *testing.T) {
	t.Parallel()
	p := &models.Post{
		LikedBy:    pq.StringArray{"a", "a", "b"},
		Likes:      7,
		DislikedBy: pq.StringArray{"a"},
		Dislikes:   1,
	}

	active := Toggle(p, "a", Like)
	assert.False(t, active)
	assert.Equal(t, []string{"b"}, []string(p.LikedBy))
	assert.Equal(t, 1, p.Likes)
	assert.Equal(t, 1, p.Dislikes)
}

func TestToggle_NilSets(t *testing.T) {
	t.Parallel()
	p := &models.Post{}

	assert.True(t, Toggle(p, "a", Bookmark))
	assert.Equal(t, []string{"a"}, []string(p.BookmarkedBy))
	assert.Equal(t, []string{}, CountsOf(p).LikedBy)
}

func TestKind_Messages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Post liked", Like.Message(true))
	assert.Equal(t, "Post unliked", Like.Message(false))
	assert.Equal(t, "Post disliked", Dislike.Message(true))
	assert.Equal(t, "Post undisliked", Dislike.Message(false))
	assert.Equal(t, "Post bookmarked", Bookmark.Message(true))
	assert.Equal(t, "Post unbookmarked", Bookmark.Message(false))
	assert.Equal(t, "Failed to update like. Please try again.", Like.FailureMessage())
	assert.Equal(t, "Failed to update bookmark. Please try again.", Bookmark.FailureMessage())
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	k, err := ParseKind("dislike")
	require.NoError(t, err)
	assert.Equal(t, Dislike, k)

	_, err = ParseKind("love")
	assert.Error(t, err)
}

package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedPost struct {
	ID    string `json:"id"`
	Likes int    `json:"likes"`
}

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(rdb)
	t.Cleanup(func() {
		SetClient(nil)
		_ = rdb.Close()
	})
	return mr
}

func TestAside_FetchesOnceThenServesFromCache(t *testing.T) {
	withMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedPost) func() error {
		return func() error {
			calls++
			*dest = cachedPost{ID: "p1", Likes: 3}
			return nil
		}
	}

	var first cachedPost
	require.NoError(t, Aside(ctx, PostKey("p1"), &first, PostTTL, fetch(&first)))
	var second cachedPost
	require.NoError(t, Aside(ctx, PostKey("p1"), &second, PostTTL, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestInvalidatePost_DropsPostAndFeed(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, PostKey("p1"), cachedPost{ID: "p1"}, PostTTL))
	require.NoError(t, SetJSON(ctx, FeedKey, []cachedPost{{ID: "p1"}}, FeedTTL))

	InvalidatePost(ctx, "p1")

	assert.False(t, mr.Exists(PostKey("p1")))
	assert.False(t, mr.Exists(FeedKey))
}

func TestAside_WithoutClientAlwaysFetches(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	calls := 0
	var dest cachedPost
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(ctx, FeedKey, &dest, FeedTTL, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestAside_PropagatesFetchError(t *testing.T) {
	withMiniredis(t)

	var dest cachedPost
	err := Aside(context.Background(), PostKey("missing"), &dest, PostTTL, func() error {
		return errors.New("record not found")
	})
	assert.EqualError(t, err, "record not found")
}

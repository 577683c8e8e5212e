package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	PostKeyPrefix  = "post:%s"
	FeedKey        = "posts:feed"
	UserKeyPrefix  = "user:%d"
	BlacklistKeyFn = "blacklist:%s"
)

const (
	PostTTL = 30 * time.Minute
	FeedTTL = 30 * time.Second
	UserTTL = 5 * time.Minute
)

func PostKey(postID string) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// BlacklistKey is where a revoked token's JTI is stored until the token expires.
func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyFn, jti)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidatePost drops the cached post and the public feed that embeds it.
func InvalidatePost(ctx context.Context, postID string) {
	Invalidate(ctx, PostKey(postID), FeedKey)
}

func InvalidateFeed(ctx context.Context) {
	Invalidate(ctx, FeedKey)
}

package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix     = "user:%s"
	PostKeyPrefix     = "post:%d"
	GroupKeyPrefix    = "group:%s"
	GroupsListKey     = "groups:all"
	PageKeyPrefix     = "page:"
)

const (
	UserTTL  = 5 * time.Minute
	PostTTL  = 30 * time.Minute
	GroupTTL = 10 * time.Minute
)

// UserKey is keyed by the exact username; usernames are case-sensitive.
func UserKey(username string) string {
	return fmt.Sprintf(UserKeyPrefix, username)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func GroupKey(slug string) string {
	return fmt.Sprintf(GroupKeyPrefix, slug)
}

// Invalidate deletes keys, ignoring errors; the entries expire on their own.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

func InvalidateUser(ctx context.Context, username string) {
	Invalidate(ctx, UserKey(username))
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}

func InvalidateGroups(ctx context.Context, slugs ...string) {
	keys := []string{GroupsListKey}
	for _, s := range slugs {
		keys = append(keys, GroupKey(s))
	}
	Invalidate(ctx, keys...)
}

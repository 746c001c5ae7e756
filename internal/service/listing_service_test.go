package service

import (
	"context"
	"strconv"
	"testing"

	"yatube/internal/models"
	"yatube/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) listing() *ListingService {
	return NewListingService(f.posts, f.groups, f.users, f.follows, f.comments)
}

func TestListingService_IndexPagination(t *testing.T) {
	f := newFixture(t)
	svc := f.listing()
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, "leo")
	posts := testutil.CreatePosts(t, f.db, author, nil, 13)

	first, err := svc.Index(ctx, "")
	require.NoError(t, err)
	assert.Len(t, first.Items, 10)
	assert.Equal(t, 2, first.NumPages)
	assert.Equal(t, posts[12].ID, first.Items[0].ID, "newest post first")

	second, err := svc.Index(ctx, "2")
	require.NoError(t, err)
	assert.Len(t, second.Items, 3)
	assert.Equal(t, posts[0].ID, second.Items[2].ID)

	clamped, err := svc.Index(ctx, "99")
	require.NoError(t, err)
	assert.Equal(t, 2, clamped.Number)

	junk, err := svc.Index(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 1, junk.Number)
}

func TestListingService_Group(t *testing.T) {
	f := newFixture(t)
	svc := f.listing()
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, "leo")
	cats := testutil.CreateGroup(t, f.db, "cats")
	testutil.CreateGroup(t, f.db, "dogs")
	in := testutil.CreatePost(t, f.db, author, cats, "про котов")
	testutil.CreatePost(t, f.db, author, nil, "без группы")

	group, page, err := svc.Group(ctx, "cats", "")
	require.NoError(t, err)
	assert.Equal(t, cats.ID, group.ID)
	require.Len(t, page.Items, 1)
	assert.Equal(t, in.ID, page.Items[0].ID)

	_, empty, err := svc.Group(ctx, "dogs", "")
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Equal(t, 1, empty.NumPages)

	_, _, err = svc.Group(ctx, "missing", "")
	assert.True(t, models.IsNotFound(err))

	groups, err := svc.Groups(ctx)
	require.NoError(t, err)
	assert.Len(t, groups, 2)
}

func TestListingService_Profile(t *testing.T) {
	f := newFixture(t)
	svc := f.listing()
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, "author")
	reader := testutil.CreateUser(t, f.db, "reader")
	testutil.CreatePosts(t, f.db, author, nil, 3)
	testutil.Follow(t, f.db, reader, author)

	anon, err := svc.Profile(ctx, nil, "author", "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), anon.PostsNum)
	assert.Equal(t, int64(1), anon.Followers)
	assert.False(t, anon.ViewerFollows)

	viewed, err := svc.Profile(ctx, reader, "author", "")
	require.NoError(t, err)
	assert.True(t, viewed.ViewerFollows)
	assert.False(t, viewed.IsSelf)

	self, err := svc.Profile(ctx, author, "author", "")
	require.NoError(t, err)
	assert.True(t, self.IsSelf)

	_, err = svc.Profile(ctx, nil, "ghost", "")
	assert.True(t, models.IsNotFound(err))
}

func TestListingService_PostDetail(t *testing.T) {
	f := newFixture(t)
	svc := f.listing()
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, "author")
	post := testutil.CreatePost(t, f.db, author, nil, "пост")
	testutil.CreatePost(t, f.db, author, nil, "второй")
	comments := NewCommentService(f.comments, f.posts)
	for i := 1; i <= 2; i++ {
		_, err := comments.AddComment(ctx, author, post.ID, "комментарий "+strconv.Itoa(i))
		require.NoError(t, err)
	}

	detail, err := svc.PostDetail(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), detail.PostsNum)
	require.Len(t, detail.Comments, 2)
	assert.Equal(t, "комментарий 1", detail.Comments[0].Text)

	_, err = svc.PostDetail(ctx, 555)
	assert.True(t, models.IsNotFound(err))
}

func TestListingService_Feed(t *testing.T) {
	f := newFixture(t)
	svc := f.listing()
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, "author")
	follower := testutil.CreateUser(t, f.db, "follower")
	outsider := testutil.CreateUser(t, f.db, "outsider")
	testutil.Follow(t, f.db, follower, author)

	testutil.CreatePost(t, f.db, author, nil, "старый")
	newest := testutil.CreatePost(t, f.db, author, nil, "новый")

	feed, err := svc.Feed(ctx, follower, "")
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)
	assert.Equal(t, newest.ID, feed.Items[0].ID)

	other, err := svc.Feed(ctx, outsider, "")
	require.NoError(t, err)
	assert.Empty(t, other.Items)

	_, err = svc.Feed(ctx, nil, "")
	assertAppErrorCode(t, err, models.CodeUnauthorized)
}

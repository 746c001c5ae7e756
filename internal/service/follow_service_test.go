package service

import (
	"context"
	"testing"

	"yatube/internal/models"
	"yatube/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowService_Follow(t *testing.T) {
	f := newFixture(t)
	svc := NewFollowService(f.follows, f.users)
	ctx := context.Background()
	reader := testutil.CreateUser(t, f.db, "reader")
	author := testutil.CreateUser(t, f.db, "author")

	got, created, err := svc.Follow(ctx, reader, "author")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, author.ID, got.ID)

	_, created, err = svc.Follow(ctx, reader, "author")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(1), testutil.CountRows(t, f.db, &models.Follow{}))

	following, err := f.follows.Exists(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, following)
}

func TestFollowService_FollowMatchesUsernameCase(t *testing.T) {
	testutil.UseSharedRedis(t)
	f := newFixture(t)
	svc := NewFollowService(f.follows, f.users)
	ctx := context.Background()
	viewer := testutil.CreateUser(t, f.db, "viewer")
	testutil.CreateUser(t, f.db, "bob")
	upper := testutil.CreateUser(t, f.db, "Bob")

	_, err := f.users.GetByUsername(ctx, "bob")
	require.NoError(t, err)

	got, created, err := svc.Follow(ctx, viewer, "Bob")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, upper.ID, got.ID)

	following, err := f.follows.Exists(ctx, viewer.ID, upper.ID)
	require.NoError(t, err)
	assert.True(t, following)
}

func TestFollowService_SelfFollowStoresNothing(t *testing.T) {
	f := newFixture(t)
	svc := NewFollowService(f.follows, f.users)
	me := testutil.CreateUser(t, f.db, "me")

	_, created, err := svc.Follow(context.Background(), me, "me")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Zero(t, testutil.CountRows(t, f.db, &models.Follow{}))

	following, err := f.follows.Exists(context.Background(), me.ID, me.ID)
	require.NoError(t, err)
	assert.False(t, following)
}

func TestFollowService_Errors(t *testing.T) {
	f := newFixture(t)
	svc := NewFollowService(f.follows, f.users)
	ctx := context.Background()
	reader := testutil.CreateUser(t, f.db, "reader")

	_, _, err := svc.Follow(ctx, reader, "ghost")
	assert.True(t, models.IsNotFound(err))
	_, err = svc.Unfollow(ctx, reader, "ghost")
	assert.True(t, models.IsNotFound(err))

	_, _, err = svc.Follow(ctx, nil, "reader")
	assertAppErrorCode(t, err, models.CodeUnauthorized)
	_, err = svc.Unfollow(ctx, nil, "reader")
	assertAppErrorCode(t, err, models.CodeUnauthorized)
}

func TestFollowService_UnfollowIsIdempotent(t *testing.T) {
	f := newFixture(t)
	svc := NewFollowService(f.follows, f.users)
	ctx := context.Background()
	reader := testutil.CreateUser(t, f.db, "reader")
	author := testutil.CreateUser(t, f.db, "author")
	other := testutil.CreateUser(t, f.db, "other")
	testutil.Follow(t, f.db, other, author)

	_, err := svc.Unfollow(ctx, reader, "author")
	require.NoError(t, err)
	assert.Equal(t, int64(1), testutil.CountRows(t, f.db, &models.Follow{}))

	testutil.Follow(t, f.db, reader, author)
	_, err = svc.Unfollow(ctx, reader, "author")
	require.NoError(t, err)
	assert.Equal(t, int64(1), testutil.CountRows(t, f.db, &models.Follow{}))
}

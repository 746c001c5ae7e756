package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"yatube/internal/models"
	"yatube/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_CreateIssuesInsert(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	post := &models.Post{Text: "Тестовый пост", AuthorID: 3}
	require.NoError(t, repo.Create(context.Background(), post))
	assert.Equal(t, uint(1), post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListNewestFirstAndFilters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	leo := testutil.CreateUser(t, db, "leo")
	anna := testutil.CreateUser(t, db, "anna")
	cats := testutil.CreateGroup(t, db, "cats")

	first := testutil.CreatePost(t, db, leo, nil, "first")
	second := testutil.CreatePost(t, db, anna, cats, "second")
	third := testutil.CreatePost(t, db, leo, cats, "third")

	all, err := repo.List(ctx, PostFilter{}, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uint{third.ID, second.ID, first.ID}, []uint{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "leo", all[0].Author.Username)
	require.NotNil(t, all[0].Group)
	assert.Equal(t, "cats", all[0].Group.Slug)

	byGroup, err := repo.List(ctx, PostFilter{GroupID: cats.ID}, 0, 10)
	require.NoError(t, err)
	assert.Len(t, byGroup, 2)

	n, err := repo.Count(ctx, PostFilter{AuthorID: leo.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	window, err := repo.List(ctx, PostFilter{}, 1, 1)
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, second.ID, window[0].ID)
}

func TestPostRepository_FeedFilter(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	reader := testutil.CreateUser(t, db, "reader")
	followed := testutil.CreateUser(t, db, "followed")
	other := testutil.CreateUser(t, db, "other")
	testutil.Follow(t, db, reader, followed)

	testutil.CreatePost(t, db, other, nil, "not followed")
	p := testutil.CreatePost(t, db, followed, nil, "followed post")

	feed, err := repo.List(ctx, PostFilter{FollowerID: reader.ID}, 0, 10)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, p.ID, feed[0].ID)

	empty, err := repo.Count(ctx, PostFilter{FollowerID: other.ID})
	require.NoError(t, err)
	assert.Zero(t, empty)
}

func TestPostRepository_UpdateKeepsAuthorAndPubDate(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	leo := testutil.CreateUser(t, db, "leo")
	cats := testutil.CreateGroup(t, db, "cats")
	p := testutil.CreatePost(t, db, leo, nil, "before")

	loaded, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	loaded.Text = "after"
	loaded.GroupID = &cats.ID
	loaded.AuthorID = 999
	loaded.CreatedAt = time.Now()
	require.NoError(t, repo.Update(ctx, loaded))

	again, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", again.Text)
	assert.Equal(t, leo.ID, again.AuthorID)
	assert.True(t, p.CreatedAt.Equal(again.CreatedAt))
	require.NotNil(t, again.GroupID)
	assert.Equal(t, cats.ID, *again.GroupID)
}

func TestPostRepository_DeleteAndNotFound(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	leo := testutil.CreateUser(t, db, "leo")
	p := testutil.CreatePost(t, db, leo, nil, "bye")

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err := repo.GetByID(ctx, p.ID)
	assert.True(t, models.IsNotFound(err))
	assert.True(t, models.IsNotFound(repo.Delete(ctx, p.ID)))
	assert.True(t, models.IsNotFound(repo.Update(ctx, &models.Post{ID: 12345, Text: "x"})))
}

func TestPostRepository_UpdateInvalidatesCachedPost(t *testing.T) {
	mr, _ := testutil.UseSharedRedis(t)
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	leo := testutil.CreateUser(t, db, "leo")
	p := testutil.CreatePost(t, db, leo, nil, "cached")

	_, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists("post:"+itoa(p.ID)))

	require.NoError(t, repo.Update(ctx, &models.Post{ID: p.ID, Text: "edited"}))
	assert.False(t, mr.Exists("post:"+itoa(p.ID)))

	again, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", again.Text)
}

package seed

import (
	"context"
	"testing"
	"time"

	"yatube/internal/models"
	"yatube/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBuiltInGroupsCatalogue(t *testing.T) {
	groups, err := BuiltInGroups()
	require.NoError(t, err)
	require.NotEmpty(t, groups)
	for _, g := range groups {
		assert.NotEmpty(t, g.Slug)
		assert.NotEmpty(t, g.Title)
	}
}

func TestParseGroupsRejectsBadEntries(t *testing.T) {
	_, err := ParseGroups([]byte("- slug: bad slug\n  title: Title\n"))
	assert.Error(t, err)

	_, err = ParseGroups([]byte("- slug: ok\n  title: ''\n"))
	assert.Error(t, err)

	_, err = ParseGroups([]byte("- slug: dup\n  title: A\n- slug: dup\n  title: B\n"))
	assert.Error(t, err)

	_, err = ParseGroups([]byte("not: [a list"))
	assert.Error(t, err)
}

func TestGroupsIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	require.NoError(t, Groups(ctx, db))
	require.NoError(t, db.Model(&models.Group{}).Where("slug = ?", "cats").Update("title", "Старое").Error)
	require.NoError(t, Groups(ctx, db))

	builtIn, err := BuiltInGroups()
	require.NoError(t, err)
	assert.Equal(t, int64(len(builtIn)), testutil.CountRows(t, db, &models.Group{}))

	var cats models.Group
	require.NoError(t, db.Where("slug = ?", "cats").First(&cats).Error)
	assert.Equal(t, "Котики", cats.Title)
}

func TestSeedPopulatesDatabase(t *testing.T) {
	db := testutil.NewDB(t)

	sum, err := Seed(context.Background(), db, Options{
		NumUsers:        5,
		NumPosts:        30,
		CommentsPerPost: 2,
		FollowsPerUser:  2,
		MaxDays:         10,
		SkipBcrypt:      true,
		RandomSeed:      42,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(5), testutil.CountRows(t, db, &models.User{}))
	assert.Equal(t, int64(30), testutil.CountRows(t, db, &models.Post{}))
	assert.Equal(t, int64(60), testutil.CountRows(t, db, &models.Comment{}))
	assert.Equal(t, int64(10), testutil.CountRows(t, db, &models.Follow{}))
	assert.Equal(t, 10, sum.Follows)

	var selfFollows int64
	require.NoError(t, db.Model(&models.Follow{}).Where("user_id = author_id").Count(&selfFollows).Error)
	assert.Zero(t, selfFollows)

	var user models.User
	require.NoError(t, db.First(&user).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(DefaultPassword)))

	var oldest models.Post
	require.NoError(t, db.Order("created_at").First(&oldest).Error)
	assert.WithinDuration(t, time.Now(), oldest.CreatedAt, 11*24*time.Hour)
}

func TestSeedCleanStartsOver(t *testing.T) {
	db := testutil.NewDB(t)
	opts := Options{NumUsers: 2, NumPosts: 3, SkipBcrypt: true}

	_, err := Seed(context.Background(), db, opts)
	require.NoError(t, err)

	opts.ShouldClean = true
	_, err = Seed(context.Background(), db, opts)
	require.NoError(t, err)

	assert.Equal(t, int64(2), testutil.CountRows(t, db, &models.User{}))
	assert.Equal(t, int64(3), testutil.CountRows(t, db, &models.Post{}))
}

func TestFactoryDryRun(t *testing.T) {
	f, err := NewFactory(nil, Options{DryRun: true, SkipBcrypt: true, MaxDays: 30})
	require.NoError(t, err)

	u, err := f.CreateUser()
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.NotEmpty(t, u.Username)

	p := f.BuildPost(u, &models.Group{ID: 3})
	require.NotNil(t, p.GroupID)
	assert.Equal(t, uint(3), *p.GroupID)
	assert.NotEmpty(t, p.Text)
	assert.True(t, time.Since(p.CreatedAt) <= 31*24*time.Hour)

	require.NoError(t, f.CreatePostsBatch([]*models.Post{p}))
	assert.NotZero(t, p.ID)
	assert.NoError(t, f.CreateFollow(u, u))
}

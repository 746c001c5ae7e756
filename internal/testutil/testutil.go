// Package testutil provides shared fixtures for package tests: an in-memory
// SQLite database with the full schema and a Redis double.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Password is the plain-text password of every fixture user.
const Password = "Fixture-Pass-123!"

var passwordHash []byte

func init() {
	h, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	passwordHash = h
}

// NewDB opens a private in-memory SQLite database with every table migrated.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	cfg := &config.Config{Env: "test", DBDriver: database.DriverSQLite, DBPath: ":memory:"}
	db, err := database.Connect(cfg)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewRedis starts a miniredis server and returns it with a connected client.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// UseSharedRedis points the package-level cache client at a fresh miniredis
// for the duration of the test.
func UseSharedRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, rdb := NewRedis(t)
	prev := cache.GetClient()
	cache.SetClient(rdb)
	t.Cleanup(func() { cache.SetClient(prev) })
	return mr, rdb
}

// CreateUser inserts a user whose password is Password.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(passwordHash),
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateGroup inserts a group with the given slug.
func CreateGroup(t testing.TB, db *gorm.DB, slug string) *models.Group {
	t.Helper()
	g := &models.Group{Title: "Группа " + slug, Slug: slug, Description: "Описание " + slug}
	require.NoError(t, db.Create(g).Error)
	return g
}

var postClock atomic.Int64

// CreatePost inserts a post by author, optionally in group. Successive calls
// get strictly increasing creation times so ordering is deterministic.
func CreatePost(t testing.TB, db *gorm.DB, author *models.User, group *models.Group, text string) *models.Post {
	t.Helper()
	p := &models.Post{
		Text:      text,
		AuthorID:  author.ID,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(postClock.Add(1)) * time.Second),
	}
	if group != nil {
		p.GroupID = &group.ID
	}
	require.NoError(t, db.Omit("Author", "Group").Create(p).Error)
	return p
}

// CreatePosts inserts n posts by author, numbered from 1.
func CreatePosts(t testing.TB, db *gorm.DB, author *models.User, group *models.Group, n int) []*models.Post {
	t.Helper()
	out := make([]*models.Post, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, CreatePost(t, db, author, group, fmt.Sprintf("Тестовый пост %d", i)))
	}
	return out
}

// Follow makes user follow author.
func Follow(t testing.TB, db *gorm.DB, user, author *models.User) {
	t.Helper()
	require.NoError(t, db.Omit("User", "Author").Create(&models.Follow{UserID: user.ID, AuthorID: author.ID}).Error)
}

// CountRows counts live rows of model.
func CountRows(t testing.TB, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

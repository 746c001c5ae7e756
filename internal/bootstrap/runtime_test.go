package bootstrap

import (
	"testing"

	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/models"
	"yatube/internal/seed"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig() *config.Config {
	return &config.Config{Env: "test", DBDriver: database.DriverSQLite, DBPath: ":memory:"}
}

func TestInitRuntime_SeedsBuiltInGroups(t *testing.T) {
	db, rdb, err := InitRuntime(sqliteConfig(), Options{SeedBuiltIns: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	assert.Nil(t, rdb)

	builtIn, err := seed.BuiltInGroups()
	require.NoError(t, err)
	var n int64
	require.NoError(t, db.Model(&models.Group{}).Count(&n).Error)
	assert.Equal(t, int64(len(builtIn)), n)
}

func TestInitRuntime_ConnectsRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := sqliteConfig()
	cfg.RedisURL = mr.Addr()

	db, rdb, err := InitRuntime(cfg, Options{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = rdb.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NotNil(t, rdb)

	var n int64
	require.NoError(t, db.Model(&models.Group{}).Count(&n).Error)
	assert.Zero(t, n)
}

// Package bootstrap wires the shared runtime dependencies used by the
// server and the command line tools.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/middleware"
	"yatube/internal/observability"
	"yatube/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedBuiltIns upserts the built-in group catalogue.
	SeedBuiltIns bool
	// SkipSchema leaves the schema alone, for tools that manage it themselves.
	SkipSchema bool
}

// InitRuntime connects to the database and Redis, brings the schema up to
// date and optionally seeds the built-in groups. The Redis client is nil
// when REDIS_URL is empty or the server cannot be reached.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if cfg.DBAutoCreate {
		if _, err := database.EnsureDatabase(ctx, cfg); err != nil {
			return nil, nil, fmt.Errorf("ensure database: %w", err)
		}
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if !opts.SkipSchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return nil, nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	if err := observability.RegisterGormMetrics(db); err != nil {
		middleware.Logger.Warn("GORM metrics disabled", "error", err)
	}

	var r *redis.Client
	if strings.TrimSpace(cfg.RedisURL) != "" {
		r = cache.InitRedis(cfg.RedisURL)
	} else {
		middleware.Logger.Info("REDIS_URL not set, caching and feed delivery stay in process")
	}

	if opts.SeedBuiltIns {
		if err := seed.Groups(ctx, db); err != nil {
			return nil, nil, err
		}
	}

	return db, r, nil
}

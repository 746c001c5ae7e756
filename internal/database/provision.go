package database

import (
	"context"
	"fmt"
	"log/slog"

	"yatube/internal/config"
	"yatube/internal/middleware"

	"github.com/jackc/pgx/v5"
)

// EnsureDatabase creates cfg.DBName on the PostgreSQL server when it does not
// exist yet. It connects to the maintenance database "postgres" to do so.
func EnsureDatabase(ctx context.Context, cfg *config.Config) (created bool, err error) {
	if cfg.DBDriver == DriverSQLite {
		return false, nil
	}

	conn, err := pgx.Connect(ctx, PostgresDSN(cfg, "postgres"))
	if err != nil {
		return false, fmt.Errorf("connect to maintenance database: %w", err)
	}
	defer func() { _ = conn.Close(ctx) }()

	var exists bool
	if err := conn.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", cfg.DBName,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check database %q: %w", cfg.DBName, err)
	}
	if exists {
		return false, nil
	}

	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{cfg.DBName}.Sanitize()); err != nil {
		return false, fmt.Errorf("create database %q: %w", cfg.DBName, err)
	}
	middleware.Logger.Info("Database created", slog.String("name", cfg.DBName))
	return true, nil
}

// Package migrations embeds the goose SQL migrations for the guard schema.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

// Up applies all pending migrations using the pool's connection settings
func Up(ctx context.Context, pool *pgxpool.Pool) error {
	return withDB(pool, func(db *sql.DB) error {
		return goose.UpContext(ctx, db, ".")
	})
}

// Status prints the migration status through goose's logger
func Status(ctx context.Context, pool *pgxpool.Pool) error {
	return withDB(pool, func(db *sql.DB) error {
		return goose.StatusContext(ctx, db, ".")
	})
}

func withDB(pool *pgxpool.Pool, fn func(*sql.DB) error) error {
	goose.SetBaseFS(FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	// Goose needs a database/sql handle
	db := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer db.Close()

	if err := fn(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

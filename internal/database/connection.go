package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return models.ErrConflict
		case "23503", "23502", "23514": // foreign_key, not_null, check
			return models.ErrBadRequest
		}
		return err
	}

	// Anything that never reached the server (dial, pool closed, timeout)
	return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
}

// WithTransaction runs fn in a transaction and commits when fn returns nil
func (db *DB) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return MapPostgresError(err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// WithIdentityLock runs fn while holding a transaction-scoped advisory lock keyed
// on identity. Repositories called with the returned context join the transaction,
// so a count-then-upsert for one identity is serialized while other identities
// proceed independently.
func (db *DB) WithIdentityLock(ctx context.Context, identity string, fn func(ctx context.Context) error) error {
	return db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, identity); err != nil {
			return MapPostgresError(err)
		}
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/loginguard/internal/database"
	"github.com/BradenHooton/loginguard/internal/models"
)

// AccountLockoutRepository handles the per-identity lock rows
type AccountLockoutRepository struct {
	db *database.DB
}

// NewAccountLockoutRepository creates a new AccountLockoutRepository
func NewAccountLockoutRepository(db *database.DB) *AccountLockoutRepository {
	return &AccountLockoutRepository{db: db}
}

const lockoutColumns = `email, is_locked, locked_at, unlock_at, failed_attempts, locked_by, unlocked_at, unlocked_by, updated_at`

// Get returns the lock row for email, or models.ErrNotFound
func (r *AccountLockoutRepository) Get(ctx context.Context, email string) (*models.AccountLockout, error) {
	query := `SELECT ` + lockoutColumns + ` FROM account_lockouts WHERE email = $1`

	l := &models.AccountLockout{}
	err := r.db.Querier(ctx).QueryRow(ctx, query, email).Scan(
		&l.Email, &l.IsLocked, &l.LockedAt, &l.UnlockAt, &l.FailedAttempts,
		&l.LockedBy, &l.UnlockedAt, &l.UnlockedBy, &l.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return l, nil
}

// UpsertLock writes a lock for lock.Email in a single statement, overwriting any earlier row
func (r *AccountLockoutRepository) UpsertLock(ctx context.Context, lock *models.AccountLockout) error {
	query := `
		INSERT INTO account_lockouts (email, is_locked, locked_at, unlock_at, failed_attempts, locked_by, unlocked_at, unlocked_by, updated_at)
		VALUES ($1, true, $2, $3, $4, $5, NULL, NULL, NOW())
		ON CONFLICT (email) DO UPDATE SET
			is_locked = true,
			locked_at = EXCLUDED.locked_at,
			unlock_at = EXCLUDED.unlock_at,
			failed_attempts = EXCLUDED.failed_attempts,
			locked_by = EXCLUDED.locked_by,
			unlocked_at = NULL,
			unlocked_by = NULL,
			updated_at = NOW()
	`

	_, err := r.db.Querier(ctx).Exec(ctx, query,
		lock.Email, lock.LockedAt, lock.UnlockAt, lock.FailedAttempts, lock.LockedBy,
	)
	return database.MapPostgresError(err)
}

// Unlock clears the lock flag unconditionally. It reports whether a row existed.
// locked_by is kept as the historical origin.
func (r *AccountLockoutRepository) Unlock(ctx context.Context, email, unlockedBy string, at time.Time) (bool, error) {
	query := `
		UPDATE account_lockouts
		SET is_locked = false, unlocked_at = $2, unlocked_by = $3, updated_at = NOW()
		WHERE email = $1
	`

	tag, err := r.db.Querier(ctx).Exec(ctx, query, email, at, unlockedBy)
	if err != nil {
		return false, database.MapPostgresError(err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListActive returns locks still in force at now, most recent first.
// Stale rows past unlock_at are filtered out without being rewritten.
func (r *AccountLockoutRepository) ListActive(ctx context.Context, now time.Time) ([]*models.AccountLockout, error) {
	query := `SELECT ` + lockoutColumns + `
		FROM account_lockouts
		WHERE is_locked = true AND unlock_at > $1
		ORDER BY locked_at DESC
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query, now)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	locks := []*models.AccountLockout{}
	for rows.Next() {
		l := &models.AccountLockout{}
		if err := rows.Scan(
			&l.Email, &l.IsLocked, &l.LockedAt, &l.UnlockAt, &l.FailedAttempts,
			&l.LockedBy, &l.UnlockedAt, &l.UnlockedBy, &l.UpdatedAt,
		); err != nil {
			return nil, err
		}
		locks = append(locks, l)
	}

	return locks, database.MapPostgresError(rows.Err())
}

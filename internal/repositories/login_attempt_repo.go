package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/loginguard/internal/database"
	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/google/uuid"
)

// LoginAttemptRepository handles database operations for login attempts
type LoginAttemptRepository struct {
	db *database.DB
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository
func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

// RecordAttempt appends a login attempt. ID and AttemptedAt are filled in when empty.
func (r *LoginAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO login_attempts (id, email, ip_address, user_agent, success, failure_reason, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Querier(ctx).Exec(ctx, query,
		attempt.ID,
		attempt.Email,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.Success,
		attempt.FailureReason,
		attempt.AttemptedAt,
	)

	return database.MapPostgresError(err)
}

// CountFailedSince returns the number of failed attempts for an email at or after since
func (r *LoginAttemptRepository) CountFailedSince(ctx context.Context, email string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE email = $1 AND success = false AND attempted_at >= $2
	`

	var count int
	err := r.db.Querier(ctx).QueryRow(ctx, query, email, since).Scan(&count)
	return count, database.MapPostgresError(err)
}

// CountAllFailedSince returns the number of failed attempts across all identities at or after since
func (r *LoginAttemptRepository) CountAllFailedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.Querier(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM login_attempts WHERE success = false AND attempted_at >= $1`,
		since,
	).Scan(&count)
	return count, database.MapPostgresError(err)
}

// Count returns the total number of stored attempts
func (r *LoginAttemptRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.Querier(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM login_attempts`).Scan(&count)
	return count, database.MapPostgresError(err)
}

// List returns attempts newest first
func (r *LoginAttemptRepository) List(ctx context.Context, limit, offset int) ([]*models.LoginAttempt, error) {
	query := `
		SELECT id::text, email, ip_address, user_agent, success, failure_reason, attempted_at
		FROM login_attempts
		ORDER BY attempted_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	attempts := []*models.LoginAttempt{}
	for rows.Next() {
		a := &models.LoginAttempt{}
		if err := rows.Scan(&a.ID, &a.Email, &a.IPAddress, &a.UserAgent, &a.Success, &a.FailureReason, &a.AttemptedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}

	return attempts, database.MapPostgresError(rows.Err())
}

// DeleteBatchOlderThan removes at most batchSize attempts recorded before cutoff.
// Each call is its own statement so concurrent inserts are never blocked for the whole sweep.
func (r *LoginAttemptRepository) DeleteBatchOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	query := `
		DELETE FROM login_attempts
		WHERE id IN (
			SELECT id FROM login_attempts
			WHERE attempted_at < $1
			LIMIT $2
		)
	`

	tag, err := r.db.Querier(ctx).Exec(ctx, query, cutoff, batchSize)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}
